package apex

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/bipedsim/internal/dynamo"
)

// JacobianEntry pairs a table speed with its 3x3 sensitivity matrix.
type JacobianEntry struct {
	Speed float64
	J     *mat.Dense
}

// Jacobians maps apex deviation to control correction, one matrix per table
// row, looked up by nearest speed.
type Jacobians struct {
	entries []JacobianEntry
}

func NewJacobians(entries []JacobianEntry) (*Jacobians, error) {
	if len(entries) == 0 {
		return nil, errors.Wrap(dynamo.ErrConfiguration, "no sensitivity matrices")
	}
	out := make([]JacobianEntry, len(entries))
	for i, e := range entries {
		if e.J == nil {
			return nil, errors.Wrapf(dynamo.ErrConfiguration, "entry %d: nil matrix", i)
		}
		if r, c := e.J.Dims(); r != 3 || c != 3 {
			return nil, errors.Wrapf(dynamo.ErrConfiguration, "entry %d: matrix is %dx%d, want 3x3", i, r, c)
		}
		out[i] = JacobianEntry{Speed: e.Speed, J: mat.DenseCopyOf(e.J)}
	}
	return &Jacobians{entries: out}, nil
}

// LoadJacobians reads one row-major 3x3 matrix per line, in the row order of
// table.
func LoadJacobians(r io.Reader, table *Table) (*Jacobians, error) {
	rows, err := readRows(r, 9)
	if err != nil {
		return nil, err
	}
	if len(rows) != table.Len() {
		return nil, errors.Wrapf(dynamo.ErrConfiguration, "%d sensitivity rows for %d pairs", len(rows), table.Len())
	}
	entries := make([]JacobianEntry, len(rows))
	for i, row := range rows {
		entries[i] = JacobianEntry{Speed: table.Pair(i).Speed(), J: mat.NewDense(3, 3, row)}
	}
	return NewJacobians(entries)
}

func LoadJacobiansFile(path string, table *Table) (*Jacobians, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(dynamo.ErrConfiguration, "open sensitivity table: %v", err)
	}
	defer f.Close()
	return LoadJacobians(f, table)
}

func (js *Jacobians) Len() int { return len(js.entries) }

// Lookup returns the matrix whose speed is nearest to speed.
func (js *Jacobians) Lookup(speed float64) *mat.Dense {
	i := nearest(len(js.entries), func(i int) float64 { return js.entries[i].Speed }, speed)
	return js.entries[i].J
}

func (js *Jacobians) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	for _, e := range js.entries {
		rec := make([]string, 0, 9)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				rec = append(rec, strconv.FormatFloat(e.J.At(i, j), 'g', 10, 64))
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
