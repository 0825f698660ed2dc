package apex

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/san-kum/bipedsim/internal/dynamo"
)

// Table is the ordered, immutable list of pairs.
type Table struct {
	pairs []Pair
}

// NewTable validates and copies pairs. Air and stance times must be positive.
func NewTable(pairs []Pair) (*Table, error) {
	if len(pairs) == 0 {
		return nil, errors.Wrap(dynamo.ErrConfiguration, "empty pair table")
	}
	for i, p := range pairs {
		row := p.Row()
		if !finite(row[:]...) {
			return nil, errors.Wrapf(dynamo.ErrConfiguration, "pair %d has non-finite values", i)
		}
		if p.AirTime <= 0 || p.StanceTime <= 0 {
			return nil, errors.Wrapf(dynamo.ErrConfiguration, "pair %d: air and stance time must be positive", i)
		}
	}
	out := make([]Pair, len(pairs))
	copy(out, pairs)
	return &Table{pairs: out}, nil
}

// LoadTable reads a headerless comma-separated table with nine columns:
// h0, v, vy, alpha, beta, ks1, ks2, air time, stance time.
func LoadTable(r io.Reader) (*Table, error) {
	rows, err := readRows(r, 9)
	if err != nil {
		return nil, err
	}
	pairs := make([]Pair, len(rows))
	for i, row := range rows {
		var fixed [9]float64
		copy(fixed[:], row)
		pairs[i] = pairFromRow(fixed)
	}
	return NewTable(pairs)
}

func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(dynamo.ErrConfiguration, "open pair table: %v", err)
	}
	defer f.Close()
	t, err := LoadTable(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "pair table %s", path)
	}
	return t, nil
}

// Write emits the table in the format LoadTable reads.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	for _, p := range t.pairs {
		row := p.Row()
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = strconv.FormatFloat(v, 'f', 6, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (t *Table) Len() int { return len(t.pairs) }

// Pair returns row i.
func (t *Table) Pair(i int) Pair { return t.pairs[i] }

// Range returns the smallest and largest speed in the table.
func (t *Table) Range() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range t.pairs {
		lo = math.Min(lo, p.Speed())
		hi = math.Max(hi, p.Speed())
	}
	return lo, hi
}

// Validate reports a configuration error when target lies outside the table.
func (t *Table) Validate(target float64) error {
	lo, hi := t.Range()
	if math.IsNaN(target) || target < lo || target > hi {
		return errors.Wrapf(dynamo.ErrConfiguration, "target velocity %.3f outside table range [%.3f, %.3f]", target, lo, hi)
	}
	return nil
}

// Select returns the pair whose speed is nearest to target and its row
// index. Ties go to the earliest row.
func (t *Table) Select(target float64) (Pair, int, error) {
	if err := t.Validate(target); err != nil {
		return Pair{}, -1, err
	}
	i := nearest(len(t.pairs), func(i int) float64 { return t.pairs[i].Speed() }, target)
	return t.pairs[i], i, nil
}

// nearest returns the first index minimizing |key(i) - target|.
func nearest(n int, key func(int) float64, target float64) int {
	best, bestDist := 0, math.Inf(1)
	for i := 0; i < n; i++ {
		if d := math.Abs(key(i) - target); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func readRows(r io.Reader, cols int) ([][]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(dynamo.ErrConfiguration, "parse table: %v", err)
	}
	rows := make([][]float64, 0, len(records))
	for line, rec := range records {
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) != cols {
			return nil, errors.Wrapf(dynamo.ErrConfiguration, "row %d: want %d columns, got %d", line+1, cols, len(rec))
		}
		row := make([]float64, cols)
		for i, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, errors.Wrapf(dynamo.ErrConfiguration, "row %d column %d: %v", line+1, i, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}
