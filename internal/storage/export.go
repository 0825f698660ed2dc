package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/robot"
)

// Trace is a run read back from states.csv. Phases, Cycles and Controls
// have one entry per state row; the final row has no applied control and
// an empty phase.
type Trace struct {
	Times    []float64
	Phases   []string
	Cycles   []int
	States   [][]float64
	Controls [][]float64
}

// StateColumns names the robot.ReadState channels in order.
func StateColumns() []string {
	cols := []string{"x", "y", "z", "roll", "pitch", "yaw"}
	for j := robot.Joint(0); j < robot.NumJoints; j++ {
		cols = append(cols, "q_"+j.String())
	}
	cols = append(cols, "vx", "vy", "vz", "roll_rate", "pitch_rate", "yaw_rate")
	for j := robot.Joint(0); j < robot.NumJoints; j++ {
		cols = append(cols, "dq_"+j.String())
	}
	return cols
}

func torqueColumns() []string {
	cols := make([]string, 0, robot.NumJoints)
	for j := robot.Joint(0); j < robot.NumJoints; j++ {
		cols = append(cols, "tau_"+j.String())
	}
	return cols
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// WriteCSV writes one row per recorded state: time, phase, cycle, the state
// channels and the torques applied from that state.
func WriteCSV(w io.Writer, result *dynamo.Result) error {
	cw := csv.NewWriter(w)

	header := append([]string{"time", "phase", "cycle"}, StateColumns()...)
	header = append(header, torqueColumns()...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, x := range result.States {
		if len(x) != robot.StateDim {
			return errors.Wrapf(dynamo.ErrDimensionMismatch, "row %d has %d channels", i, len(x))
		}
		phase, cycle := "", ""
		if i < len(result.Phases) {
			phase = result.Phases[i]
		}
		if i < len(result.Cycles) {
			cycle = strconv.Itoa(result.Cycles[i])
		}
		row := make([]string, 0, len(header))
		row = append(row, formatFloat(result.Times[i]), phase, cycle)
		for _, val := range x {
			row = append(row, formatFloat(val))
		}
		for j := 0; j < robot.NumJoints; j++ {
			val := 0.0
			if i < len(result.Controls) && j < len(result.Controls[i]) {
				val = result.Controls[i][j]
			}
			row = append(row, formatFloat(val))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses what WriteCSV produced.
func ReadCSV(r io.Reader) (*Trace, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	tr := &Trace{}
	if len(records) < 2 {
		return tr, nil
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[name] = i
	}
	lookup := func(names []string) ([]int, error) {
		out := make([]int, len(names))
		for i, n := range names {
			col, ok := index[n]
			if !ok {
				return nil, errors.Errorf("states.csv has no %q column", n)
			}
			out[i] = col
		}
		return out, nil
	}
	stateCols, err := lookup(StateColumns())
	if err != nil {
		return nil, err
	}
	torqueCols, err := lookup(torqueColumns())
	if err != nil {
		return nil, err
	}

	parseRow := func(record []string, cols []int) ([]float64, error) {
		vals := make([]float64, len(cols))
		for k, c := range cols {
			v, err := strconv.ParseFloat(record[c], 64)
			if err != nil {
				return nil, err
			}
			vals[k] = v
		}
		return vals, nil
	}

	for i, record := range records[1:] {
		t, err := strconv.ParseFloat(record[index["time"]], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i+1)
		}
		state, err := parseRow(record, stateCols)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i+1)
		}
		tau, err := parseRow(record, torqueCols)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i+1)
		}
		cycle := 0
		if s := record[index["cycle"]]; s != "" {
			if cycle, err = strconv.Atoi(s); err != nil {
				return nil, errors.Wrapf(err, "row %d", i+1)
			}
		}
		tr.Times = append(tr.Times, t)
		tr.Phases = append(tr.Phases, record[index["phase"]])
		tr.Cycles = append(tr.Cycles, cycle)
		tr.States = append(tr.States, state)
		tr.Controls = append(tr.Controls, tau)
	}
	return tr, nil
}

type ExportData struct {
	Run      RunMetadata `json:"run"`
	Columns  []string    `json:"columns"`
	Times    []float64   `json:"times"`
	Phases   []string    `json:"phases"`
	Cycles   []int       `json:"cycles"`
	States   [][]float64 `json:"states"`
	Controls [][]float64 `json:"controls"`
}

// ExportJSON writes meta and the full trace of result as indented JSON.
func ExportJSON(w io.Writer, meta RunMetadata, result *dynamo.Result) error {
	data := ExportData{
		Run:      Describe(meta, result),
		Columns:  StateColumns(),
		Times:    result.Times,
		Phases:   result.Phases,
		Cycles:   result.Cycles,
		States:   make([][]float64, len(result.States)),
		Controls: make([][]float64, len(result.Controls)),
	}
	for i, s := range result.States {
		data.States[i] = s
	}
	for i, c := range result.Controls {
		data.Controls[i] = c
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// TraceResult turns a stored trace back into a result for re-export.
func TraceResult(tr *Trace) *dynamo.Result {
	res := &dynamo.Result{Times: tr.Times, Metrics: map[string]float64{}}
	for _, s := range tr.States {
		res.States = append(res.States, dynamo.State(s))
	}
	if n := len(tr.States) - 1; n > 0 {
		for i := 0; i < n; i++ {
			res.Controls = append(res.Controls, dynamo.Control(tr.Controls[i]))
		}
		res.Phases = tr.Phases[:n]
		res.Cycles = tr.Cycles[:n]
		res.StepsTaken = n
	}
	return res
}
