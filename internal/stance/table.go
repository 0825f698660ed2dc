// Package stance holds the center-of-mass reference followed during a
// ground phase, sampled from a reduced-order stance model.
package stance

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/interp"

	"github.com/san-kum/bipedsim/internal/dynamo"
)

// Sample is the body center relative to the stance foot at time T after
// touchdown: X holds position (x, y, z) then velocity (vx, vy, vz).
type Sample struct {
	T float64
	X [6]float64
}

// Reference is one query of the table.
type Reference struct {
	Position r3.Vector
	Velocity r3.Vector
}

// Table interpolates each of the six channels linearly in time. Queries
// outside the sampled range are clamped to it.
type Table struct {
	channels   [6]interp.PiecewiseLinear
	tMin, tMax float64
	n          int
}

// NewTable fits the samples. Samples whose time does not increase are
// dropped, so duplicated segment boundaries are accepted.
func NewTable(samples []Sample) (*Table, error) {
	ts := make([]float64, 0, len(samples))
	cols := [6][]float64{}
	for _, s := range samples {
		if len(ts) > 0 && s.T <= ts[len(ts)-1] {
			continue
		}
		ts = append(ts, s.T)
		for k := range cols {
			cols[k] = append(cols[k], s.X[k])
		}
	}
	if len(ts) < 2 {
		return nil, errors.Wrapf(dynamo.ErrNumericDegeneracy, "stance trajectory needs two distinct samples, got %d", len(ts))
	}

	t := &Table{tMin: ts[0], tMax: ts[len(ts)-1], n: len(ts)}
	for k := range cols {
		if err := t.channels[k].Fit(ts, cols[k]); err != nil {
			return nil, errors.Wrapf(dynamo.ErrNumericDegeneracy, "fit channel %d: %v", k, err)
		}
	}
	return t, nil
}

// Duration is the last sampled time.
func (t *Table) Duration() float64 { return t.tMax }

func (t *Table) Len() int { return t.n }

// Query returns the reference at elapsed seconds after touchdown.
func (t *Table) Query(elapsed float64) Reference {
	if elapsed < t.tMin {
		elapsed = t.tMin
	}
	if elapsed > t.tMax {
		elapsed = t.tMax
	}
	var v [6]float64
	for k := range v {
		v[k] = t.channels[k].Predict(elapsed)
	}
	return Reference{
		Position: r3.Vector{X: v[0], Y: v[1], Z: v[2]},
		Velocity: r3.Vector{X: v[3], Y: v[4], Z: v[5]},
	}
}
