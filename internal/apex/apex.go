// Package apex picks the per-cycle leg placement from a table of periodic
// running gaits. Each table row (a pair) records the apex state of a
// periodic gait and the controls that reproduce it. A sensitivity matrix per
// row linearly corrects the controls when the measured apex deviates.
package apex

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Gravity is the magnitude of gravitational acceleration used by the gait model.
const Gravity = 9.8

// State is the flight-phase apex: height and horizontal velocity.
type State struct {
	H0 float64
	VX float64
	VY float64
}

// FromBody computes the apex state reached from the current body height z
// and velocity (vx, vy, vz) under gravity g.
func FromBody(z, vx, vy, vz, g float64) State {
	return State{H0: z + 0.5*vz*vz/g, VX: vx, VY: vy}
}

func (s State) Sub(o State) State {
	return State{H0: s.H0 - o.H0, VX: s.VX - o.VX, VY: s.VY - o.VY}
}

func (s State) vec() *mat.VecDense {
	return mat.NewVecDense(3, []float64{s.H0, s.VX, s.VY})
}

// Controls are the leg angle of attack (Alpha), lateral placement (Beta)
// and the compression/decompression stiffness factors.
type Controls struct {
	Alpha float64
	Beta  float64
	KS1   float64
	KS2   float64
}

func (c Controls) Vector() [4]float64 {
	return [4]float64{c.Alpha, c.Beta, c.KS1, c.KS2}
}

// Pair is one row of the periodic-gait table.
type Pair struct {
	Apex       State
	Controls   Controls
	AirTime    float64
	StanceTime float64
}

// Speed is the table key: signed forward apex velocity.
func (p Pair) Speed() float64 { return p.Apex.VX }

// CycleTime is the duration of one full swing: two flights and a stance.
func (p Pair) CycleTime() float64 { return 2*p.AirTime + p.StanceTime }

// Row returns the pair in table column order.
func (p Pair) Row() [9]float64 {
	return [9]float64{
		p.Apex.H0, p.Apex.VX, p.Apex.VY,
		p.Controls.Alpha, p.Controls.Beta, p.Controls.KS1, p.Controls.KS2,
		p.AirTime, p.StanceTime,
	}
}

func pairFromRow(r [9]float64) Pair {
	return Pair{
		Apex:       State{H0: r[0], VX: r[1], VY: r[2]},
		Controls:   Controls{Alpha: r[3], Beta: r[4], KS1: r[5], KS2: r[6]},
		AirTime:    r[7],
		StanceTime: r[8],
	}
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
