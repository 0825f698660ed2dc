package metrics

import (
	"math"

	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/robot"
)

// Energy is the mean translational energy of the body treated as a point
// mass: kinetic plus gravitational potential above the ground.
type Energy struct {
	name        string
	mass        float64
	gravity     float64
	samples     int
	totalEnergy float64
}

func NewEnergy(mass, gravity float64) *Energy {
	return &Energy{
		name:    "energy",
		mass:    mass,
		gravity: gravity,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) < robot.StateDim {
		return
	}
	e.totalEnergy += BodyEnergy(x, e.mass, e.gravity)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// BodyEnergy is m|v|^2/2 + m*g*z for a flat robot state.
func BodyEnergy(x dynamo.State, mass, gravity float64) float64 {
	vx, vy, vz := x[robot.StateLinear], x[robot.StateLinear+1], x[robot.StateLinear+2]
	ke := 0.5 * mass * (vx*vx + vy*vy + vz*vz)
	pe := mass * gravity * x[robot.StatePosition+2]
	return ke + pe
}

// EnergyDrift is the largest relative change of BodyEnergy from the first
// sample.
type EnergyDrift struct {
	name          string
	mass          float64
	gravity       float64
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(mass, gravity float64) *EnergyDrift {
	return &EnergyDrift{
		name:    "energy_drift",
		mass:    mass,
		gravity: gravity,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) < robot.StateDim {
		return
	}
	energy := BodyEnergy(x, e.mass, e.gravity)
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
