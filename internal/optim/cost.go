package optim

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/robot"
)

// Accelerations are the targets of one stance tick: base linear and angular
// acceleration in the world frame and the swing leg's joint accelerations.
type Accelerations struct {
	COM  r3.Vector
	Body r3.Vector
	Foot [3]float64
}

// Weights scale each residual before its norm is taken.
type Weights struct {
	COM  float64   `yaml:"com"`
	Body r3.Vector `yaml:"body"`
	Foot float64   `yaml:"foot"`
}

func DefaultWeights() Weights {
	return Weights{
		COM:  25,
		Body: r3.Vector{X: 20, Y: 60, Z: 14},
		Foot: 1,
	}
}

// Score combines measured accelerations into the scalar cost
// |wc*(aLin-COM)| + |wb.*(aAng-Body)| + |wf*(qdd-Foot)|.
func (w Weights) Score(des, got Accelerations) float64 {
	lin := got.COM.Sub(des.COM).Mul(w.COM).Norm()
	d := got.Body.Sub(des.Body)
	ang := r3.Vector{X: w.Body.X * d.X, Y: w.Body.Y * d.Y, Z: w.Body.Z * d.Z}.Norm()

	foot := make([]float64, 3)
	floats.SubTo(foot, got.Foot[:], des.Foot[:])
	floats.Scale(w.Foot, foot)
	return lin + ang + floats.Norm(foot, 2)
}

// CostOracle scores a torque vector. Implementations that touch a robot
// must leave it exactly as they found it.
type CostOracle interface {
	Cost(tau []float64) (float64, error)
}

// CostFunc adapts a plain function to CostOracle.
type CostFunc func(tau []float64) (float64, error)

func (f CostFunc) Cost(tau []float64) (float64, error) { return f(tau) }

// Rollout is the one-step lookahead oracle: apply tau, step the handle once,
// measure accelerations by finite differences of the velocities, restore.
type Rollout struct {
	Handle  robot.Handle
	Swing   robot.Leg
	Desired Accelerations
	Weights Weights
}

// Measure applies tau for one step and reports the resulting accelerations.
// The handle is restored before Measure returns.
func (r *Rollout) Measure(tau []float64) (Accelerations, error) {
	if len(tau) != robot.NumJoints {
		return Accelerations{}, errors.Wrapf(dynamo.ErrDimensionMismatch, "got %d torques, want %d", len(tau), robot.NumJoints)
	}

	var acc Accelerations
	err := robot.WithSnapshot(r.Handle, func() error {
		for j := robot.Joint(0); j < robot.NumJoints; j++ {
			r.Handle.SetJointTorque(j, tau[j])
		}
		lin0, ang0 := r.Handle.BaseVelocity()
		_, dq0 := robot.LegState(r.Handle, r.Swing)

		if err := r.Handle.Step(); err != nil {
			return errors.Wrapf(dynamo.ErrExternalState, "lookahead step: %v", err)
		}

		lin1, ang1 := r.Handle.BaseVelocity()
		_, dq1 := robot.LegState(r.Handle, r.Swing)
		inv := 1 / r.Handle.TimeStep()

		acc.COM = lin1.Sub(lin0).Mul(inv)
		acc.Body = ang1.Sub(ang0).Mul(inv)
		for i := range dq1 {
			acc.Foot[i] = (dq1[i] - dq0[i]) * inv
		}
		return nil
	})
	return acc, err
}

func (r *Rollout) Cost(tau []float64) (float64, error) {
	acc, err := r.Measure(tau)
	if err != nil {
		return 0, err
	}
	return r.Weights.Score(r.Desired, acc), nil
}
