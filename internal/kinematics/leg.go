// Package kinematics maps foot positions to leg joint angles and back.
//
// Each leg hangs from a hip offset laterally and below the body center. The
// hip rolls about x (A) then pitches about y (B); the knee pitches about y (C).
// Both links are half the leg length.
package kinematics

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/robot"
)

// MaxReach is the fraction of the leg length the clamped solver extends to.
const MaxReach = 0.999

// HipClearance is how far below the hip plane, as a fraction of the leg
// length, the clamped solver lowers a target that sits at or above it.
const HipClearance = 1e-3

// FootTolerance bounds the forward-kinematics miss of an exact solution as a
// fraction of the leg length.
const FootTolerance = 1e-6

// minReach2 is the squared normalized reach below which the target sits on the hip.
const minReach2 = 1e-9

// Angles are the (A, B, C) joint angles of one leg.
type Angles [3]float64

func (a Angles) Add(b Angles) Angles {
	return Angles{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func (a Angles) Sub(b Angles) Angles {
	return Angles{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func (a Angles) Scale(k float64) Angles {
	return Angles{k * a[0], k * a[1], k * a[2]}
}

// Geometry describes the leg attachment and length.
type Geometry struct {
	HipLateral float64 `yaml:"hip_lateral"`
	HipDrop    float64 `yaml:"hip_drop"`
	LegLength  float64 `yaml:"leg_length"`
}

func DefaultGeometry() Geometry {
	return Geometry{HipLateral: 0.12, HipDrop: 0.2, LegLength: 1.0}
}

// Hip returns the hip position of leg in the body frame.
func (g Geometry) Hip(leg robot.Leg) r3.Vector {
	return r3.Vector{X: 0, Y: leg.Side() * g.HipLateral, Z: -g.HipDrop}
}

func (g Geometry) hipTransform(leg robot.Leg, att robot.Attitude) *mat.Dense {
	return chain(rotX(att.Roll), rotY(att.Pitch), translate(g.Hip(leg)))
}

// WorldToJoint solves the joint angles placing the foot of leg at p, given
// relative to the body center in a frame that shares the body yaw. The knee
// branch is fixed by the half-angle formula.
//
// A target at or beyond full reach, on the hip itself, or at or above the
// hip plane returns an error wrapping dynamo.ErrNumericDegeneracy, as does a
// solution whose forward kinematics misses p by more than FootTolerance.
func (g Geometry) WorldToJoint(p r3.Vector, leg robot.Leg, att robot.Attitude) (Angles, error) {
	p1 := g.inHip(p, leg, att)
	if p1.Z >= 0 {
		return Angles{}, errors.Wrapf(dynamo.ErrNumericDegeneracy,
			"%v foot target %v at or above the hip plane", leg, p)
	}
	a, x2, z2 := g.planar(p1)
	r2 := x2*x2 + z2*z2
	if r2 >= 1 {
		return Angles{}, errors.Wrapf(dynamo.ErrNumericDegeneracy,
			"%v foot target %v out of reach (%.4f of leg length)", leg, p, math.Sqrt(r2))
	}
	if r2 < minReach2 {
		return Angles{}, errors.Wrapf(dynamo.ErrNumericDegeneracy, "%v foot target %v at the hip", leg, p)
	}
	b, c := halfAngle(x2, z2)
	q := Angles{a, b, c}
	if miss := g.FootPosition(q, leg, att).Sub(p).Norm(); miss > FootTolerance*g.LegLength {
		return Angles{}, errors.Wrapf(dynamo.ErrNumericDegeneracy,
			"%v foot target %v missed by %.3g", leg, p, miss)
	}
	return q, nil
}

// ClampedWorldToJoint is WorldToJoint with out-of-reach targets pulled back
// along the hip-foot line to MaxReach and targets at or above the hip plane
// lowered to HipClearance below it. It reports whether it clamped. Only a
// target on the hip still fails.
func (g Geometry) ClampedWorldToJoint(p r3.Vector, leg robot.Leg, att robot.Attitude) (Angles, bool, error) {
	p1 := g.inHip(p, leg, att)
	if p1.Norm2() < minReach2*g.LegLength*g.LegLength {
		return Angles{}, false, errors.Wrapf(dynamo.ErrNumericDegeneracy, "%v foot target %v at the hip", leg, p)
	}
	clamped := false
	if floor := -HipClearance * g.LegLength; p1.Z > floor {
		p1.Z = floor
		clamped = true
	}
	a, x2, z2 := g.planar(p1)
	r2 := x2*x2 + z2*z2
	if r2 >= MaxReach*MaxReach {
		k := MaxReach / math.Sqrt(r2)
		x2, z2 = k*x2, k*z2
		clamped = true
	}
	b, c := halfAngle(x2, z2)
	return Angles{a, b, c}, clamped, nil
}

// inHip returns p in the frame of the hip of leg.
func (g Geometry) inHip(p r3.Vector, leg robot.Leg, att robot.Attitude) r3.Vector {
	return apply(rigidInverse(g.hipTransform(leg, att)), p)
}

// planar returns the hip roll and the hip-frame target p1 in the leg plane,
// normalized by the leg length. p1 must lie below the hip plane.
func (g Geometry) planar(p1 r3.Vector) (a, x2, z2 float64) {
	a = math.Atan2(p1.Y, -p1.Z)
	p2 := RotateX(p1, -a)
	return a, p2.X / g.LegLength, p2.Z / g.LegLength
}

func halfAngle(x2, z2 float64) (b, c float64) {
	r2 := x2*x2 + z2*z2
	s := math.Sqrt(-r2 * (r2 - 1))
	b = -2 * math.Atan((x2+x2*x2*s/r2+z2*z2*s/r2)/(r2-z2))
	c = 2 * math.Atan(s/r2)
	return b, c
}

// FootInHip returns the foot position in the hip frame.
func (g Geometry) FootInHip(q Angles) r3.Vector {
	half := g.LegLength / 2
	shank := RotateY(r3.Vector{Z: -half}, q[2])
	thigh := shank.Add(r3.Vector{Z: -half})
	return RotateX(RotateY(thigh, q[1]), q[0])
}

// FootInBody returns the foot position of leg in the body frame.
func (g Geometry) FootInBody(q Angles, leg robot.Leg) r3.Vector {
	return g.Hip(leg).Add(g.FootInHip(q))
}

// FootPosition returns the foot position of leg relative to the body center
// in the yaw-aligned frame used by WorldToJoint.
func (g Geometry) FootPosition(q Angles, leg robot.Leg, att robot.Attitude) r3.Vector {
	return RotateX(RotateY(g.FootInBody(q, leg), att.Pitch), att.Roll)
}

// FootJacobian returns d(FootInBody)/dq as a 3x3 matrix by central differences.
func (g Geometry) FootJacobian(q Angles, leg robot.Leg) *mat.Dense {
	const h = 1e-6
	jac := mat.NewDense(3, 3, nil)
	for j := 0; j < 3; j++ {
		qp, qm := q, q
		qp[j] += h
		qm[j] -= h
		d := g.FootInBody(qp, leg).Sub(g.FootInBody(qm, leg)).Mul(1 / (2 * h))
		jac.Set(0, j, d.X)
		jac.Set(1, j, d.Y)
		jac.Set(2, j, d.Z)
	}
	return jac
}
