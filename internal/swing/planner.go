// Package swing plans the joint-space trajectories both legs follow between
// consecutive apexes.
package swing

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/san-kum/bipedsim/internal/kinematics"
	"github.com/san-kum/bipedsim/internal/robot"
)

const (
	// Degree of every swing curve.
	Degree = 4
	// SampleDelta is the parameter step of the cached curve samples.
	SampleDelta = 0.01

	liftoffLead   = 0.1
	touchdownLead = 0.05
	clearance     = 0.3
)

// Timing is the flight and stance duration of the current pair.
type Timing struct {
	Air    float64
	Stance float64
}

// Cycle is the parameter span of one swing curve: two flights and a stance.
func (t Timing) Cycle() float64 { return 2*t.Air + t.Stance }

// Reference is a joint-space target for one leg.
type Reference struct {
	Q        kinematics.Angles
	DQ       kinematics.Angles
	Progress float64
}

// Planner owns the swing curve of each leg. Both curves are replaced
// together at every flight-phase entry.
type Planner struct {
	geo     kinematics.Geometry
	logger  *zap.SugaredLogger
	curves  [2]*Curve
	samples [2][]kinematics.Angles
	ends    [2]*Waypoint
	timing  Timing
	landing robot.Leg
}

func NewPlanner(geo kinematics.Geometry, logger *zap.SugaredLogger) *Planner {
	return &Planner{geo: geo, logger: logger}
}

// Ready reports whether a curve pair has been planned.
func (p *Planner) Ready() bool { return p.curves[0] != nil && p.curves[1] != nil }

func (p *Planner) Curve(leg robot.Leg) *Curve { return p.curves[leg] }

// Samples returns the curve of leg evaluated every SampleDelta.
func (p *Planner) Samples(leg robot.Leg) []kinematics.Angles { return p.samples[leg] }

func (p *Planner) Timing() Timing { return p.timing }

func (p *Planner) Landing() robot.Leg { return p.landing }

// Replan rebuilds both curves for a flight phase in which landing will touch
// down at td. att is the current body attitude. On error the previous curves
// stay in place.
func (p *Planner) Replan(td Touchdown, landing robot.Leg, cycle int, att robot.Attitude, timing Timing) error {
	if timing.Cycle() <= 0 {
		return errors.Errorf("non-positive swing duration %v", timing)
	}

	landEnd := td.Waypoint
	landCurve, err := p.build(mirror(landEnd), landEnd, landing, att)
	if err != nil {
		return err
	}

	other := landing.Other()
	otherEnd := Waypoint{
		Position:  r3.Vector{X: td.Position.X, Y: other.Side() * p.geo.HipLateral, Z: td.Position.Z},
		Direction: r3.Vector{X: td.Direction.X, Y: 0, Z: td.Direction.Z},
	}
	otherStart := mirror(otherEnd)
	// A symmetric stance lifts off at the mirror of its touchdown.
	if cycle > 1 && p.ends[other] != nil {
		otherStart = mirror(*p.ends[other])
	}
	otherCurve, err := p.build(otherStart, otherEnd, other, att)
	if err != nil {
		return err
	}

	p.curves[landing], p.curves[other] = landCurve, otherCurve
	p.samples[landing] = landCurve.Sample(SampleDelta)
	p.samples[other] = otherCurve.Sample(SampleDelta)
	p.ends[landing], p.ends[other] = &landEnd, &otherEnd
	p.timing = timing
	p.landing = landing
	return nil
}

func (p *Planner) build(start, end Waypoint, leg robot.Leg, att robot.Attitude) (*Curve, error) {
	p1 := start.Position
	p2 := p1.Add(start.Direction.Mul(liftoffLead))
	p5 := end.Position
	p4 := p5.Sub(end.Direction.Mul(touchdownLead))
	p3 := r3.Vector{X: 0, Y: (p1.Y + p5.Y) / 2, Z: p1.Z + clearance}

	ctrl := make([]kinematics.Angles, 0, 5)
	for i, w := range []r3.Vector{p1, p2, p3, p4, p5} {
		q, clamped, err := p.geo.ClampedWorldToJoint(w, leg, att)
		if err != nil {
			return nil, errors.WithMessagef(err, "waypoint %d", i+1)
		}
		if clamped && p.logger != nil {
			p.logger.Warnw("swing waypoint beyond leg reach, clamped", "leg", leg.String(), "waypoint", i+1, "target", w)
		}
		ctrl = append(ctrl, q)
	}
	return NewCurve(Degree, ctrl)
}

// Query returns the position and parametric derivative of the curve of leg
// at progress, clamped to [0, 1].
func (p *Planner) Query(progress float64, leg robot.Leg) (q, dq kinematics.Angles) {
	c := p.curves[leg]
	if c == nil {
		return q, dq
	}
	return c.Point(progress), c.Derivative(progress)
}

// At returns both legs' references elapsed seconds after the start of the
// cycle. The landing leg is a flight and a stance ahead of the other leg.
// Velocities are in rad/s. Progress outside [0, 1] is clamped before both the
// point and its derivative are evaluated.
func (p *Planner) At(elapsed float64) [2]Reference {
	var out [2]Reference
	total := p.timing.Cycle()
	if !p.Ready() || total <= 0 {
		return out
	}
	for _, leg := range robot.Legs {
		t := elapsed
		if leg == p.landing {
			t += p.timing.Air + p.timing.Stance
		}
		progress := t / total
		q, dq := p.Query(progress, leg)
		out[leg] = Reference{Q: q, DQ: dq.Scale(1 / total), Progress: clamp01(progress)}
	}
	return out
}
