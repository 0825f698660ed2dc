package slip

import (
	"math"

	"github.com/pkg/errors"

	"github.com/san-kum/bipedsim/internal/apex"
	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/stance"
)

// Stance is one integrated ground phase.
type Stance struct {
	// FallTime is the time from apex to touchdown.
	FallTime float64
	// Duration is the time from touchdown to liftoff.
	Duration  float64
	Touchdown dynamo.State
	Liftoff   dynamo.State
	// Samples start at touchdown (T=0) and end at liftoff.
	Samples []stance.Sample
}

// Simulator integrates stance phases of the model.
type Simulator struct {
	p     Params
	model *Model
	// Record keeps every integration step in Stance.Samples when set.
	Record bool
}

func NewSimulator(p Params) (*Simulator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{p: p, model: NewModel(p), Record: true}, nil
}

func (s *Simulator) Params() Params { return s.p }

// touchdown places the foot at l0*(cos b cos a, sin b, -cos b sin a) from
// the body and lets the body fall to it from the apex.
func (s *Simulator) touchdown(a apex.State, u apex.Controls) (dynamo.State, float64, error) {
	l0 := s.p.LegLength
	dx := l0 * math.Cos(u.Beta) * math.Cos(u.Alpha)
	dy := l0 * math.Sin(u.Beta)
	dz := -l0 * math.Cos(u.Beta) * math.Sin(u.Alpha)

	drop := a.H0 + dz
	if drop <= 0 {
		return nil, 0, errors.Wrapf(dynamo.ErrNumericDegeneracy, "apex %.3f m is below touchdown height %.3f m", a.H0, -dz)
	}
	fall := math.Sqrt(2 * drop / s.p.Gravity)
	return dynamo.State{-dx, -dy, -dz, a.VX, a.VY, -s.p.Gravity * fall}, fall, nil
}

// Stance integrates from touchdown to liftoff. KS1 applies until the leg
// starts extending, KS2 afterwards; liftoff is the first time the extending
// leg reaches its rest length, located by linear interpolation inside the
// final step.
func (s *Simulator) Stance(a apex.State, u apex.Controls) (Stance, error) {
	x, fall, err := s.touchdown(a, u)
	if err != nil {
		return Stance{}, err
	}
	out := Stance{FallTime: fall, Touchdown: x.Clone()}
	if s.Record {
		out.Samples = append(out.Samples, sample(0, x))
	}

	in := newIntegrator()
	ks := dynamo.Control{u.KS1}
	compressing := true
	t := 0.0
	for t < s.p.MaxStance {
		if compressing {
			ks[0] = u.KS1
		} else {
			ks[0] = u.KS2
		}
		next := in.Step(s.model, x, ks, t, s.p.Dt)
		if !next.IsValid() {
			return Stance{}, errors.Wrapf(dynamo.ErrNumericDegeneracy, "stance state diverged at %.4f s", t)
		}
		if next[2] <= 0 {
			return Stance{}, errors.Wrapf(dynamo.ErrNumericDegeneracy, "body reached the ground at %.4f s", t+s.p.Dt)
		}
		if compressing && radialSpeed(next) > 0 {
			compressing = false
		}

		r0, r1 := LegLength(x), LegLength(next)
		if !compressing && r1 >= s.p.LegLength {
			frac := 1.0
			if r1 > r0 {
				frac = (s.p.LegLength - r0) / (r1 - r0)
			}
			frac = math.Max(0, math.Min(1, frac))
			lift := x.Add(next.Sub(x).Scale(frac))
			out.Duration = t + frac*s.p.Dt
			out.Liftoff = lift
			if s.Record {
				out.Samples = append(out.Samples, sample(out.Duration, lift))
			}
			return out, nil
		}

		x = next
		t += s.p.Dt
		if s.Record {
			out.Samples = append(out.Samples, sample(t, x))
		}
	}
	return Stance{}, errors.Wrapf(dynamo.ErrNumericDegeneracy, "no liftoff within %.2f s", s.p.MaxStance)
}

// Trajectory is the stance reference the gait controller follows. It
// satisfies gait.StanceSimulator.
func (s *Simulator) Trajectory(a apex.State, u apex.Controls) ([]stance.Sample, error) {
	st, err := s.Stance(a, u)
	if err != nil {
		return nil, err
	}
	return st.Samples, nil
}

// Apex is the return map: the next apex after one stance, and the stance
// itself. A body still falling at liftoff has no apex.
func (s *Simulator) Apex(a apex.State, u apex.Controls) (apex.State, Stance, error) {
	st, err := s.Stance(a, u)
	if err != nil {
		return apex.State{}, Stance{}, err
	}
	lift := st.Liftoff
	if lift[5] <= 0 {
		return apex.State{}, st, errors.Wrapf(dynamo.ErrNumericDegeneracy, "liftoff vertical speed %.3f m/s is not upward", lift[5])
	}
	return apex.FromBody(lift[2], lift[3], lift[4], lift[5], s.p.Gravity), st, nil
}

func sample(t float64, x dynamo.State) stance.Sample {
	var v [6]float64
	copy(v[:], x)
	return stance.Sample{T: t, X: v}
}
