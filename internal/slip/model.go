// Package slip is the spring-loaded inverted pendulum used to plan stance.
//
// The body is a point mass on a massless spring leg. The leg is stiffer
// while it compresses (KS1) than while it extends (KS2), so the controls can
// inject or remove energy within a single stance.
package slip

import (
	"math"

	"github.com/pkg/errors"

	"github.com/san-kum/bipedsim/internal/apex"
	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/integrators"
)

// Params describe the point-mass model and its integration.
type Params struct {
	Mass      float64 `yaml:"mass"`
	Gravity   float64 `yaml:"gravity"`
	LegLength float64 `yaml:"leg_length"`
	// Dt is the fixed integration step.
	Dt float64 `yaml:"dt"`
	// MaxStance bounds one stance integration in seconds.
	MaxStance float64 `yaml:"max_stance"`
}

func DefaultParams() Params {
	return Params{
		Mass:      20,
		Gravity:   apex.Gravity,
		LegLength: 1,
		Dt:        1e-4,
		MaxStance: 2,
	}
}

func (p Params) Validate() error {
	if p.Mass <= 0 || p.Gravity <= 0 || p.LegLength <= 0 {
		return errors.Wrap(dynamo.ErrConfiguration, "slip mass, gravity and leg length must be positive")
	}
	if p.Dt <= 0 || p.MaxStance <= p.Dt {
		return errors.Wrapf(dynamo.ErrConfiguration, "slip dt %g and max stance %g are inconsistent", p.Dt, p.MaxStance)
	}
	return nil
}

// Model is the stance-phase dynamics. The state is the body position
// relative to the foot followed by its velocity; the single control is the
// dimensionless leg stiffness ks, giving k = ks*m*g/l0.
type Model struct {
	p Params
}

func NewModel(p Params) *Model {
	return &Model{p: p}
}

func (m *Model) StateDim() int   { return 6 }
func (m *Model) ControlDim() int { return 1 }

func (m *Model) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	r := math.Sqrt(x[0]*x[0] + x[1]*x[1] + x[2]*x[2])
	k := u[0] * m.p.Mass * m.p.Gravity / m.p.LegLength
	f := k * (m.p.LegLength - r) / r / m.p.Mass
	return dynamo.State{
		x[3], x[4], x[5],
		f * x[0], f * x[1], f*x[2] - m.p.Gravity,
	}
}

// LegLength returns |x[0:3]|.
func LegLength(x dynamo.State) float64 {
	return math.Sqrt(x[0]*x[0] + x[1]*x[1] + x[2]*x[2])
}

// radialSpeed is r . v; positive once the leg extends.
func radialSpeed(x dynamo.State) float64 {
	return x[0]*x[3] + x[1]*x[4] + x[2]*x[5]
}

var _ dynamo.System = (*Model)(nil)

func newIntegrator() dynamo.Integrator { return integrators.NewRK4() }
