package physics

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/kinematics"
)

const (
	DefaultMass    = 20.0
	DefaultGravity = 9.8
)

// Ground is the penalty contact model of the floor at z=0.
type Ground struct {
	Stiffness float64 `yaml:"stiffness"`
	Damping   float64 `yaml:"damping"`
	// Viscosity resists foot sliding until the force reaches Friction times
	// the normal force.
	Viscosity float64 `yaml:"viscosity"`
	Friction  float64 `yaml:"friction"`
}

type Config struct {
	Mass           float64             `yaml:"mass"`
	BodySize       r3.Vector           `yaml:"body_size"`
	Gravity        float64             `yaml:"gravity"`
	JointInertia   float64             `yaml:"joint_inertia"`
	JointDamping   float64             `yaml:"joint_damping"`
	AngularDamping float64             `yaml:"angular_damping"`
	Geometry       kinematics.Geometry `yaml:"geometry"`
	Ground         Ground              `yaml:"ground"`
	Dt             float64             `yaml:"dt"`
	// Substeps splits every Step into equal integration steps.
	Substeps int `yaml:"substeps"`
}

func DefaultConfig() Config {
	return Config{
		Mass:           DefaultMass,
		BodySize:       r3.Vector{X: 0.12, Y: 0.25, Z: 0.4},
		Gravity:        DefaultGravity,
		JointInertia:   0.5,
		JointDamping:   0.5,
		AngularDamping: 0.5,
		Geometry:       kinematics.DefaultGeometry(),
		Ground: Ground{
			Stiffness: 5e4,
			Damping:   300,
			Viscosity: 600,
			Friction:  1,
		},
		Dt:       1e-3,
		Substeps: 2,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Mass <= 0:
		return errors.Wrapf(dynamo.ErrConfiguration, "body mass must be positive, got %g", c.Mass)
	case c.BodySize.X <= 0 || c.BodySize.Y <= 0 || c.BodySize.Z <= 0:
		return errors.Wrapf(dynamo.ErrConfiguration, "body size %v must be positive", c.BodySize)
	case c.JointInertia <= 0:
		return errors.Wrapf(dynamo.ErrConfiguration, "joint inertia must be positive, got %g", c.JointInertia)
	case c.Geometry.LegLength <= 0:
		return errors.Wrapf(dynamo.ErrConfiguration, "leg length must be positive, got %g", c.Geometry.LegLength)
	case c.Ground.Stiffness <= 0 || c.Ground.Friction < 0:
		return errors.Wrap(dynamo.ErrConfiguration, "ground stiffness must be positive and friction non-negative")
	case c.Dt <= 0 || c.Substeps < 1:
		return errors.Wrapf(dynamo.ErrConfiguration, "time step %g with %d substeps is invalid", c.Dt, c.Substeps)
	}
	return nil
}

// BoxInertia returns the principal moments of a solid box of mass m.
func BoxInertia(size r3.Vector, m float64) r3.Vector {
	x2, y2, z2 := size.X*size.X, size.Y*size.Y, size.Z*size.Z
	return r3.Vector{
		X: (y2 + z2) * m / 12,
		Y: (x2 + z2) * m / 12,
		Z: (x2 + y2) * m / 12,
	}
}

// Initial is the state a run starts from.
type Initial struct {
	Height   float64   `yaml:"height"`
	Velocity r3.Vector `yaml:"velocity"`
	// Joints holds (hip roll, hip pitch, knee) applied to both legs.
	Joints kinematics.Angles `yaml:"joints"`
}

func DefaultInitial() Initial {
	return Initial{
		Height: 1,
		Joints: kinematics.Angles{0, -0.4, 0.8},
	}
}
