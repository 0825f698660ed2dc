// Package config holds the yaml description of a run.
package config

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/bipedsim/internal/apex"
	"github.com/san-kum/bipedsim/internal/control"
	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/gait"
	"github.com/san-kum/bipedsim/internal/optim"
	"github.com/san-kum/bipedsim/internal/physics"
	"github.com/san-kum/bipedsim/internal/slip"
)

const (
	DefaultTarget     = 2.0
	DefaultDt         = 0.001
	DefaultDuration   = 2.0
	DefaultIntegrator = "rk4"
	DefaultTable      = "configs/stable_pair.csv"
)

type Config struct {
	Target float64 `yaml:"target"`
	// Table is the periodic pair CSV. Jacobians is optional; when empty the
	// sensitivity matrices are computed from the spring-mass model.
	Table      string  `yaml:"table"`
	Jacobians  string  `yaml:"jacobians"`
	Integrator string  `yaml:"integrator"`
	Dt         float64 `yaml:"dt"`
	Duration   float64 `yaml:"duration"`
	Liftoff    string  `yaml:"liftoff"`

	Selector SelectorConfig  `yaml:"selector"`
	Solver   optim.Settings  `yaml:"solver"`
	Weights  optim.Weights   `yaml:"weights"`
	Gains    control.Gains   `yaml:"gains"`
	Robot    physics.Config  `yaml:"robot"`
	Initial  physics.Initial `yaml:"initial"`
	SLIP     slip.Params     `yaml:"slip"`
	// JacobianStep is the finite-difference step for computed sensitivities.
	JacobianStep float64 `yaml:"jacobian_step"`
}

type SelectorConfig struct {
	Gain          float64 `yaml:"gain"`
	BootstrapBeta float64 `yaml:"bootstrap_beta"`
}

func (s SelectorConfig) Apex() apex.SelectorConfig {
	return apex.SelectorConfig{Gain: s.Gain, BootstrapBeta: s.BootstrapBeta}
}

func DefaultConfig() *Config {
	initial := physics.DefaultInitial()
	initial.Velocity.X = DefaultTarget
	return &Config{
		Target:     DefaultTarget,
		Table:      DefaultTable,
		Integrator: DefaultIntegrator,
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Liftoff:    gait.LiftoffNever,
		Selector: SelectorConfig{
			Gain:          apex.DefaultGain,
			BootstrapBeta: apex.BootstrapBeta,
		},
		Solver:       optim.DefaultSettings(),
		Weights:      optim.DefaultWeights(),
		Gains:        control.DefaultGains(),
		Robot:        physics.DefaultConfig(),
		Initial:      initial,
		SLIP:         slip.DefaultParams(),
		JacobianStep: slip.DefaultJacobianStep,
	}
}

// Load reads path over the defaults, so a file only needs the keys it
// changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(dynamo.ErrConfiguration, err.Error())
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(dynamo.ErrConfiguration, "%s: %v", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks everything that can be checked without reading the
// table. Every error wraps dynamo.ErrConfiguration.
func (c *Config) Validate() error {
	switch {
	case math.IsNaN(c.Target) || math.IsInf(c.Target, 0):
		return errors.Wrapf(dynamo.ErrConfiguration, "target velocity %v", c.Target)
	case c.Table == "":
		return errors.Wrap(dynamo.ErrConfiguration, "no pair table given")
	case c.Dt <= 0:
		return errors.Wrapf(dynamo.ErrConfiguration, "dt must be positive, got %g", c.Dt)
	case c.Duration <= 0:
		return errors.Wrapf(dynamo.ErrConfiguration, "duration must be positive, got %g", c.Duration)
	case c.JacobianStep <= 0:
		return errors.Wrapf(dynamo.ErrConfiguration, "jacobian step must be positive, got %g", c.JacobianStep)
	case c.Initial.Height <= 0:
		return errors.Wrapf(dynamo.ErrConfiguration, "initial height must be positive, got %g", c.Initial.Height)
	}
	if _, ok := gait.LiftoffPolicyByName(c.Liftoff); !ok {
		return errors.Wrapf(dynamo.ErrConfiguration, "unknown liftoff policy %q", c.Liftoff)
	}
	robot := c.Robot
	robot.Dt = c.Dt
	if err := robot.Validate(); err != nil {
		return err
	}
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	return c.SLIP.Validate()
}

// RunConfig is the loop configuration for the simulator.
func (c *Config) RunConfig() dynamo.Config {
	return dynamo.Config{Dt: c.Dt, Duration: c.Duration, ValidateState: true}
}
