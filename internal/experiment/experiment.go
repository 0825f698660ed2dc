// Package experiment assembles a complete running simulation from a
// config.Config.
package experiment

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/san-kum/bipedsim/internal/apex"
	"github.com/san-kum/bipedsim/internal/config"
	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/gait"
	"github.com/san-kum/bipedsim/internal/metrics"
	"github.com/san-kum/bipedsim/internal/optim"
	"github.com/san-kum/bipedsim/internal/physics"
	"github.com/san-kum/bipedsim/internal/sim"
	"github.com/san-kum/bipedsim/internal/slip"
	"github.com/san-kum/bipedsim/internal/storage"
)

// Tables are the read-only gait tables shared by every run of a sweep.
type Tables struct {
	Pairs     *apex.Table
	Jacobians *apex.Jacobians
}

// LoadTables reads the pair table and either reads the sensitivity
// matrices or computes them from the spring-mass model.
func LoadTables(cfg *config.Config, logger *zap.SugaredLogger) (*Tables, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	pairs, err := apex.LoadTableFile(cfg.Table)
	if err != nil {
		return nil, err
	}
	if cfg.Jacobians != "" {
		jac, err := apex.LoadJacobiansFile(cfg.Jacobians, pairs)
		if err != nil {
			return nil, err
		}
		return &Tables{Pairs: pairs, Jacobians: jac}, nil
	}

	model, err := slip.NewSimulator(cfg.SLIP)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	jac, err := model.Jacobians(pairs, cfg.JacobianStep)
	if err != nil {
		return nil, errors.WithMessage(err, "computing sensitivity matrices")
	}
	logger.Debugw("computed sensitivity matrices", "pairs", pairs.Len(), "elapsed", time.Since(start))
	return &Tables{Pairs: pairs, Jacobians: jac}, nil
}

// Experiment is one assembled run.
type Experiment struct {
	Config     *config.Config
	Tables     *Tables
	Selector   *apex.Selector
	SLIP       *slip.Simulator
	Robot      *physics.Biped
	Optimizer  *optim.TorqueOptimizer
	Controller *gait.Controller
	Simulator  *sim.Simulator
}

// New loads the tables and builds the run described by cfg.
func New(cfg *config.Config, reg *Registry, logger *zap.SugaredLogger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tables, err := LoadTables(cfg, logger)
	if err != nil {
		return nil, err
	}
	return Build(cfg, tables, reg, logger)
}

// Build wires the components of one run around already loaded tables.
func Build(cfg *config.Config, tables *Tables, reg *Registry, logger *zap.SugaredLogger) (*Experiment, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sel, err := apex.NewSelector(tables.Pairs, tables.Jacobians, cfg.Target, cfg.Selector.Apex())
	if err != nil {
		return nil, err
	}
	model, err := slip.NewSimulator(cfg.SLIP)
	if err != nil {
		return nil, err
	}

	integ, err := reg.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	robotCfg := cfg.Robot
	robotCfg.Dt = cfg.Dt
	biped, err := physics.NewBiped(robotCfg, integ)
	if err != nil {
		return nil, err
	}
	biped.Reset(cfg.Initial)

	solver, err := reg.GetSolver(cfg.Solver.Method)
	if err != nil {
		return nil, err
	}
	opt, err := optim.NewTorqueOptimizer(biped, solver, cfg.Solver, cfg.Weights, logger.Named("optim"))
	if err != nil {
		return nil, err
	}

	liftoff, _ := gait.LiftoffPolicyByName(cfg.Liftoff)
	ctrl, err := gait.New(biped, sel, model, opt, gait.Config{
		Geometry: robotCfg.Geometry,
		Gravity:  robotCfg.Gravity,
		Gains:    cfg.Gains,
		Liftoff:  liftoff,
	}, logger.Named("gait"))
	if err != nil {
		return nil, err
	}

	s := sim.New(biped, ctrl, logger.Named("sim"))
	for _, m := range metrics.Standard(robotCfg.Mass, robotCfg.Gravity, cfg.Target, cfg.Solver.TorqueLimit, biped.Grounded) {
		s.AddMetric(m)
	}

	return &Experiment{
		Config:     cfg,
		Tables:     tables,
		Selector:   sel,
		SLIP:       model,
		Robot:      biped,
		Optimizer:  opt,
		Controller: ctrl,
		Simulator:  s,
	}, nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	return e.Simulator.Run(ctx, e.Config.RunConfig())
}

// Metadata describes a finished run for storage. runErr is the error Run
// returned, if any.
func (e *Experiment) Metadata(result *dynamo.Result, runErr error) storage.RunMetadata {
	meta := storage.RunMetadata{
		Target:     e.Config.Target,
		Dt:         e.Config.Dt,
		Duration:   e.Config.Duration,
		Integrator: e.Config.Integrator,
		Solver:     e.Config.Solver.Method,
		Liftoff:    e.Config.Liftoff,
	}
	if runErr != nil {
		meta.Aborted = runErr.Error()
	}
	if result == nil {
		return meta
	}
	return storage.Describe(meta, result)
}

// Factory builds one simulator per target speed for sim.Ensemble, sharing
// tables. Every run starts at its own target speed.
func Factory(base *config.Config, tables *Tables, reg *Registry, logger *zap.SugaredLogger) sim.Factory {
	return func(target float64) (*sim.Simulator, error) {
		cfg := *base
		cfg.Target = target
		cfg.Initial.Velocity.X = target
		e, err := Build(&cfg, tables, reg, logger)
		if err != nil {
			return nil, err
		}
		return e.Simulator, nil
	}
}
