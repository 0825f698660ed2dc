// Package sim runs a controller against a robot handle in a fixed-step loop
// and records the trace.
package sim

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/gait"
	"github.com/san-kum/bipedsim/internal/robot"
)

// Controller is ticked once per physics step. Errors for which
// dynamo.IsFatal is false are counted as warnings and the run continues.
type Controller interface {
	Tick(ctx context.Context, t float64) (dynamo.Control, error)
}

// phaser is implemented by controllers with a gait phase worth recording.
type phaser interface {
	Phase() gait.Phase
	Cycle() int
}

// maxRecordedErrors bounds Result.Errors; Result.Warnings keeps counting.
const maxRecordedErrors = 64

// Frame is one tick handed to RunWithCallback.
type Frame struct {
	Step    int
	Time    float64
	State   dynamo.State
	Control dynamo.Control
	Phase   gait.Phase
	Cycle   int
}

type Simulator struct {
	handle     robot.Handle
	controller Controller
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
	logger     *zap.SugaredLogger
}

func New(h robot.Handle, controller Controller, logger *zap.SugaredLogger) *Simulator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Simulator{
		handle:     h,
		controller: controller,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
		logger:     logger,
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// Run ticks the controller and steps the handle for cfg.Duration. A fatal
// controller or physics error ends the run; the partial result is returned
// together with a *dynamo.SimulationError.
func (s *Simulator) Run(ctx context.Context, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	result := &dynamo.Result{
		States:   make([]dynamo.State, 0, steps+1),
		Controls: make([]dynamo.Control, 0, steps),
		Times:    make([]float64, 0, steps+1),
		Phases:   make([]string, 0, steps),
		Cycles:   make([]int, 0, steps),
		Metrics:  make(map[string]float64),
		Errors:   make([]error, 0),
	}
	for _, m := range s.metrics {
		m.Reset()
	}

	x0 := robot.ReadState(s.handle)
	result.States = append(result.States, x0)
	result.Times = append(result.Times, 0)

	err := s.loop(ctx, cfg, steps, func(f Frame, warn error) error {
		if warn != nil {
			result.Warnings++
			if len(result.Errors) < maxRecordedErrors {
				result.Errors = append(result.Errors, warn)
			}
		}
		result.Controls = append(result.Controls, f.Control)
		result.Phases = append(result.Phases, f.Phase.String())
		result.Cycles = append(result.Cycles, f.Cycle)
		return nil
	}, func(next dynamo.State, t float64) {
		result.States = append(result.States, next)
		result.Times = append(result.Times, t)
		result.StepsTaken++
	})

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	if err != nil {
		s.logger.Errorw("run aborted", "steps", result.StepsTaken, "error", err)
		return result, err
	}
	s.logger.Infow("run finished", "steps", result.StepsTaken, "warnings", result.Warnings)
	return result, nil
}

// RunWithCallback runs like Run without recording, handing each tick to
// callback. A false return stops the run early without error.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg dynamo.Config, callback func(Frame) bool) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}
	stop := errors.New("stopped")
	steps := int(math.Round(cfg.Duration / cfg.Dt))
	err := s.loop(ctx, cfg, steps, func(f Frame, _ error) error {
		if !callback(f) {
			return stop
		}
		return nil
	}, nil)
	if errors.Is(err, stop) {
		return nil
	}
	return err
}

// loop is the shared tick/step cycle. before sees every tick ahead of the
// physics step and may end the loop by returning an error; after sees the
// state once the step is taken.
func (s *Simulator) loop(ctx context.Context, cfg dynamo.Config, steps int,
	before func(Frame, error) error, after func(dynamo.State, float64),
) error {
	x := robot.ReadState(s.handle)
	t := 0.0
	phase := s.phaseOf()

	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return &dynamo.SimulationError{Step: i, Time: t, State: x, Wrapped: errors.Wrap(dynamo.ErrContextCanceled, err.Error())}
		}

		u, err := s.controller.Tick(ctx, t)
		if dynamo.IsFatal(err) {
			return &dynamo.SimulationError{Step: i, Time: t, State: x, Wrapped: err}
		}
		if u == nil {
			u = make(dynamo.Control, robot.NumJoints)
		}
		if err != nil {
			s.logger.Debugw("tick warning", "step", i, "t", t, "error", err.Error())
		}

		// The phase recorded for a tick is the one whose torques were applied.
		f := Frame{Step: i, Time: t, State: x, Control: u, Phase: phase.Phase, Cycle: phase.Cycle}
		for _, m := range s.metrics {
			m.Observe(x, u, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, u, t)
		}
		if before != nil {
			if berr := before(f, err); berr != nil {
				return berr
			}
		}

		if err := s.handle.Step(); err != nil {
			if !dynamo.IsFatal(err) {
				err = errors.Wrap(dynamo.ErrExternalState, err.Error())
			}
			return &dynamo.SimulationError{Step: i, Time: t, State: x, Wrapped: err}
		}
		x = robot.ReadState(s.handle)
		t += cfg.Dt
		if cfg.ValidateState && !x.IsValid() {
			return &dynamo.SimulationError{Step: i, Time: t, State: x, Wrapped: dynamo.ErrInvalidState}
		}
		if after != nil {
			after(x, t)
		}
		phase = s.phaseOf()
	}
	return nil
}

type phaseMark struct {
	Phase gait.Phase
	Cycle int
}

func (s *Simulator) phaseOf() phaseMark {
	if p, ok := s.controller.(phaser); ok {
		return phaseMark{Phase: p.Phase(), Cycle: p.Cycle()}
	}
	return phaseMark{}
}

func (s *Simulator) validateConfig(cfg dynamo.Config) error {
	if s.handle == nil || s.controller == nil {
		return errors.Wrap(dynamo.ErrConfiguration, "simulator needs a handle and a controller")
	}
	if cfg.Dt <= 0 {
		return errors.Wrapf(dynamo.ErrConfiguration, "dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return errors.Wrapf(dynamo.ErrConfiguration, "duration must be positive, got %f", cfg.Duration)
	}
	if hdt := s.handle.TimeStep(); math.Abs(hdt-cfg.Dt) > 1e-12 {
		return errors.Wrapf(dynamo.ErrConfiguration, "dt %g does not match the physics step %g", cfg.Dt, hdt)
	}
	return nil
}
