package optim

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/logging"
	"github.com/san-kum/bipedsim/internal/robot"
)

// TorqueOptimizer picks the six joint torques that best realise a set of
// desired accelerations on its handle.
type TorqueOptimizer struct {
	handle   robot.Handle
	solver   Solver
	settings Settings
	weights  Weights
	logger   *zap.SugaredLogger

	last Result
}

func NewTorqueOptimizer(h robot.Handle, solver Solver, settings Settings, weights Weights, logger *zap.SugaredLogger) (*TorqueOptimizer, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if solver == nil {
		return nil, errors.Wrap(dynamo.ErrConfiguration, "nil solver")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &TorqueOptimizer{
		handle:   h,
		solver:   solver,
		settings: settings,
		weights:  weights,
		// Solve warns on every tick that stops early.
		logger: logging.Sampled(logger, 5, 100),
	}, nil
}

// Solve minimises the lookahead cost for a stance on the given leg; the
// other leg's joints are scored against des.Foot.
//
// The returned torques are always inside the box. If the solver ran out of
// budget the best point found is returned together with an error wrapping
// dynamo.ErrNonconvergence; callers may apply it. External state faults
// return no torques.
func (o *TorqueOptimizer) Solve(ctx context.Context, des Accelerations, stance robot.Leg) (dynamo.Control, error) {
	oracle := &Rollout{
		Handle:  o.handle,
		Swing:   stance.Other(),
		Desired: des,
		Weights: o.weights,
	}
	res, err := o.solver.Minimize(ctx, oracle, robot.NumJoints, o.settings)
	if err != nil {
		return nil, err
	}
	o.last = res

	tau := dynamo.Control(res.X).Clamp(o.settings.TorqueLimit)
	if !res.Converged {
		o.logger.Warnw("torque solve stopped early",
			"status", res.Status, "cost", res.F, "evaluations", res.Evaluations)
		return tau, errors.Wrapf(dynamo.ErrNonconvergence, "%s after %d evaluations", res.Status, res.Evaluations)
	}
	return tau, nil
}

// Last returns the result of the most recent successful solve.
func (o *TorqueOptimizer) Last() Result { return o.last }
