//go:build nlopt

package optim

import (
	"context"

	"github.com/go-nlopt/nlopt"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/san-kum/bipedsim/internal/dynamo"
)

const slsqpAvailable = true

// SLSQP is nlopt's sequential least-squares quadratic programming solver
// with box bounds and finite-difference gradients kept inside the box.
type SLSQP struct{}

func newSLSQP() (Solver, error) { return &SLSQP{}, nil }

func (s *SLSQP) Minimize(ctx context.Context, oracle CostOracle, n int, cfg Settings) (Result, error) {
	opt, err := nlopt.NewNLopt(nlopt.LD_SLSQP, uint(n))
	if err != nil {
		return Result{}, errors.Wrap(err, "nlopt creation error")
	}
	defer opt.Destroy()

	tr := newTracker(oracle, n)
	objective := func(x, gradient []float64) float64 {
		if tr.err != nil || ctx.Err() != nil {
			_ = opt.ForceStop()
			return 0
		}
		f := tr.eval(x)
		if len(gradient) > 0 {
			boxGradient(gradient, tr.eval, x, cfg.GradientStep, cfg.TorqueLimit)
		}
		return f
	}

	lower := make([]float64, n)
	upper := make([]float64, n)
	for i := range lower {
		lower[i], upper[i] = -cfg.TorqueLimit, cfg.TorqueLimit
	}
	err = multierr.Combine(
		opt.SetLowerBounds(lower),
		opt.SetUpperBounds(upper),
		opt.SetFtolAbs(cfg.Tolerance),
		opt.SetXtolAbs1(cfg.Tolerance),
		opt.SetMaxEval(cfg.MaxEvaluations),
		opt.SetMaxTime(cfg.Runtime.Seconds()),
		opt.SetMinObjective(objective),
	)
	if err != nil {
		return Result{}, errors.Wrap(dynamo.ErrConfiguration, err.Error())
	}

	_, _, optErr := opt.Optimize(make([]float64, n))
	if tr.err != nil {
		return Result{}, tr.err
	}
	if cerr := ctx.Err(); cerr != nil {
		return Result{}, errors.Wrap(dynamo.ErrContextCanceled, cerr.Error())
	}

	out := Result{X: clampTo(tr.best, cfg.TorqueLimit), F: tr.bestF, Evaluations: tr.evals, Converged: optErr == nil}
	out.Status = "converged"
	if optErr != nil {
		out.Status = optErr.Error()
	}
	return out, nil
}
