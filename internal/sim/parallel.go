package sim

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/bipedsim/internal/dynamo"
)

// Factory builds an independent simulator, with its own handle, for one
// target velocity.
type Factory func(target float64) (*Simulator, error)

// SweepResult is the outcome of one run of an Ensemble.
type SweepResult struct {
	Target float64
	Result *dynamo.Result
	Err    error
}

// Ensemble runs one simulation per target velocity in parallel. Handles are
// never shared between runs.
type Ensemble struct {
	build   Factory
	workers int
}

func NewEnsemble(build Factory, workers int) *Ensemble {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Ensemble{build: build, workers: workers}
}

// Run returns one SweepResult per target in input order. A failed run does
// not stop the others; the returned error combines every per-run error.
func (e *Ensemble) Run(ctx context.Context, targets []float64, cfg dynamo.Config) ([]SweepResult, error) {
	results := make([]SweepResult, len(targets))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, target := range targets {
		results[i].Target = target
		g.Go(func() error {
			sim, err := e.build(target)
			if err != nil {
				results[i].Err = errors.WithMessagef(err, "target %.3f", target)
				return nil
			}
			res, err := sim.Run(ctx, cfg)
			results[i].Result = res
			if err != nil {
				results[i].Err = errors.WithMessagef(err, "target %.3f", target)
			}
			return nil
		})
	}
	_ = g.Wait()

	var errs error
	for _, r := range results {
		errs = multierr.Append(errs, r.Err)
	}
	return results, errs
}
