package experiment

import (
	"context"
	"math"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/bipedsim/internal/analysis"
	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/slip"
)

// GainScore is the closed-loop spectral radius of one pair at one
// correction gain. Radius is +Inf when the return map could not be
// linearised.
type GainScore struct {
	Gain   float64
	Radius float64
}

// PairTuning is the gain grid evaluated on one table row.
type PairTuning struct {
	Speed  float64
	Best   GainScore
	Scores []GainScore
}

// GainGrid returns n gains evenly spaced over [lo, hi].
func GainGrid(lo, hi float64, n int) ([]float64, error) {
	if n < 2 || !(hi > lo) {
		return nil, errors.Wrapf(dynamo.ErrConfiguration, "gain grid [%g, %g] with %d points", lo, hi, n)
	}
	return floats.Span(make([]float64, n), lo, hi), nil
}

// TuneGain scores every gain on every pair of tables by the spectral radius
// of the corrected apex return map and keeps the smallest per pair. Pairs
// are evaluated concurrently, each with its own spring-mass model.
func TuneGain(ctx context.Context, tables *Tables, params slip.Params, gains []float64, eps float64) ([]PairTuning, error) {
	if len(gains) == 0 {
		return nil, errors.Wrap(dynamo.ErrConfiguration, "no gains to evaluate")
	}
	out := make([]PairTuning, tables.Pairs.Len())

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range out {
		g.Go(func() error {
			model, err := slip.NewSimulator(params)
			if err != nil {
				return err
			}
			pair := tables.Pairs.Pair(i)
			J := tables.Jacobians.Lookup(pair.Speed())
			tuning := PairTuning{Speed: pair.Speed(), Best: GainScore{Radius: math.Inf(1)}}
			for _, gain := range gains {
				if err := ctx.Err(); err != nil {
					return errors.Wrap(dynamo.ErrContextCanceled, err.Error())
				}
				score := GainScore{Gain: gain, Radius: math.Inf(1)}
				if eig, err := analysis.ReturnMapEigenvalues(model, pair, J, gain, eps); err == nil {
					score.Radius = analysis.SpectralRadius(eig)
				}
				tuning.Scores = append(tuning.Scores, score)
				if score.Radius < tuning.Best.Radius {
					tuning.Best = score
				}
			}
			out[i] = tuning
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
