package slip

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/san-kum/bipedsim/internal/apex"
	"github.com/san-kum/bipedsim/internal/dynamo"
)

// Search bounds the angle-of-attack search for a periodic gait.
type Search struct {
	Height     float64
	Stiffness  float64
	AlphaMin   float64
	AlphaMax   float64
	Steps      int
	Bisections int
}

func DefaultSearch() Search {
	return Search{
		Height:     1,
		Stiffness:  20,
		AlphaMin:   0.9,
		AlphaMax:   1.5,
		Steps:      120,
		Bisections: 40,
	}
}

// PeriodicPair finds the angle of attack at which a straight run at speed
// reproduces its apex speed after one stance, and returns it as a table row.
// The angle is bracketed by scanning [AlphaMin, AlphaMax] and refined by
// bisection.
func (s *Simulator) PeriodicPair(speed float64, search Search) (apex.Pair, error) {
	prev := s.Record
	s.Record = false
	defer func() { s.Record = prev }()

	x := apex.State{H0: search.Height, VX: speed}
	residual := func(alpha float64) (float64, bool) {
		next, _, err := s.Apex(x, apex.Controls{Alpha: alpha, KS1: search.Stiffness, KS2: search.Stiffness})
		if err != nil {
			return 0, false
		}
		return next.VX - speed, true
	}

	lo, hi := 0.0, 0.0
	found := false
	prevAlpha, prevRes, havePrev := 0.0, 0.0, false
	for i := 0; i <= search.Steps && !found; i++ {
		alpha := search.AlphaMin + (search.AlphaMax-search.AlphaMin)*float64(i)/float64(search.Steps)
		res, ok := residual(alpha)
		if !ok {
			continue
		}
		if havePrev && res*prevRes < 0 {
			lo, hi, found = prevAlpha, alpha, true
		}
		prevAlpha, prevRes, havePrev = alpha, res, true
	}
	if !found {
		return apex.Pair{}, errors.Wrapf(dynamo.ErrNonconvergence, "no periodic angle of attack for v=%.3f in [%.2f, %.2f]", speed, search.AlphaMin, search.AlphaMax)
	}

	resLo, _ := residual(lo)
	for i := 0; i < search.Bisections; i++ {
		mid := 0.5 * (lo + hi)
		res, ok := residual(mid)
		if !ok {
			break
		}
		if res*resLo < 0 {
			hi = mid
		} else {
			lo, resLo = mid, res
		}
	}

	u := apex.Controls{Alpha: 0.5 * (lo + hi), KS1: search.Stiffness, KS2: search.Stiffness}
	_, st, err := s.Apex(x, u)
	if err != nil {
		return apex.Pair{}, err
	}
	return apex.Pair{Apex: x, Controls: u, AirTime: st.FallTime, StanceTime: st.Duration}, nil
}

// BuildTable computes one periodic pair per speed. Speeds with no solution
// in the search range are skipped and reported in the returned error; the
// table is nil only when no speed succeeds.
func (s *Simulator) BuildTable(speeds []float64, search Search) (*apex.Table, error) {
	var pairs []apex.Pair
	var errs error
	for _, v := range speeds {
		p, err := s.PeriodicPair(v, search)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		pairs = append(pairs, p)
	}
	table, err := apex.NewTable(pairs)
	if err != nil {
		return nil, multierr.Append(errs, err)
	}
	return table, errs
}
