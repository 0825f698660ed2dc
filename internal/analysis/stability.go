package analysis

import (
	"math/cmplx"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/bipedsim/internal/apex"
	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/slip"
)

// ReturnMapEigenvalues linearises the apex-to-apex map of the spring-mass
// model around pair, with the controls corrected every cycle by gain*J
// times the apex deviation, and returns the eigenvalues of the 3x3 result.
// A nil J evaluates the uncorrected map.
func ReturnMapEigenvalues(sim *slip.Simulator, pair apex.Pair, J mat.Matrix, gain, eps float64) ([]complex128, error) {
	if eps <= 0 {
		eps = slip.DefaultJacobianStep
	}
	if J == nil {
		J = mat.NewDense(3, 3, nil)
	}
	prev := sim.Record
	sim.Record = false
	defer func() { sim.Record = prev }()

	step := func(x apex.State) (apex.State, error) {
		corr, err := apex.ComputeCorrection(x, pair, J)
		if err != nil {
			return apex.State{}, err
		}
		next, _, err := sim.Apex(x, apex.CycleControl(pair, corr, 2, gain, 0))
		return next, err
	}

	base := [3]float64{pair.Apex.H0, pair.Apex.VX, pair.Apex.VY}
	toState := func(v [3]float64) apex.State { return apex.State{H0: v[0], VX: v[1], VY: v[2]} }

	m := mat.NewDense(3, 3, nil)
	for j := 0; j < 3; j++ {
		xp, xm := base, base
		xp[j] += eps
		xm[j] -= eps
		fp, err := step(toState(xp))
		if err != nil {
			return nil, errors.WithMessagef(err, "perturb apex component %d", j)
		}
		fm, err := step(toState(xm))
		if err != nil {
			return nil, errors.WithMessagef(err, "perturb apex component %d", j)
		}
		m.Set(0, j, (fp.H0-fm.H0)/(2*eps))
		m.Set(1, j, (fp.VX-fm.VX)/(2*eps))
		m.Set(2, j, (fp.VY-fm.VY)/(2*eps))
	}

	var eig mat.Eigen
	if ok := eig.Factorize(m, mat.EigenNone); !ok {
		return nil, errors.Wrap(dynamo.ErrNumericDegeneracy, "return map eigen decomposition failed")
	}
	return eig.Values(nil), nil
}

// SpectralRadius is the largest eigenvalue magnitude.
func SpectralRadius(eig []complex128) float64 {
	r := 0.0
	for _, v := range eig {
		if a := cmplx.Abs(v); a > r {
			r = a
		}
	}
	return r
}
