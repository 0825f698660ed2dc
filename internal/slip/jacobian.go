package slip

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/bipedsim/internal/apex"
	"github.com/san-kum/bipedsim/internal/dynamo"
)

// DefaultJacobianStep is the central-difference step used by ControlJacobian.
const DefaultJacobianStep = 1e-3

// returnMap evaluates the next apex for reduced controls w = (alpha, beta,
// kappa) around base stiffnesses ks1, ks2.
func (s *Simulator) returnMap(x apex.State, w [3]float64, ks1, ks2 float64) (apex.State, error) {
	u := apex.Controls{Alpha: w[0], Beta: w[1], KS1: ks1 + w[2], KS2: ks2 - w[2]}
	next, _, err := s.Apex(x, u)
	return next, err
}

// ControlJacobian linearises the return map F(x, w) around pair and
// returns J = -(dF/dw)^-1 dF/dx. Multiplying an apex deviation by J gives
// the (alpha, beta, kappa) correction that cancels it at the next apex;
// kappa shifts stiffness from decompression to compression, which is why
// the fourth control takes the negated third component.
func (s *Simulator) ControlJacobian(pair apex.Pair, eps float64) (*mat.Dense, error) {
	if eps <= 0 {
		eps = DefaultJacobianStep
	}
	prev := s.Record
	s.Record = false
	defer func() { s.Record = prev }()

	x0 := [3]float64{pair.Apex.H0, pair.Apex.VX, pair.Apex.VY}
	w0 := [3]float64{pair.Controls.Alpha, pair.Controls.Beta, 0}
	ks1, ks2 := pair.Controls.KS1, pair.Controls.KS2

	fx := mat.NewDense(3, 3, nil)
	fw := mat.NewDense(3, 3, nil)
	for j := 0; j < 3; j++ {
		xp, xm := x0, x0
		xp[j] += eps
		xm[j] -= eps
		fp, err := s.returnMap(apex.State{H0: xp[0], VX: xp[1], VY: xp[2]}, w0, ks1, ks2)
		if err != nil {
			return nil, errors.WithMessagef(err, "perturb state %d", j)
		}
		fm, err := s.returnMap(apex.State{H0: xm[0], VX: xm[1], VY: xm[2]}, w0, ks1, ks2)
		if err != nil {
			return nil, errors.WithMessagef(err, "perturb state %d", j)
		}
		setColumn(fx, j, fp, fm, eps)

		wp, wm := w0, w0
		wp[j] += eps
		wm[j] -= eps
		x := apex.State{H0: x0[0], VX: x0[1], VY: x0[2]}
		if fp, err = s.returnMap(x, wp, ks1, ks2); err != nil {
			return nil, errors.WithMessagef(err, "perturb control %d", j)
		}
		if fm, err = s.returnMap(x, wm, ks1, ks2); err != nil {
			return nil, errors.WithMessagef(err, "perturb control %d", j)
		}
		setColumn(fw, j, fp, fm, eps)
	}

	var j mat.Dense
	if err := j.Solve(fw, fx); err != nil {
		return nil, errors.Wrapf(dynamo.ErrNumericDegeneracy, "control sensitivity is singular at v=%.3f: %v", pair.Speed(), err)
	}
	j.Scale(-1, &j)
	for _, v := range j.RawMatrix().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Wrapf(dynamo.ErrNumericDegeneracy, "non-finite sensitivity at v=%.3f", pair.Speed())
		}
	}
	return &j, nil
}

func setColumn(m *mat.Dense, j int, fp, fm apex.State, eps float64) {
	m.Set(0, j, (fp.H0-fm.H0)/(2*eps))
	m.Set(1, j, (fp.VX-fm.VX)/(2*eps))
	m.Set(2, j, (fp.VY-fm.VY)/(2*eps))
}

// Jacobians computes the sensitivity matrix of every row of table.
func (s *Simulator) Jacobians(table *apex.Table, eps float64) (*apex.Jacobians, error) {
	entries := make([]apex.JacobianEntry, table.Len())
	for i := range entries {
		pair := table.Pair(i)
		j, err := s.ControlJacobian(pair, eps)
		if err != nil {
			return nil, errors.WithMessagef(err, "row %d", i)
		}
		entries[i] = apex.JacobianEntry{Speed: pair.Speed(), J: j}
	}
	return apex.NewJacobians(entries)
}
