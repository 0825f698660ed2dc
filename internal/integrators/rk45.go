package integrators

import (
	"math"

	"github.com/pkg/errors"

	"github.com/san-kum/bipedsim/internal/dynamo"
)

// Dormand-Prince 5(4) tableau. The last row of dpA is also the fifth-order
// weight vector, so stage 7 is evaluated at the accepted solution.
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	// fifth minus fourth order weights
	dpE = [7]float64{71.0 / 57600, 0, -71.0 / 16695, 71.0 / 1920, -17253.0 / 339200, 22.0 / 525, -1.0 / 40}
)

// RK45 is an embedded Dormand-Prince integrator. Step always covers the
// full dt it is given, subdividing it where the error estimate exceeds
// Tolerance, so stiff ground contact does not change the control period.
type RK45 struct {
	// Tolerance is the relative local error accepted per substep.
	Tolerance float64
	// MaxSubsteps bounds the attempts per Step; the last one covers what is
	// left of dt and is accepted whatever its error.
	MaxSubsteps int

	safety   float64
	minScale float64
	maxScale float64

	k     [7]dynamo.State
	stage dynamo.State
}

func NewRK45() *RK45 {
	return &RK45{
		Tolerance:   1e-6,
		MaxSubsteps: 256,
		safety:      0.9,
		minScale:    0.2,
		maxScale:    10.0,
	}
}

func (r *RK45) ensureScratch(n int) {
	if len(r.stage) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.stage = make(dynamo.State, n)
}

func (r *RK45) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	cur := x
	h := dt
	remaining := dt
	for sub := 1; remaining > 0; sub++ {
		last := sub >= r.MaxSubsteps
		if h > remaining || last {
			h = remaining
		}
		next, ratio := r.attempt(dyn, cur, u, t+dt-remaining, h, r.Tolerance)
		if ratio <= 1 || last {
			cur = next
			remaining -= h
			if remaining <= 1e-12*dt {
				remaining = 0
			}
		}
		h *= r.scale(ratio)
	}
	return cur
}

// StepAdaptive takes one step of size dt and proposes the next step size
// for tolerance tol.
func (r *RK45) StepAdaptive(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt, tol float64) (dynamo.State, float64, error) {
	next, ratio := r.attempt(dyn, x, u, t, dt, tol)
	if !next.IsValid() {
		return next, dt * r.minScale, errors.Wrapf(dynamo.ErrInvalidState, "rk45 step at t=%g", t)
	}
	return next, dt * r.scale(ratio), nil
}

// attempt returns the fifth-order solution after h and its error relative
// to tol.
func (r *RK45) attempt(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, h, tol float64) (dynamo.State, float64) {
	n := len(x)
	r.ensureScratch(n)

	copy(r.k[0], dyn.Derive(x, u, t))
	for s := 1; s < len(dpC); s++ {
		for i := 0; i < n; i++ {
			acc := 0.0
			for j := 0; j < s; j++ {
				acc += dpA[s][j] * r.k[j][i]
			}
			r.stage[i] = x[i] + h*acc
		}
		copy(r.k[s], dyn.Derive(r.stage, u, t+dpC[s]*h))
	}
	next := r.stage.Clone()

	errMax := 0.0
	for i := 0; i < n; i++ {
		e := 0.0
		for j, w := range dpE {
			e += w * r.k[j][i]
		}
		scale := math.Abs(x[i]) + math.Abs(h*r.k[0][i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(h*e)/scale)
	}
	return next, errMax / tol
}

func (r *RK45) scale(ratio float64) float64 {
	switch {
	case ratio > 1:
		return math.Max(r.minScale, r.safety*math.Pow(ratio, -0.25))
	case ratio > 0:
		return math.Min(r.maxScale, r.safety*math.Pow(ratio, -0.2))
	default:
		return r.maxScale
	}
}
