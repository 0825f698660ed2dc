package integrators

import "github.com/san-kum/bipedsim/internal/dynamo"

// RK4 is the classical fourth-order Runge-Kutta step, the default for the
// robot. Stage buffers are kept between steps.
type RK4 struct {
	k     [4]dynamo.State
	stage dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

var (
	rk4Nodes   = [4]float64{0, 0.5, 0.5, 1}
	rk4Weights = [4]float64{1.0 / 6, 1.0 / 3, 1.0 / 3, 1.0 / 6}
)

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	if len(r.stage) != n {
		for i := range r.k {
			r.k[i] = make(dynamo.State, n)
		}
		r.stage = make(dynamo.State, n)
	}

	copy(r.k[0], dyn.Derive(x, u, t))
	for s := 1; s < 4; s++ {
		h := rk4Nodes[s] * dt
		for i := 0; i < n; i++ {
			r.stage[i] = x[i] + h*r.k[s-1][i]
		}
		copy(r.k[s], dyn.Derive(r.stage, u, t+h))
	}

	next := x.Clone()
	for s, w := range rk4Weights {
		for i := 0; i < n; i++ {
			next[i] += dt * w * r.k[s][i]
		}
	}
	return next
}
