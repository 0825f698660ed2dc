package integrators

import "github.com/san-kum/bipedsim/internal/dynamo"

// secondOrder is implemented by systems whose state is the configuration
// followed by its rates. Other systems are split in half.
type secondOrder interface {
	Configuration() int
}

func split(dyn dynamo.System, n int) int {
	if s, ok := dyn.(secondOrder); ok {
		return s.Configuration()
	}
	return n / 2
}

// Verlet is velocity Verlet. The rates of the system must not depend on
// themselves for the scheme to stay symplectic; joint and angular damping
// make it only approximately so for the robot.
type Verlet struct {
	scratch dynamo.State
}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	m := split(dyn, n)
	if len(v.scratch) != n {
		v.scratch = make(dynamo.State, n)
	}

	acc := append(dynamo.State(nil), dyn.Derive(x, u, t)[m:]...)
	next := make(dynamo.State, n)
	for i := 0; i < m; i++ {
		next[i] = x[i] + dt*x[m+i] + 0.5*dt*dt*acc[i]
	}

	// new positions with the old rates
	copy(v.scratch, next[:m])
	copy(v.scratch[m:], x[m:])
	accNext := dyn.Derive(v.scratch, u, t+dt)[m:]
	for i := 0; i < n-m; i++ {
		next[m+i] = x[m+i] + 0.5*dt*(acc[i]+accNext[i])
	}
	return next
}

// Leapfrog is the kick-drift-kick scheme.
type Leapfrog struct {
	scratch dynamo.State
}

func NewLeapfrog() *Leapfrog {
	return &Leapfrog{}
}

func (l *Leapfrog) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	m := split(dyn, n)
	if len(l.scratch) != n {
		l.scratch = make(dynamo.State, n)
	}

	acc := append(dynamo.State(nil), dyn.Derive(x, u, t)[m:]...)
	next := make(dynamo.State, n)
	for i := 0; i < n-m; i++ {
		next[m+i] = x[m+i] + 0.5*dt*acc[i]
	}
	for i := 0; i < m; i++ {
		next[i] = x[i] + dt*next[m+i]
	}

	copy(l.scratch, next)
	accNext := dyn.Derive(l.scratch, u, t+dt)[m:]
	for i := 0; i < n-m; i++ {
		next[m+i] += 0.5 * dt * accNext[i]
	}
	return next
}
