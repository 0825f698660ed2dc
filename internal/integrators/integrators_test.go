package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/bipedsim/internal/dynamo"
)

// bouncer is a unit mass on a vertical spring under gravity: state is
// (z, vz), the control adds a vertical force.
type bouncer struct {
	k, g float64
}

func (b *bouncer) StateDim() int   { return 2 }
func (b *bouncer) ControlDim() int { return 1 }

func (b *bouncer) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	f := 0.0
	if len(u) > 0 {
		f = u[0]
	}
	return dynamo.State{x[1], -b.k*x[0] - b.g + f}
}

// exact solution for z(0)=z0, vz(0)=0 around the static rest point -g/k.
func (b *bouncer) exact(z0, t float64) (float64, float64) {
	rest := -b.g / b.k
	w := math.Sqrt(b.k)
	a := z0 - rest
	return rest + a*math.Cos(w*t), -a * w * math.Sin(w*t)
}

func (b *bouncer) energy(x dynamo.State) float64 {
	return 0.5*x[1]*x[1] + 0.5*b.k*x[0]*x[0] + b.g*x[0]
}

func integrate(in dynamo.Integrator, sys dynamo.System, x dynamo.State, u dynamo.Control, dt float64, steps int) dynamo.State {
	for i := 0; i < steps; i++ {
		x = in.Step(sys, x, u, float64(i)*dt, dt)
	}
	return x
}

func TestIntegratorAccuracy(t *testing.T) {
	sys := &bouncer{k: 100, g: 9.8}
	const dt, steps = 0.001, 500
	wantZ, wantV := sys.exact(0.1, dt*steps)

	tests := []struct {
		name string
		in   dynamo.Integrator
		tol  float64
	}{
		{"euler", NewEuler(), 5e-2},
		{"rk4", NewRK4(), 1e-8},
		{"rk45", NewRK45(), 1e-8},
		{"verlet", NewVerlet(), 1e-3},
		{"leapfrog", NewLeapfrog(), 1e-3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := integrate(tt.in, sys, dynamo.State{0.1, 0}, nil, dt, steps)
			if !x.IsValid() {
				t.Fatalf("invalid state %v", x)
			}
			if math.Abs(x[0]-wantZ) > tt.tol || math.Abs(x[1]-wantV) > 10*tt.tol {
				t.Errorf("got (%.8f, %.8f), want (%.8f, %.8f)", x[0], x[1], wantZ, wantV)
			}
		})
	}
}

func TestControlForceShiftsRest(t *testing.T) {
	sys := &bouncer{k: 100, g: 9.8}
	// the control cancels gravity, so z=0 is an equilibrium.
	x := integrate(NewRK4(), sys, dynamo.State{0, 0}, dynamo.Control{9.8}, 0.001, 1000)
	if math.Abs(x[0]) > 1e-12 || math.Abs(x[1]) > 1e-12 {
		t.Errorf("expected equilibrium, got %v", x)
	}
}

func TestSymplecticEnergyBounded(t *testing.T) {
	sys := &bouncer{k: 400, g: 9.8}
	x0 := dynamo.State{0.05, 0}
	e0 := sys.energy(x0)

	for _, in := range []dynamo.Integrator{NewVerlet(), NewLeapfrog()} {
		x := integrate(in, sys, x0.Clone(), nil, 0.001, 20000)
		if drift := math.Abs(sys.energy(x) - e0); drift > 1e-3*math.Abs(e0)+1e-4 {
			t.Errorf("%T energy drift %e", in, drift)
		}
	}
}

func TestRK45AdaptiveStep(t *testing.T) {
	sys := &bouncer{k: 100, g: 9.8}
	rk := NewRK45()

	x, grown, err := rk.StepAdaptive(sys, dynamo.State{0.1, 0}, nil, 0, 1e-4, 1e-3)
	if err != nil || !x.IsValid() {
		t.Fatalf("StepAdaptive: %v %v", x, err)
	}
	if grown <= 1e-4 {
		t.Errorf("loose tolerance should grow the step, got %g", grown)
	}

	_, shrunk, _ := rk.StepAdaptive(sys, dynamo.State{0.1, 0}, nil, 0, 0.2, 1e-12)
	if shrunk >= 0.2 {
		t.Errorf("tight tolerance should shrink the step, got %g", shrunk)
	}
}

func TestRK45SubdividesLongStep(t *testing.T) {
	sys := &bouncer{k: 100, g: 9.8}
	rk := NewRK45()
	rk.Tolerance = 1e-8

	// one control period long enough for a single Dormand-Prince step to miss
	const dt = 0.2
	x := rk.Step(sys, dynamo.State{0.1, 0}, nil, 0, dt)
	wantZ, wantV := sys.exact(0.1, dt)
	if math.Abs(x[0]-wantZ) > 1e-5 || math.Abs(x[1]-wantV) > 1e-4 {
		t.Errorf("got (%.8f, %.8f), want (%.8f, %.8f)", x[0], x[1], wantZ, wantV)
	}
}

// declared reports its configuration size instead of relying on the
// default split.
type declared struct {
	bouncer
	calls int
}

func (d *declared) Configuration() int {
	d.calls++
	return 1
}

func TestSecondOrderSplit(t *testing.T) {
	sys := &declared{bouncer: bouncer{k: 100, g: 9.8}}
	x := NewVerlet().Step(sys, dynamo.State{0.1, 0}, nil, 0, 0.001)
	if sys.calls != 1 {
		t.Errorf("Configuration called %d times", sys.calls)
	}
	if !x.IsValid() || x[1] >= 0 {
		t.Errorf("spring above rest should accelerate down, got %v", x)
	}
	if split(&bouncer{}, 4) != 2 {
		t.Errorf("default split of 4 channels should be 2")
	}
}

func BenchmarkRK4(b *testing.B) {
	sys := &bouncer{k: 100, g: 9.8}
	in := NewRK4()
	x := make(dynamo.State, 2)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = in.Step(sys, x, nil, 0, 0.001)
	}
}
