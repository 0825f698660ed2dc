package dynamo

import (
	"math"
	"testing"

	"github.com/pkg/errors"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Arithmetic(t *testing.T) {
	a := State{1, 2, 3}
	b := State{4, 5, 6}

	sum := a.Add(b)
	if sum[0] != 5 || sum[1] != 7 || sum[2] != 9 {
		t.Errorf("Add failed: got %v", sum)
	}

	diff := b.Sub(a)
	if diff[0] != 3 || diff[1] != 3 || diff[2] != 3 {
		t.Errorf("Sub failed: got %v", diff)
	}

	scaled := a.Scale(2)
	if scaled[0] != 2 || scaled[1] != 4 || scaled[2] != 6 {
		t.Errorf("Scale failed: got %v", scaled)
	}

	if got := (State{3, 4}).Norm(); math.Abs(got-5) > 1e-12 {
		t.Errorf("Norm = %v, want 5", got)
	}
}

func TestControl_Clamp(t *testing.T) {
	u := Control{-100, -40, 0, 39.9, 40, 1e9}
	u.Clamp(40)
	want := Control{-40, -40, 0, 39.9, 40, 40}
	for i := range want {
		if u[i] != want[i] {
			t.Errorf("u[%d] = %v, want %v", i, u[i], want[i])
		}
	}
}

func TestStatePool(t *testing.T) {
	pool := NewStatePool(4)

	s1 := pool.Get()
	if len(s1) != 4 {
		t.Errorf("Pool returned wrong size: %d", len(s1))
	}

	s1[0] = 1.0
	pool.Put(s1)

	s2 := pool.Get()
	if s2[0] != 0 {
		t.Error("Pool did not reset state")
	}

	src := State{1, 2, 3, 4}
	cp := pool.GetAndCopy(src)
	cp[0] = 99
	if src[0] == 99 {
		t.Error("GetAndCopy did not create independent copy")
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"nil", nil, false},
		{"configuration", errors.Wrap(ErrConfiguration, "target 9 m/s"), true},
		{"external", errors.Wrapf(ErrExternalState, "restore %d", 3), true},
		{"degenerate", errors.Wrap(ErrNumericDegeneracy, "ik"), false},
		{"nonconvergence", ErrNonconvergence, false},
		{"wrapped in simulation error", &SimulationError{Step: 2, Wrapped: ErrExternalState}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.fatal {
				t.Errorf("IsFatal(%v) = %v, want %v", tt.err, got, tt.fatal)
			}
		})
	}
}

func TestSimulationError(t *testing.T) {
	err := &SimulationError{Time: 1.5, Step: 150, Wrapped: ErrNumericDegeneracy}
	expected := "step 150 (t=1.5000): dynamo: numeric degeneracy"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, ErrNumericDegeneracy) {
		t.Error("SimulationError does not unwrap")
	}
}
