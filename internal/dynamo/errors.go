package dynamo

import (
	"fmt"

	"github.com/pkg/errors"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrContextCanceled indicates the simulation was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")

	// ErrDimensionMismatch indicates mismatched state/control dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrConfiguration indicates unusable static configuration: a missing or
	// malformed table, or a target velocity outside the table range.
	ErrConfiguration = errors.New("dynamo: configuration error")

	// ErrNumericDegeneracy indicates a computation with no finite answer,
	// such as an unreachable inverse-kinematics target.
	ErrNumericDegeneracy = errors.New("dynamo: numeric degeneracy")

	// ErrNonconvergence indicates the torque solver stopped before meeting
	// its tolerance. The best-found solution is still usable.
	ErrNonconvergence = errors.New("dynamo: optimization did not converge")

	// ErrExternalState indicates the physics provider failed to save,
	// restore or step.
	ErrExternalState = errors.New("dynamo: external state fault")
)

// IsFatal reports whether err must abort the control loop.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrExternalState) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrContextCanceled)
}

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
