package optim

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/san-kum/bipedsim/internal/dynamo"
)

// Settings bound one solve.
type Settings struct {
	Method         string        `yaml:"method"`
	TorqueLimit    float64       `yaml:"torque_limit"`
	Tolerance      float64       `yaml:"tolerance"`
	MaxIterations  int           `yaml:"max_iterations"`
	MaxEvaluations int           `yaml:"max_evaluations"`
	Runtime        time.Duration `yaml:"runtime"`
	// GradientStep is the central-difference step for numeric gradients.
	GradientStep float64 `yaml:"gradient_step"`
}

func DefaultSettings() Settings {
	return Settings{
		Method:         MethodBFGS,
		TorqueLimit:    40,
		Tolerance:      1e-6,
		MaxIterations:  50,
		MaxEvaluations: 2000,
		Runtime:        250 * time.Millisecond,
		GradientStep:   1e-4,
	}
}

func (s Settings) Validate() error {
	if s.TorqueLimit <= 0 {
		return errors.Wrapf(dynamo.ErrConfiguration, "torque limit must be positive, got %g", s.TorqueLimit)
	}
	if s.Tolerance <= 0 {
		return errors.Wrapf(dynamo.ErrConfiguration, "tolerance must be positive, got %g", s.Tolerance)
	}
	if s.MaxIterations <= 0 || s.MaxEvaluations <= 0 {
		return errors.Wrap(dynamo.ErrConfiguration, "iteration and evaluation budgets must be positive")
	}
	if s.GradientStep <= 0 {
		return errors.Wrapf(dynamo.ErrConfiguration, "gradient step must be positive, got %g", s.GradientStep)
	}
	return nil
}

// Result is the outcome of one solve. X is inside the torque box even when
// the solver stopped early.
type Result struct {
	X           []float64
	F           float64
	Evaluations int
	Converged   bool
	Status      string
}

// Solver minimizes an oracle over the box [-limit, limit]^n starting at zero.
// An oracle error wrapping dynamo.ErrExternalState aborts the solve; running
// out of budget returns the best point seen with Converged false.
type Solver interface {
	Minimize(ctx context.Context, oracle CostOracle, n int, s Settings) (Result, error)
}

const (
	MethodBFGS  = "bfgs"
	MethodSLSQP = "slsqp"
)

// Methods lists the solver names NewSolver accepts in this build.
func Methods() []string {
	if slsqpAvailable {
		return []string{MethodBFGS, MethodSLSQP}
	}
	return []string{MethodBFGS}
}

func NewSolver(method string) (Solver, error) {
	switch method {
	case MethodBFGS, "":
		return &BFGS{}, nil
	case MethodSLSQP:
		return newSLSQP()
	default:
		return nil, errors.Wrapf(dynamo.ErrConfiguration, "unknown solver %q", method)
	}
}

// tracker remembers the best evaluation and the first oracle error.
type tracker struct {
	oracle CostOracle
	best   []float64
	bestF  float64
	evals  int
	err    error
}

func newTracker(oracle CostOracle, n int) *tracker {
	return &tracker{oracle: oracle, best: make([]float64, n), bestF: math.Inf(1)}
}

func (t *tracker) eval(tau []float64) float64 {
	if t.err != nil {
		return math.Inf(1)
	}
	t.evals++
	f, err := t.oracle.Cost(tau)
	if err != nil {
		t.err = err
		return math.Inf(1)
	}
	if f < t.bestF {
		t.bestF = f
		copy(t.best, tau)
	}
	return f
}

// BFGS runs gonum's quasi-Newton method on z with tau = limit*tanh(z), which
// keeps every evaluated torque strictly inside the box.
type BFGS struct{}

func (b *BFGS) Minimize(ctx context.Context, oracle CostOracle, n int, s Settings) (Result, error) {
	tr := newTracker(oracle, n)
	tau := make([]float64, n)
	toTorque := func(z []float64) []float64 {
		for i, v := range z {
			tau[i] = s.TorqueLimit * math.Tanh(v)
		}
		return tau
	}
	f := func(z []float64) float64 { return tr.eval(toTorque(z)) }

	gradSettings := &fd.Settings{Formula: fd.Central, Step: s.GradientStep}
	problem := optimize.Problem{
		Func: f,
		Grad: func(grad, z []float64) {
			fd.Gradient(grad, f, z, gradSettings)
		},
		Status: func() (optimize.Status, error) {
			if tr.err != nil {
				return optimize.Failure, tr.err
			}
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   s.Tolerance,
			Iterations: 3,
		},
		MajorIterations: s.MaxIterations,
		FuncEvaluations: s.MaxEvaluations,
		Runtime:         s.Runtime,
	}

	res, err := optimize.Minimize(problem, make([]float64, n), settings, &optimize.BFGS{})
	if tr.err != nil {
		return Result{}, tr.err
	}
	if cerr := ctx.Err(); cerr != nil {
		return Result{}, errors.Wrap(dynamo.ErrContextCanceled, cerr.Error())
	}

	out := Result{X: clampTo(tr.best, s.TorqueLimit), F: tr.bestF, Evaluations: tr.evals}
	if res != nil {
		out.Status = res.Status.String()
		out.Converged = err == nil && converged(res.Status)
	}
	if err != nil && out.Status == "" {
		out.Status = err.Error()
	}
	return out, nil
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.FunctionConvergence, optimize.GradientThreshold,
		optimize.StepConvergence, optimize.FunctionThreshold, optimize.MethodConverge:
		return true
	}
	return false
}

func clampTo(x []float64, limit float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	return dynamo.Control(out).Clamp(limit)
}

// boxGradient fills grad with a finite-difference gradient of f at x without
// evaluating f outside [-limit, limit]. The central step shrinks to the room
// left before a bound; once that room falls below a thousandth of step the
// difference turns one-sided, away from the bound.
func boxGradient(grad []float64, f func([]float64) float64, x []float64, step, limit float64) {
	base := clampTo(x, limit)
	probe := make([]float64, len(base))
	copy(probe, base)
	f0, haveF0 := 0.0, false
	for i, xi := range base {
		up, down := limit-xi, xi+limit
		if h := math.Min(step, math.Min(up, down)); h >= step*1e-3 {
			probe[i] = xi + h
			fp := f(probe)
			probe[i] = xi - h
			grad[i] = (fp - f(probe)) / (2 * h)
			probe[i] = xi
			continue
		}
		if !haveF0 {
			f0, haveF0 = f(base), true
		}
		if up >= down {
			h := math.Min(step, up)
			probe[i] = xi + h
			grad[i] = (f(probe) - f0) / h
		} else {
			h := math.Min(step, down)
			probe[i] = xi - h
			grad[i] = (f0 - f(probe)) / h
		}
		probe[i] = xi
	}
}
