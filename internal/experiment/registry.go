package experiment

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/integrators"
	"github.com/san-kum/bipedsim/internal/optim"
)

// Registry resolves the integrator and torque solver names used in
// configuration files.
type Registry struct {
	integrators map[string]func() dynamo.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
	}
	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }
	r.integrators["verlet"] = func() dynamo.Integrator { return integrators.NewVerlet() }
	r.integrators["leapfrog"] = func() dynamo.Integrator { return integrators.NewLeapfrog() }
	return r
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, errors.Wrapf(dynamo.ErrConfiguration, "unknown integrator %q", name)
	}
	return fn(), nil
}

func (r *Registry) GetSolver(method string) (optim.Solver, error) {
	return optim.NewSolver(method)
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListSolvers() []string { return optim.Methods() }
