// Package dynamo provides the shared primitives of the running-gait
// simulation.
//
// The package defines the vocabulary every other package speaks:
//
//   - [State]: flat vector of generalized coordinates and velocities
//   - [System]: ODE right-hand side (dX/dt = f(X, u, t))
//   - [Integrator]: fixed-step numerical integrator
//   - [Metric], [Observer]: per-tick hooks used by the simulator
//   - the error taxonomy shared by the controller components
//
// # Error classes
//
// Configuration and external-state errors abort a run. Numeric degeneracy
// and optimizer non-convergence are recovered locally and surface as
// warnings. Use [IsFatal] to tell them apart.
package dynamo
