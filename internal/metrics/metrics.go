// Package metrics summarises a run of the biped from its flat state trace.
package metrics

import "github.com/san-kum/bipedsim/internal/dynamo"

// Standard returns the metrics recorded on every run. limit is the joint
// torque limit and stance tells loaded ticks from flight.
func Standard(mass, gravity, target, limit float64, stance StancePredicate) []dynamo.Metric {
	return []dynamo.Metric{
		NewControlEffort(limit),
		NewTorqueSaturation(limit, stance),
		NewUpright(0.5, 0.5),
		NewEnergy(mass, gravity),
		NewEnergyDrift(mass, gravity),
		NewForwardSpeed(),
		NewSpeedError(target),
		NewApexHeight(),
	}
}
