// Package gait is the running controller: a two-phase state machine that
// plans each flight from the measured apex and tracks a spring-mass stance
// with optimized joint torques.
package gait

import (
	"fmt"

	"github.com/san-kum/bipedsim/internal/robot"
)

// Phase is the contact state of the gait.
type Phase int

const (
	// Air is flight: both legs track their swing curves.
	Air Phase = iota
	// Ground is stance on the landing leg.
	Ground
)

func (p Phase) String() string {
	switch p {
	case Air:
		return "air"
	case Ground:
		return "ground"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// LandingLeg returns the leg that touches down at the end of the flight of
// cycle: the left leg on odd cycles, the right on even ones.
func LandingLeg(cycle int) robot.Leg {
	if cycle%2 == 1 {
		return robot.Left
	}
	return robot.Right
}
