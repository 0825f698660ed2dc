package gait

import "github.com/san-kum/bipedsim/internal/robot"

// StanceStatus is what a LiftoffPolicy sees on each ground tick.
type StanceStatus struct {
	Cycle    int
	Stance   robot.Leg
	Elapsed  float64
	Duration float64
	Contacts []robot.Contact
}

// LiftoffPolicy decides when a stance ends.
type LiftoffPolicy interface {
	Liftoff(s StanceStatus) bool
}

// LiftoffFunc adapts a function to LiftoffPolicy.
type LiftoffFunc func(s StanceStatus) bool

func (f LiftoffFunc) Liftoff(s StanceStatus) bool { return f(s) }

// NeverLiftoff keeps the robot in stance once it has landed.
type NeverLiftoff struct{}

func (NeverLiftoff) Liftoff(StanceStatus) bool { return false }

// StanceElapsed lifts off once the planned stance time has passed and the
// stance foot has left the ground.
type StanceElapsed struct{}

func (StanceElapsed) Liftoff(s StanceStatus) bool {
	return s.Elapsed >= s.Duration && !robot.InContact(s.Contacts, s.Stance)
}

const (
	LiftoffNever   = "never"
	LiftoffElapsed = "stance-elapsed"
)

// LiftoffPolicyByName maps a configuration name to a policy.
func LiftoffPolicyByName(name string) (LiftoffPolicy, bool) {
	switch name {
	case LiftoffNever, "":
		return NeverLiftoff{}, true
	case LiftoffElapsed:
		return StanceElapsed{}, true
	}
	return nil, false
}
