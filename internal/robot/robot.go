// Package robot defines how the gait controller sees a biped: leg and joint
// identity, and the Handle through which state is read and torques written.
package robot

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// Leg identifies one side of the robot.
type Leg int

const (
	Left Leg = iota
	Right
)

// Other returns the opposite leg.
func (l Leg) Other() Leg {
	if l == Left {
		return Right
	}
	return Left
}

// Side is +1 for the left leg and -1 for the right; it multiplies lateral offsets.
func (l Leg) Side() float64 {
	if l == Left {
		return 1
	}
	return -1
}

func (l Leg) String() string {
	switch l {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("leg(%d)", int(l))
	}
}

// Legs lists both legs in index order.
var Legs = [2]Leg{Left, Right}

// Joint indexes one of the six actuated joints. Each leg has a hip roll (A),
// hip pitch (B) and knee (C) joint.
type Joint int

const (
	LeftHipRoll Joint = iota
	LeftHipPitch
	LeftKnee
	RightHipRoll
	RightHipPitch
	RightKnee
)

// NumJoints is the number of actuated joints.
const NumJoints = 6

// LegJoints returns the three joints of leg in (roll, pitch, knee) order.
func LegJoints(leg Leg) [3]Joint {
	base := Joint(3 * int(leg))
	return [3]Joint{base, base + 1, base + 2}
}

func (j Joint) Leg() Leg { return Leg(int(j) / 3) }

func (j Joint) String() string {
	names := [...]string{"hip_roll", "hip_pitch", "knee"}
	if j < 0 || j >= NumJoints {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return j.Leg().String() + "_" + names[int(j)%3]
}

// Attitude is the base orientation as roll, pitch and yaw in radians.
type Attitude struct {
	Roll, Pitch, Yaw float64
}

// Vector returns the attitude as (roll, pitch, yaw).
func (a Attitude) Vector() r3.Vector {
	return r3.Vector{X: a.Roll, Y: a.Pitch, Z: a.Yaw}
}

// Contact is a foot touching the ground.
type Contact struct {
	Leg         Leg
	Position    r3.Vector
	NormalForce float64
}

// Snapshot is an opaque token for a saved simulation state.
type Snapshot int

// Handle is the physics provider driven by the controller. It is owned by a
// single control loop; implementations need not be safe for concurrent use.
type Handle interface {
	BasePose() (r3.Vector, Attitude)
	// BaseVelocity returns world-frame linear and angular velocity.
	BaseVelocity() (linear, angular r3.Vector)
	JointState(j Joint) (q, dq float64)
	Contacts() []Contact
	SetJointTorque(j Joint, tau float64)
	// ResetJointState overwrites a joint position and velocity directly.
	ResetJointState(j Joint, q, dq float64)

	SaveState() (Snapshot, error)
	RestoreState(s Snapshot) error
	DiscardState(s Snapshot)

	// Step advances the simulation by TimeStep using the torques last set.
	Step() error
	TimeStep() float64
}

// InContact reports whether leg appears in contacts.
func InContact(contacts []Contact, leg Leg) bool {
	for _, c := range contacts {
		if c.Leg == leg {
			return true
		}
	}
	return false
}

// LegState reads the three joint positions and velocities of leg.
func LegState(h Handle, leg Leg) (q, dq [3]float64) {
	for i, j := range LegJoints(leg) {
		q[i], dq[i] = h.JointState(j)
	}
	return q, dq
}
