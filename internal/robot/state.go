package robot

import "github.com/san-kum/bipedsim/internal/dynamo"

// Offsets into the flat state vector produced by ReadState. Base angular
// velocity is stored as attitude rates.
const (
	StatePosition   = 0
	StateAttitude   = 3
	StateJoints     = 6
	StateLinear     = 12
	StateAngular    = 15
	StateJointRates = 18
	StateDim        = 24
)

// ReadState flattens everything h exposes about the robot into one vector.
func ReadState(h Handle) dynamo.State {
	x := make(dynamo.State, StateDim)
	pos, att := h.BasePose()
	lin, ang := h.BaseVelocity()
	x[StatePosition], x[StatePosition+1], x[StatePosition+2] = pos.X, pos.Y, pos.Z
	x[StateAttitude], x[StateAttitude+1], x[StateAttitude+2] = att.Roll, att.Pitch, att.Yaw
	x[StateLinear], x[StateLinear+1], x[StateLinear+2] = lin.X, lin.Y, lin.Z
	x[StateAngular], x[StateAngular+1], x[StateAngular+2] = ang.X, ang.Y, ang.Z
	for j := Joint(0); j < NumJoints; j++ {
		x[StateJoints+int(j)], x[StateJointRates+int(j)] = h.JointState(j)
	}
	return x
}
