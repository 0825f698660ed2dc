// Package robottest provides a scripted robot.Handle for tests.
package robottest

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/san-kum/bipedsim/internal/robot"
)

type state struct {
	position        r3.Vector
	attitude        robot.Attitude
	linear, angular r3.Vector
	q, dq, torque   [robot.NumJoints]float64
	time            float64
}

// Handle is an in-memory robot. Step integrates each joint as a unit-free
// double integrator (dq += tau/Inertia*dt) and applies BaseResponse to the
// base velocities. Contacts come from ContactFn.
type Handle struct {
	Position r3.Vector
	Attitude robot.Attitude
	Linear   r3.Vector
	Angular  r3.Vector
	Q, DQ    [robot.NumJoints]float64
	Torque   [robot.NumJoints]float64
	Time     float64

	Dt      float64
	Inertia float64

	// BaseResponse maps the applied torques to base linear and angular
	// accelerations. Nil leaves the base velocities untouched.
	BaseResponse func(tau [robot.NumJoints]float64) (linear, angular r3.Vector)
	ContactFn    func(h *Handle) []robot.Contact

	SaveErr, RestoreErr, StepErr error

	Steps, Saves, Restores, Discards int
	Resets                           []robot.Joint

	snapshots map[robot.Snapshot]state
	next      robot.Snapshot
}

// New returns a handle at rest with a 1 ms step and unit joint inertia.
func New() *Handle {
	return &Handle{
		Dt:        0.001,
		Inertia:   1,
		snapshots: make(map[robot.Snapshot]state),
	}
}

func (h *Handle) BasePose() (r3.Vector, robot.Attitude) { return h.Position, h.Attitude }

func (h *Handle) BaseVelocity() (r3.Vector, r3.Vector) { return h.Linear, h.Angular }

func (h *Handle) JointState(j robot.Joint) (float64, float64) { return h.Q[j], h.DQ[j] }

func (h *Handle) Contacts() []robot.Contact {
	if h.ContactFn == nil {
		return nil
	}
	return h.ContactFn(h)
}

func (h *Handle) SetJointTorque(j robot.Joint, tau float64) { h.Torque[j] = tau }

func (h *Handle) ResetJointState(j robot.Joint, q, dq float64) {
	h.Q[j], h.DQ[j] = q, dq
	h.Resets = append(h.Resets, j)
}

func (h *Handle) SaveState() (robot.Snapshot, error) {
	if h.SaveErr != nil {
		return 0, h.SaveErr
	}
	h.Saves++
	h.next++
	h.snapshots[h.next] = state{
		position: h.Position, attitude: h.Attitude,
		linear: h.Linear, angular: h.Angular,
		q: h.Q, dq: h.DQ, torque: h.Torque, time: h.Time,
	}
	return h.next, nil
}

func (h *Handle) RestoreState(s robot.Snapshot) error {
	if h.RestoreErr != nil {
		return h.RestoreErr
	}
	st, ok := h.snapshots[s]
	if !ok {
		return errors.Errorf("unknown snapshot %d", s)
	}
	h.Restores++
	h.Position, h.Attitude = st.position, st.attitude
	h.Linear, h.Angular = st.linear, st.angular
	h.Q, h.DQ, h.Torque, h.Time = st.q, st.dq, st.torque, st.time
	return nil
}

func (h *Handle) DiscardState(s robot.Snapshot) {
	h.Discards++
	delete(h.snapshots, s)
}

// Live reports how many snapshots have not been discarded.
func (h *Handle) Live() int { return len(h.snapshots) }

func (h *Handle) Step() error {
	if h.StepErr != nil {
		return h.StepErr
	}
	if h.BaseResponse != nil {
		lin, ang := h.BaseResponse(h.Torque)
		h.Linear = h.Linear.Add(lin.Mul(h.Dt))
		h.Angular = h.Angular.Add(ang.Mul(h.Dt))
	}
	h.Position = h.Position.Add(h.Linear.Mul(h.Dt))
	for i := range h.Q {
		h.DQ[i] += h.Torque[i] / h.Inertia * h.Dt
		h.Q[i] += h.DQ[i] * h.Dt
	}
	h.Time += h.Dt
	h.Steps++
	return nil
}

func (h *Handle) TimeStep() float64 { return h.Dt }

var _ robot.Handle = (*Handle)(nil)
