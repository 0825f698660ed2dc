package physics

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/robot"
)

type snapshot struct {
	x   dynamo.State
	tau [robot.NumJoints]float64
	t   float64
}

func (b *Biped) BasePose() (r3.Vector, robot.Attitude) {
	return r3.Vector{X: b.x[basePos], Y: b.x[basePos+1], Z: b.x[basePos+2]}, attitudeOf(b.x)
}

func (b *Biped) BaseVelocity() (r3.Vector, r3.Vector) {
	return r3.Vector{X: b.x[baseLin], Y: b.x[baseLin+1], Z: b.x[baseLin+2]},
		r3.Vector{X: b.x[baseAng], Y: b.x[baseAng+1], Z: b.x[baseAng+2]}
}

func (b *Biped) JointState(j robot.Joint) (float64, float64) {
	return b.x[jointPos+int(j)], b.x[jointVel+int(j)]
}

// FootPosition returns the world position of a foot.
func (b *Biped) FootPosition(leg robot.Leg) r3.Vector {
	return b.footAt(b.x, leg)
}

// Contacts lists the feet below the ground plane with their normal force.
func (b *Biped) Contacts() []robot.Contact {
	var out []robot.Contact
	for _, leg := range robot.Legs {
		p, v := b.footMotion(b.x, leg)
		if p.Z >= 0 {
			continue
		}
		out = append(out, robot.Contact{
			Leg:         leg,
			Position:    p,
			NormalForce: b.cfg.Ground.contactForce(p, v).Z,
		})
	}
	return out
}

// Grounded reports whether either foot is below the ground plane in state x.
func (b *Biped) Grounded(x dynamo.State) bool {
	for _, leg := range robot.Legs {
		if b.footAt(x, leg).Z < 0 {
			return true
		}
	}
	return false
}

func (b *Biped) SetJointTorque(j robot.Joint, tau float64) { b.tau[j] = tau }

func (b *Biped) ResetJointState(j robot.Joint, q, dq float64) {
	b.x[jointPos+int(j)] = q
	b.x[jointVel+int(j)] = dq
}

func (b *Biped) SaveState() (robot.Snapshot, error) {
	b.next++
	s := snapshot{x: b.pool.GetAndCopy(b.x), t: b.t}
	copy(s.tau[:], b.tau)
	b.snapshots[b.next] = s
	return b.next, nil
}

func (b *Biped) RestoreState(id robot.Snapshot) error {
	s, ok := b.snapshots[id]
	if !ok {
		return errors.Errorf("unknown snapshot %d", id)
	}
	copy(b.x, s.x)
	copy(b.tau, s.tau[:])
	b.t = s.t
	return nil
}

func (b *Biped) DiscardState(id robot.Snapshot) {
	if s, ok := b.snapshots[id]; ok {
		b.pool.Put(s.x)
		delete(b.snapshots, id)
	}
}

// Step integrates one TimeStep in Config.Substeps equal parts with the
// torques last set.
func (b *Biped) Step() error {
	h := b.cfg.Dt / float64(b.cfg.Substeps)
	x := b.x
	for i := 0; i < b.cfg.Substeps; i++ {
		x = b.integ.Step(b, x, b.tau, b.t+float64(i)*h, h)
	}
	if !x.IsValid() {
		return &dynamo.SimulationError{
			Time:    b.t,
			State:   b.x.Clone(),
			Wrapped: errors.Wrap(dynamo.ErrInvalidState, "biped state diverged"),
		}
	}
	copy(b.x, x)
	b.t += b.cfg.Dt
	return nil
}

func (b *Biped) TimeStep() float64 { return b.cfg.Dt }

var _ robot.Handle = (*Biped)(nil)
