package physics

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/kinematics"
	"github.com/san-kum/bipedsim/internal/robot"
)

// State layout matches robot.ReadState: base position, roll/pitch/yaw, six
// joint angles, then the rates of all twelve in the same order.
const (
	StateDim = robot.StateDim

	basePos  = robot.StatePosition
	baseAtt  = robot.StateAttitude
	jointPos = robot.StateJoints
	baseLin  = robot.StateLinear
	baseAng  = robot.StateAngular
	jointVel = robot.StateJointRates

	footRateStep = 1e-6
)

// Biped is the floating-base stand-in robot.
type Biped struct {
	cfg     Config
	inertia r3.Vector
	integ   dynamo.Integrator

	x   dynamo.State
	tau dynamo.Control
	t   float64

	pool      *dynamo.StatePool
	snapshots map[robot.Snapshot]snapshot
	next      robot.Snapshot
}

func NewBiped(cfg Config, integ dynamo.Integrator) (*Biped, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if integ == nil {
		return nil, errors.Wrap(dynamo.ErrConfiguration, "nil integrator")
	}
	b := &Biped{
		cfg:       cfg,
		inertia:   BoxInertia(cfg.BodySize, cfg.Mass),
		integ:     integ,
		x:         make(dynamo.State, StateDim),
		tau:       make(dynamo.Control, robot.NumJoints),
		pool:      dynamo.NewStatePool(StateDim),
		snapshots: make(map[robot.Snapshot]snapshot),
	}
	b.Reset(DefaultInitial())
	return b, nil
}

// Reset places the robot at rest pose init with zero torques and time.
func (b *Biped) Reset(init Initial) {
	for i := range b.x {
		b.x[i] = 0
	}
	b.x[basePos+2] = init.Height
	b.x[baseLin] = init.Velocity.X
	b.x[baseLin+1] = init.Velocity.Y
	b.x[baseLin+2] = init.Velocity.Z
	for _, leg := range robot.Legs {
		for i, j := range robot.LegJoints(leg) {
			b.x[jointPos+int(j)] = init.Joints[i]
		}
	}
	for i := range b.tau {
		b.tau[i] = 0
	}
	b.t = 0
}

func (b *Biped) Config() Config { return b.cfg }

func (b *Biped) StateDim() int   { return StateDim }
func (b *Biped) ControlDim() int { return robot.NumJoints }

// Configuration is the number of position channels; their rates follow.
func (b *Biped) Configuration() int { return StateDim / 2 }

// State returns a copy of the full state vector.
func (b *Biped) State() dynamo.State { return b.x.Clone() }

// SetState overwrites the full state vector.
func (b *Biped) SetState(x dynamo.State) error {
	if len(x) != StateDim {
		return errors.Wrapf(dynamo.ErrDimensionMismatch, "state has %d entries, want %d", len(x), StateDim)
	}
	copy(b.x, x)
	return nil
}

// Torques returns the torques applied by the next Step.
func (b *Biped) Torques() dynamo.Control {
	out := make(dynamo.Control, len(b.tau))
	copy(out, b.tau)
	return out
}

func (b *Biped) Time() float64 { return b.t }

func attitudeOf(pos []float64) robot.Attitude {
	return robot.Attitude{Roll: pos[baseAtt], Pitch: pos[baseAtt+1], Yaw: pos[baseAtt+2]}
}

func anglesOf(pos []float64, leg robot.Leg) kinematics.Angles {
	var q kinematics.Angles
	for i, j := range robot.LegJoints(leg) {
		q[i] = pos[jointPos+int(j)]
	}
	return q
}

// toWorld rotates a body-frame vector into the world frame.
func toWorld(v r3.Vector, att robot.Attitude) r3.Vector {
	return kinematics.RotateZ(kinematics.RotateX(kinematics.RotateY(v, att.Pitch), att.Roll), att.Yaw)
}

func toBody(v r3.Vector, att robot.Attitude) r3.Vector {
	return kinematics.RotateY(kinematics.RotateX(kinematics.RotateZ(v, -att.Yaw), -att.Roll), -att.Pitch)
}

// footAt returns the world position of a foot for the first twelve state
// entries in pos.
func (b *Biped) footAt(pos []float64, leg robot.Leg) r3.Vector {
	base := r3.Vector{X: pos[basePos], Y: pos[basePos+1], Z: pos[basePos+2]}
	local := b.cfg.Geometry.FootInBody(anglesOf(pos, leg), leg)
	return base.Add(toWorld(local, attitudeOf(pos)))
}

// footMotion returns the world position and velocity of a foot.
func (b *Biped) footMotion(x dynamo.State, leg robot.Leg) (r3.Vector, r3.Vector) {
	var plus, minus [12]float64
	for i := 0; i < 12; i++ {
		plus[i] = x[i] + footRateStep*x[12+i]
		minus[i] = x[i] - footRateStep*x[12+i]
	}
	vel := b.footAt(plus[:], leg).Sub(b.footAt(minus[:], leg)).Mul(1 / (2 * footRateStep))
	return b.footAt(x, leg), vel
}

// contactForce is the ground reaction on a foot at p moving at v.
func (g Ground) contactForce(p, v r3.Vector) r3.Vector {
	depth := -p.Z
	if depth <= 0 {
		return r3.Vector{}
	}
	fn := math.Max(0, g.Stiffness*depth-g.Damping*v.Z)
	ft := r3.Vector{X: -g.Viscosity * v.X, Y: -g.Viscosity * v.Y}
	if limit := g.Friction * fn; ft.Norm() > limit {
		if n := ft.Norm(); n > 0 {
			ft = ft.Mul(limit / n)
		}
	}
	return r3.Vector{X: ft.X, Y: ft.Y, Z: fn}
}

func (b *Biped) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	dx := make(dynamo.State, StateDim)
	copy(dx[:12], x[12:])

	att := attitudeOf(x)
	base := r3.Vector{X: x[basePos], Y: x[basePos+1], Z: x[basePos+2]}
	omega := r3.Vector{X: x[baseAng], Y: x[baseAng+1], Z: x[baseAng+2]}

	force := r3.Vector{Z: -b.cfg.Mass * b.cfg.Gravity}
	torque := omega.Mul(-b.cfg.AngularDamping)

	for _, leg := range robot.Legs {
		joints := robot.LegJoints(leg)
		q := anglesOf(x, leg)
		var tau [3]float64
		for i, j := range joints {
			if int(j) < len(u) {
				tau[i] = u[j]
			}
		}

		// hip motors push back on the body about the roll axis and the
		// rolled pitch axis
		react := r3.Vector{X: -tau[0]}.Add(kinematics.RotateX(r3.Vector{Y: 1}, q[0]).Mul(-tau[1]))
		torque = torque.Add(toWorld(react, att))

		foot, vel := b.footMotion(x, leg)
		f := b.cfg.Ground.contactForce(foot, vel)
		var gen [3]float64
		if f != (r3.Vector{}) {
			force = force.Add(f)
			torque = torque.Add(foot.Sub(base).Cross(f))

			fb := toBody(f, att)
			var g mat.VecDense
			g.MulVec(b.cfg.Geometry.FootJacobian(q, leg).T(), mat.NewVecDense(3, []float64{fb.X, fb.Y, fb.Z}))
			for i := range gen {
				gen[i] = g.AtVec(i)
			}
		}

		for i, j := range joints {
			dq := x[jointVel+int(j)]
			dx[jointVel+int(j)] = (tau[i] - b.cfg.JointDamping*dq + gen[i]) / b.cfg.JointInertia
		}
	}

	acc := force.Mul(1 / b.cfg.Mass)
	dx[baseLin], dx[baseLin+1], dx[baseLin+2] = acc.X, acc.Y, acc.Z

	tb := toBody(torque, att)
	alpha := toWorld(r3.Vector{X: tb.X / b.inertia.X, Y: tb.Y / b.inertia.Y, Z: tb.Z / b.inertia.Z}, att)
	dx[baseAng], dx[baseAng+1], dx[baseAng+2] = alpha.X, alpha.Y, alpha.Z
	return dx
}

var _ dynamo.System = (*Biped)(nil)
