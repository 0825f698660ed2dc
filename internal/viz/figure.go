package viz

import (
	"github.com/golang/geo/r3"

	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/kinematics"
	"github.com/san-kum/bipedsim/internal/robot"
)

// Skeleton is the stick figure of the robot in world coordinates.
type Skeleton struct {
	Body r3.Vector
	Head r3.Vector
	Hip  [2]r3.Vector
	Knee [2]r3.Vector
	Foot [2]r3.Vector
}

// NewSkeleton places the figure for a full robot state vector.
func NewSkeleton(x dynamo.State, geo kinematics.Geometry) Skeleton {
	var sk Skeleton
	if len(x) < robot.StateDim {
		return sk
	}
	pos := r3.Vector{X: x[robot.StatePosition], Y: x[robot.StatePosition+1], Z: x[robot.StatePosition+2]}
	att := robot.Attitude{Roll: x[robot.StateAttitude], Pitch: x[robot.StateAttitude+1], Yaw: x[robot.StateAttitude+2]}
	world := func(v r3.Vector) r3.Vector {
		return pos.Add(kinematics.RotateZ(kinematics.RotateX(kinematics.RotateY(v, att.Pitch), att.Roll), att.Yaw))
	}

	sk.Body = pos
	sk.Head = world(r3.Vector{Z: geo.HipDrop})
	for _, leg := range robot.Legs {
		var q kinematics.Angles
		for i, j := range robot.LegJoints(leg) {
			q[i] = x[robot.StateJoints+int(j)]
		}
		hip := geo.Hip(leg)
		knee := kinematics.RotateX(kinematics.RotateY(r3.Vector{Z: -geo.LegLength / 2}, q[1]), q[0])
		sk.Hip[leg] = world(hip)
		sk.Knee[leg] = world(hip.Add(knee))
		sk.Foot[leg] = world(geo.FootInBody(q, leg))
	}
	return sk
}

// Wireframe converts the figure to camera space centred on focus, viewed
// from the robot's right side, with a strip of ground under it.
func (sk Skeleton) Wireframe(focus r3.Vector) *Wireframe {
	view := func(p r3.Vector) r3.Vector {
		d := p.Sub(focus)
		return r3.Vector{X: d.X, Y: d.Z, Z: -d.Y}
	}
	w := NewWireframe()
	w.AddEdge(view(sk.Body), view(sk.Head))
	w.AddEdge(view(sk.Hip[robot.Left]), view(sk.Hip[robot.Right]))
	for _, leg := range robot.Legs {
		w.AddEdge(view(sk.Body), view(sk.Hip[leg]))
		w.AddEdge(view(sk.Hip[leg]), view(sk.Knee[leg]))
		w.AddEdge(view(sk.Knee[leg]), view(sk.Foot[leg]))
	}
	ground := r3.Vector{X: focus.X, Y: focus.Y}
	w.AddEdge(view(ground.Add(r3.Vector{X: -1.5})), view(ground.Add(r3.Vector{X: 1.5})))
	return w
}

// DrawRobot renders state onto c as seen by cam, following the body.
func DrawRobot(c *Canvas, cam *Camera, x dynamo.State, geo kinematics.Geometry) {
	sk := NewSkeleton(x, geo)
	focus := r3.Vector{X: sk.Body.X, Y: sk.Body.Y, Z: geo.LegLength / 2}
	Render3D(c, sk.Wireframe(focus), cam)
}
