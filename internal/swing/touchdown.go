package swing

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/san-kum/bipedsim/internal/apex"
	"github.com/san-kum/bipedsim/internal/dynamo"
)

// Waypoint is a foot position relative to the body center together with a
// unit direction of travel.
type Waypoint struct {
	Position  r3.Vector
	Direction r3.Vector
}

// Touchdown is the planned landing of the swing foot.
type Touchdown struct {
	Waypoint
	// ContactSpeed is the vertical body speed at touchdown.
	ContactSpeed float64
}

// ComputeTouchdown places the landing foot from the leg angles in u and
// estimates the landing velocity direction from the apex state. A landing
// height above the apex gives zero contact speed and an error wrapping
// dynamo.ErrNumericDegeneracy alongside the still-usable touchdown.
func ComputeTouchdown(s apex.State, u apex.Controls, legLength, g float64) (Touchdown, error) {
	sa, ca := math.Sincos(u.Alpha)
	sb, cb := math.Sincos(u.Beta)
	pos := r3.Vector{
		X: legLength * cb * ca,
		Y: legLength * sb,
		Z: -legLength * cb * sa,
	}

	var warn error
	drop := s.H0 + pos.Z
	if drop < 0 {
		warn = errors.Wrapf(dynamo.ErrNumericDegeneracy, "apex height %.3f below touchdown height %.3f", s.H0, -pos.Z)
		drop = 0
	}
	vz := math.Sqrt(2 * drop * g)

	dir := r3.Vector{X: -s.VX, Y: -s.VY, Z: vz}
	if n := dir.Norm(); n > 0 {
		dir = dir.Mul(1 / n)
	} else {
		dir = r3.Vector{Z: 1}
	}
	return Touchdown{Waypoint: Waypoint{Position: pos, Direction: dir}, ContactSpeed: vz}, warn
}

// mirror reflects a touchdown waypoint into the matching liftoff waypoint:
// the foot leaves as far behind the body as it landed ahead, moving upward.
func mirror(w Waypoint) Waypoint {
	return Waypoint{
		Position:  r3.Vector{X: -w.Position.X, Y: w.Position.Y, Z: w.Position.Z},
		Direction: r3.Vector{X: w.Direction.X, Y: w.Direction.Y, Z: -w.Direction.Z},
	}
}
