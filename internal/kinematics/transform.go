package kinematics

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Homogeneous 4x4 transforms. Rotations are right-handed about the named axis.

func rotX(theta float64) *mat.Dense {
	s, c := math.Sincos(theta)
	return mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, c, -s, 0,
		0, s, c, 0,
		0, 0, 0, 1,
	})
}

func rotY(theta float64) *mat.Dense {
	s, c := math.Sincos(theta)
	return mat.NewDense(4, 4, []float64{
		c, 0, s, 0,
		0, 1, 0, 0,
		-s, 0, c, 0,
		0, 0, 0, 1,
	})
}

func translate(v r3.Vector) *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		1, 0, 0, v.X,
		0, 1, 0, v.Y,
		0, 0, 1, v.Z,
		0, 0, 0, 1,
	})
}

// chain multiplies transforms left to right.
func chain(ms ...*mat.Dense) *mat.Dense {
	out := mat.NewDense(4, 4, nil)
	out.Copy(ms[0])
	for _, m := range ms[1:] {
		var next mat.Dense
		next.Mul(out, m)
		out = &next
	}
	return out
}

// apply transforms the point p by the homogeneous matrix m.
func apply(m mat.Matrix, p r3.Vector) r3.Vector {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(4, []float64{p.X, p.Y, p.Z, 1}))
	return r3.Vector{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// rigidInverse inverts a rotation+translation transform without a general solve.
func rigidInverse(m *mat.Dense) *mat.Dense {
	rot := m.Slice(0, 3, 0, 3)
	var rt mat.Dense
	rt.CloneFrom(rot.T())
	var t mat.VecDense
	t.MulVec(&rt, mat.NewVecDense(3, []float64{m.At(0, 3), m.At(1, 3), m.At(2, 3)}))
	out := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Set(i, j, rt.At(i, j))
		}
		out.Set(i, 3, -t.AtVec(i))
	}
	out.Set(3, 3, 1)
	return out
}

// RotateX rotates v about the x axis.
func RotateX(v r3.Vector, theta float64) r3.Vector {
	s, c := math.Sincos(theta)
	return r3.Vector{X: v.X, Y: c*v.Y - s*v.Z, Z: s*v.Y + c*v.Z}
}

// RotateY rotates v about the y axis.
func RotateY(v r3.Vector, theta float64) r3.Vector {
	s, c := math.Sincos(theta)
	return r3.Vector{X: c*v.X + s*v.Z, Y: v.Y, Z: -s*v.X + c*v.Z}
}

// RotateZ rotates v about the z axis.
func RotateZ(v r3.Vector, theta float64) r3.Vector {
	s, c := math.Sincos(theta)
	return r3.Vector{X: c*v.X - s*v.Y, Y: s*v.X + c*v.Y, Z: v.Z}
}
