package kinematics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/robot"
)

func TestFootPositionReference(t *testing.T) {
	g := NewWithT(t)
	geo := DefaultGeometry()

	p := geo.FootPosition(Angles{0.1, 0.2, 0.8}, robot.Left, robot.Attitude{Roll: 0.05, Pitch: -0.1})
	g.Expect(p.X).To(BeNumerically("~", -0.42199, 1e-5))
	g.Expect(p.Y).To(BeNumerically("~", 0.24580, 1e-5))
	g.Expect(p.Z).To(BeNumerically("~", -0.99248, 1e-5))
}

func TestWorldToJointReference(t *testing.T) {
	g := NewWithT(t)
	geo := DefaultGeometry()

	q, err := geo.WorldToJoint(r3.Vector{X: 0.3, Y: 0.12, Z: -0.9}, robot.Left, robot.Attitude{})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(q[0]).To(BeNumerically("~", 0.0, 1e-9))
	g.Expect(q[1]).To(BeNumerically("~", -1.10994, 1e-5))
	g.Expect(q[2]).To(BeNumerically("~", 1.41011, 1e-5))
}

func TestRoundTrip(t *testing.T) {
	geo := DefaultGeometry()
	rng := rand.New(rand.NewSource(7))
	uniform := func(lo, hi float64) float64 { return lo + (hi-lo)*rng.Float64() }

	for i := 0; i < 500; i++ {
		leg := robot.Legs[i%2]
		q := Angles{uniform(-0.5, 0.5), uniform(-0.6, 0.6), uniform(0.1, 1.8)}
		att := robot.Attitude{Roll: uniform(-0.3, 0.3), Pitch: uniform(-0.3, 0.3)}

		p := geo.FootPosition(q, leg, att)
		got, err := geo.WorldToJoint(p, leg, att)
		if err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
		for k := range q {
			if math.Abs(got[k]-q[k]) > 1e-6 {
				t.Fatalf("sample %d (%v, %+v): joint %d got %.8f want %.8f", i, leg, att, k, got[k], q[k])
			}
		}
	}
}

func TestCartesianRoundTrip(t *testing.T) {
	geo := DefaultGeometry()
	solved, refused := 0, 0
	for _, leg := range robot.Legs {
		for _, att := range []robot.Attitude{{}, {Roll: 0.2, Pitch: -0.15}} {
			for i := -19; i <= 19; i++ {
				for j := -9; j <= 9; j++ {
					for k := -19; k <= 19; k++ {
						if k == 0 {
							continue
						}
						local := r3.Vector{X: 0.05 * float64(i), Y: 0.1 * float64(j), Z: 0.05 * float64(k)}
						reach := local.Norm() / geo.LegLength
						if reach < 0.05 || reach > 0.98 {
							continue
						}
						p := geo.FootPosition(Angles{}, leg, att).
							Sub(RotateX(RotateY(r3.Vector{Z: -geo.LegLength}, att.Pitch), att.Roll)).
							Add(RotateX(RotateY(local, att.Pitch), att.Roll))

						q, err := geo.WorldToJoint(p, leg, att)
						if k > 0 {
							if !errors.Is(err, dynamo.ErrNumericDegeneracy) {
								t.Fatalf("%v %+v hip-frame %v: expected degeneracy, got %v", leg, att, local, err)
							}
							refused++
							continue
						}
						if err != nil {
							t.Fatalf("%v %+v hip-frame %v: %v", leg, att, local, err)
						}
						if miss := geo.FootPosition(q, leg, att).Sub(p).Norm(); miss > 1e-9 {
							t.Fatalf("%v %+v hip-frame %v: foot misses target by %g", leg, att, local, miss)
						}
						solved++
					}
				}
			}
		}
	}
	if solved == 0 || refused == 0 {
		t.Fatalf("grid too narrow: %d solved, %d refused", solved, refused)
	}
}

func TestWorldToJointDegenerate(t *testing.T) {
	geo := DefaultGeometry()
	tests := []struct {
		name string
		p    r3.Vector
	}{
		{"beyond reach", r3.Vector{X: 0.2, Y: 0.12, Z: -1.5}},
		{"far below", r3.Vector{X: 0, Y: 0.12, Z: -3}},
		{"on the hip", r3.Vector{X: 0, Y: 0.12, Z: -0.2}},
		{"above the hip plane", r3.Vector{X: 0.3, Y: 0.3, Z: 0.1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := geo.WorldToJoint(tt.p, robot.Left, robot.Attitude{})
			if !errors.Is(err, dynamo.ErrNumericDegeneracy) {
				t.Fatalf("expected numeric degeneracy, got %v", err)
			}
			for _, v := range q {
				if math.IsNaN(v) {
					t.Error("NaN returned alongside error")
				}
			}
		})
	}
}

func TestClampedWorldToJoint(t *testing.T) {
	g := NewWithT(t)
	geo := DefaultGeometry()

	far := r3.Vector{X: 0.4, Y: -0.12, Z: -1.6}
	q, clamped, err := geo.ClampedWorldToJoint(far, robot.Right, robot.Attitude{})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(clamped).To(BeTrue())

	reach := geo.FootInHip(q).Norm()
	g.Expect(reach).To(BeNumerically("~", MaxReach*geo.LegLength, 1e-9))

	foot := geo.FootInBody(q, robot.Right).Sub(geo.Hip(robot.Right))
	dir := far.Sub(geo.Hip(robot.Right)).Normalize()
	g.Expect(foot.Normalize().Dot(dir)).To(BeNumerically("~", 1, 1e-9))

	near := r3.Vector{X: 0.1, Y: -0.12, Z: -0.9}
	q, clamped, err = geo.ClampedWorldToJoint(near, robot.Right, robot.Attitude{})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(clamped).To(BeFalse())
	exact, err := geo.WorldToJoint(near, robot.Right, robot.Attitude{})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(q).To(Equal(exact))

	high := r3.Vector{X: 0.3, Y: -0.4, Z: 0.2}
	q, clamped, err = geo.ClampedWorldToJoint(high, robot.Right, robot.Attitude{})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(clamped).To(BeTrue())
	local := geo.FootInHip(q)
	g.Expect(local.Z).To(BeNumerically("~", -HipClearance*geo.LegLength, 1e-9))
	g.Expect(local.X).To(BeNumerically("~", 0.3, 1e-9))
	g.Expect(local.Y).To(BeNumerically("~", -0.28, 1e-9))

	_, _, err = geo.ClampedWorldToJoint(geo.Hip(robot.Right), robot.Right, robot.Attitude{})
	g.Expect(errors.Is(err, dynamo.ErrNumericDegeneracy)).To(BeTrue())
}

func TestFootJacobian(t *testing.T) {
	geo := DefaultGeometry()
	q := Angles{0.05, -0.3, 0.9}
	dq := Angles{1e-4, -2e-4, 3e-4}

	jac := geo.FootJacobian(q, robot.Left)
	predicted := r3.Vector{
		X: jac.At(0, 0)*dq[0] + jac.At(0, 1)*dq[1] + jac.At(0, 2)*dq[2],
		Y: jac.At(1, 0)*dq[0] + jac.At(1, 1)*dq[1] + jac.At(1, 2)*dq[2],
		Z: jac.At(2, 0)*dq[0] + jac.At(2, 1)*dq[1] + jac.At(2, 2)*dq[2],
	}
	actual := geo.FootInBody(q.Add(dq), robot.Left).Sub(geo.FootInBody(q, robot.Left))
	if d := predicted.Sub(actual).Norm(); d > 1e-7 {
		t.Errorf("linearization error %g", d)
	}
}
