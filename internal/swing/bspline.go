package swing

import (
	"github.com/pkg/errors"

	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/kinematics"
)

// Curve is a clamped B-spline in joint space over the parameter range [0, 1].
type Curve struct {
	degree int
	knots  []float64
	ctrl   []kinematics.Angles
	deriv  *Curve
}

// ClampedKnots returns the uniform clamped knot vector for n control points.
func ClampedKnots(degree, n int) []float64 {
	m := n + degree + 1
	knots := make([]float64, m)
	inner := n - degree
	for i := 0; i < m; i++ {
		switch {
		case i <= degree:
			knots[i] = 0
		case i >= n:
			knots[i] = 1
		default:
			knots[i] = float64(i-degree) / float64(inner)
		}
	}
	return knots
}

// NewCurve builds a clamped uniform B-spline through ctrl. The curve starts
// exactly at the first control point and ends exactly at the last.
func NewCurve(degree int, ctrl []kinematics.Angles) (*Curve, error) {
	if degree < 1 || len(ctrl) < degree+1 {
		return nil, errors.Wrapf(dynamo.ErrConfiguration, "degree %d curve needs at least %d control points, got %d", degree, degree+1, len(ctrl))
	}
	pts := make([]kinematics.Angles, len(ctrl))
	copy(pts, ctrl)
	return &Curve{degree: degree, knots: ClampedKnots(degree, len(pts)), ctrl: pts}, nil
}

func (c *Curve) Degree() int { return c.degree }

func (c *Curve) ControlPoints() []kinematics.Angles {
	out := make([]kinematics.Angles, len(c.ctrl))
	copy(out, c.ctrl)
	return out
}

func clamp01(u float64) float64 {
	if u < 0 {
		return 0
	}
	if u > 1 {
		return 1
	}
	return u
}

// span finds the knot span index containing u.
func (c *Curve) span(u float64) int {
	n := len(c.ctrl) - 1
	if u >= c.knots[n+1] {
		return n
	}
	lo, hi := c.degree, n+1
	mid := (lo + hi) / 2
	for u < c.knots[mid] || u >= c.knots[mid+1] {
		if u < c.knots[mid] {
			hi = mid
		} else {
			lo = mid
		}
		mid = (lo + hi) / 2
	}
	return mid
}

// Point evaluates the curve at u, clamped to [0, 1], with de Boor's algorithm.
func (c *Curve) Point(u float64) kinematics.Angles {
	u = clamp01(u)
	p := c.degree
	k := c.span(u)
	d := make([]kinematics.Angles, p+1)
	for j := 0; j <= p; j++ {
		d[j] = c.ctrl[j+k-p]
	}
	for r := 1; r <= p; r++ {
		for j := p; j >= r; j-- {
			i := j + k - p
			den := c.knots[i+p-r+1] - c.knots[i]
			alpha := 0.0
			if den != 0 {
				alpha = (u - c.knots[i]) / den
			}
			d[j] = d[j-1].Scale(1 - alpha).Add(d[j].Scale(alpha))
		}
	}
	return d[p]
}

// Derivative evaluates dC/du at u, clamped to [0, 1].
func (c *Curve) Derivative(u float64) kinematics.Angles {
	if c.degree == 1 && len(c.ctrl) == 2 {
		return c.ctrl[1].Sub(c.ctrl[0])
	}
	if c.deriv == nil {
		c.deriv = c.derivativeCurve()
	}
	return c.deriv.Point(u)
}

func (c *Curve) derivativeCurve() *Curve {
	p := c.degree
	q := make([]kinematics.Angles, len(c.ctrl)-1)
	for i := range q {
		den := c.knots[i+p+1] - c.knots[i+1]
		if den == 0 {
			continue
		}
		q[i] = c.ctrl[i+1].Sub(c.ctrl[i]).Scale(float64(p) / den)
	}
	return &Curve{degree: p - 1, knots: c.knots[1 : len(c.knots)-1], ctrl: q}
}

// Sample evaluates the curve at every multiple of delta in [0, 1].
func (c *Curve) Sample(delta float64) []kinematics.Angles {
	if delta <= 0 || delta > 1 {
		delta = 0.01
	}
	n := int(1/delta+0.5) + 1
	out := make([]kinematics.Angles, n)
	for i := range out {
		out[i] = c.Point(float64(i) / float64(n-1))
	}
	return out
}
