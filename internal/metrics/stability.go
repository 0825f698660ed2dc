package metrics

import (
	"math"

	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/robot"
)

// Upright is the fraction of samples in which the body is above minHeight
// with roll and pitch inside tilt.
type Upright struct {
	name       string
	tilt       float64
	minHeight  float64
	violations int
	samples    int
}

func NewUpright(tilt, minHeight float64) *Upright {
	return &Upright{
		name:      "upright",
		tilt:      tilt,
		minHeight: minHeight,
	}
}

func (s *Upright) Name() string {
	return s.name
}

func (s *Upright) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) < robot.StateDim {
		return
	}
	s.samples++
	roll, pitch := x[robot.StateAttitude], x[robot.StateAttitude+1]
	if math.Abs(roll) > s.tilt || math.Abs(pitch) > s.tilt || x[robot.StatePosition+2] < s.minHeight {
		s.violations++
	}
}

func (s *Upright) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Upright) Reset() {
	s.violations = 0
	s.samples = 0
}
