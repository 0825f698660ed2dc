package metrics

import (
	"math"

	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/robot"
)

// ForwardSpeed is the mean forward body velocity.
type ForwardSpeed struct {
	sum     float64
	samples int
}

func NewForwardSpeed() *ForwardSpeed { return &ForwardSpeed{} }

func (f *ForwardSpeed) Name() string { return "forward_speed" }

func (f *ForwardSpeed) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) < robot.StateDim {
		return
	}
	f.sum += x[robot.StateLinear]
	f.samples++
}

func (f *ForwardSpeed) Value() float64 {
	if f.samples == 0 {
		return 0
	}
	return f.sum / float64(f.samples)
}

func (f *ForwardSpeed) Reset() { f.sum, f.samples = 0, 0 }

// SpeedError is the RMS difference between forward velocity and target.
type SpeedError struct {
	target  float64
	sumSq   float64
	samples int
}

func NewSpeedError(target float64) *SpeedError { return &SpeedError{target: target} }

func (s *SpeedError) Name() string { return "speed_error" }

func (s *SpeedError) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) < robot.StateDim {
		return
	}
	d := x[robot.StateLinear] - s.target
	s.sumSq += d * d
	s.samples++
}

func (s *SpeedError) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return math.Sqrt(s.sumSq / float64(s.samples))
}

func (s *SpeedError) Reset() { s.sumSq, s.samples = 0, 0 }

// ApexHeight is the mean body height at the flight apexes seen so far,
// detected as the vertical velocity turning from positive to non-positive.
type ApexHeight struct {
	prevVZ  float64
	started bool
	sum     float64
	apexes  int
}

func NewApexHeight() *ApexHeight { return &ApexHeight{} }

func (a *ApexHeight) Name() string { return "apex_height" }

func (a *ApexHeight) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) < robot.StateDim {
		return
	}
	vz := x[robot.StateLinear+2]
	if a.started && a.prevVZ > 0 && vz <= 0 {
		a.sum += x[robot.StatePosition+2]
		a.apexes++
	}
	a.prevVZ, a.started = vz, true
}

// Value is zero until an apex has been seen.
func (a *ApexHeight) Value() float64 {
	if a.apexes == 0 {
		return 0
	}
	return a.sum / float64(a.apexes)
}

func (a *ApexHeight) Count() int { return a.apexes }

func (a *ApexHeight) Reset() { *a = ApexHeight{} }
