package metrics

import (
	"math"

	"github.com/san-kum/bipedsim/internal/dynamo"
)

// saturationBand is how close to the limit, as a fraction of it, a torque
// counts as saturated.
const saturationBand = 1e-6

// StancePredicate reports whether any foot bears load in state x.
type StancePredicate func(x dynamo.State) bool

// ControlEffort is the mean absolute joint torque as a fraction of the
// torque limit, so 1 means every joint pinned at the limit on every tick.
type ControlEffort struct {
	limit   float64
	sum     float64
	samples int
}

func NewControlEffort(limit float64) *ControlEffort {
	return &ControlEffort{limit: limit}
}

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(_ dynamo.State, u dynamo.Control, _ float64) {
	if len(u) == 0 || c.limit <= 0 {
		return
	}
	var tick float64
	for _, tau := range u {
		tick += math.Min(math.Abs(tau), c.limit)
	}
	c.sum += tick / (c.limit * float64(len(u)))
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// TorqueSaturation is the fraction of stance ticks on which at least one
// joint torque sits at the limit. Flight ticks are not counted.
type TorqueSaturation struct {
	limit     float64
	stance    StancePredicate
	ticks     int
	saturated int
}

func NewTorqueSaturation(limit float64, stance StancePredicate) *TorqueSaturation {
	return &TorqueSaturation{limit: limit, stance: stance}
}

func (s *TorqueSaturation) Name() string { return "torque_saturation" }

func (s *TorqueSaturation) Observe(x dynamo.State, u dynamo.Control, _ float64) {
	if s.stance == nil || !s.stance(x) {
		return
	}
	s.ticks++
	edge := s.limit * (1 - saturationBand)
	for _, tau := range u {
		if math.Abs(tau) >= edge {
			s.saturated++
			return
		}
	}
}

func (s *TorqueSaturation) Value() float64 {
	if s.ticks == 0 {
		return 0
	}
	return float64(s.saturated) / float64(s.ticks)
}

// StanceTicks is the number of ticks the predicate reported as stance.
func (s *TorqueSaturation) StanceTicks() int { return s.ticks }

func (s *TorqueSaturation) Reset() {
	s.ticks = 0
	s.saturated = 0
}
