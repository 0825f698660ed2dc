package metrics

import (
	"math"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/robot"
)

func bodyState(z, vx, vz, roll float64) dynamo.State {
	x := make(dynamo.State, robot.StateDim)
	x[robot.StatePosition+2] = z
	x[robot.StateAttitude] = roll
	x[robot.StateLinear] = vx
	x[robot.StateLinear+2] = vz
	return x
}

func TestEnergy(t *testing.T) {
	m := NewEnergy(20, 9.8)
	x := bodyState(1, 2, 0, 0)

	m.Observe(x, nil, 0)
	expected := 0.5*20*4 + 20*9.8*1
	if math.Abs(m.Value()-expected) > 1e-9 {
		t.Errorf("expected energy %f, got %f", expected, m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyDriftBallistic(t *testing.T) {
	m := NewEnergyDrift(20, 9.8)
	// A ballistic arc keeps m*v^2/2 + m*g*z constant.
	for i := 0; i <= 10; i++ {
		tt := float64(i) * 0.01
		vz := 1 - 9.8*tt
		z := 1 + tt - 4.9*tt*tt
		m.Observe(bodyState(z, 2, vz, 0), nil, tt)
	}
	if m.Value() > 1e-12 {
		t.Errorf("drift = %g on a ballistic arc", m.Value())
	}

	m.Observe(bodyState(0.5, 2, 0, 0), nil, 1)
	if m.Value() < 0.3 {
		t.Errorf("drift = %g after losing height", m.Value())
	}
}

func TestUpright(t *testing.T) {
	tests := []struct {
		name string
		x    dynamo.State
		want float64
	}{
		{"level", bodyState(1, 0, 0, 0), 1},
		{"tipped", bodyState(1, 0, 0, 0.8), 0},
		{"fallen", bodyState(0.2, 0, 0, 0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewUpright(0.5, 0.5)
			m.Observe(tt.x, nil, 0)
			if m.Value() != tt.want {
				t.Errorf("upright = %v, want %v", m.Value(), tt.want)
			}
		})
	}
}

func TestControlEffortNormalizedByLimit(t *testing.T) {
	g := NewWithT(t)
	m := NewControlEffort(40)
	g.Expect(m.Value()).To(BeZero())

	m.Observe(nil, dynamo.Control{40, -40, 40, -40, 40, -40}, 0)
	g.Expect(m.Value()).To(BeNumerically("~", 1, 1e-12))

	m.Observe(nil, dynamo.Control{0, 0, 0, 0, 0, 0}, 0)
	g.Expect(m.Value()).To(BeNumerically("~", 0.5, 1e-12))

	// Torques past the limit count as the limit.
	m.Reset()
	m.Observe(nil, dynamo.Control{80, -10, 0, 0, 0, 10}, 0)
	g.Expect(m.Value()).To(BeNumerically("~", 60.0/240, 1e-12))
}

func TestTorqueSaturationCountsStanceTicks(t *testing.T) {
	g := NewWithT(t)
	grounded := func(x dynamo.State) bool { return x[robot.StatePosition+2] < 1 }
	m := NewTorqueSaturation(40, grounded)

	stance, flight := bodyState(0.9, 0, 0, 0), bodyState(1.2, 0, 0, 0)
	ticks := []struct {
		x dynamo.State
		u dynamo.Control
	}{
		{stance, dynamo.Control{40, 0, 0, 0, 0, 0}},
		{stance, dynamo.Control{39, 0, 0, 0, 0, -12}},
		{stance, dynamo.Control{0, 0, 0, 0, 0, -40}},
		{stance, dynamo.Control{1, 2, 3, 4, 5, 6}},
		{flight, dynamo.Control{40, 40, 40, 40, 40, 40}},
	}
	for _, tick := range ticks {
		m.Observe(tick.x, tick.u, 0)
	}
	g.Expect(m.StanceTicks()).To(Equal(4))
	g.Expect(m.Value()).To(BeNumerically("~", 0.5, 1e-12))

	m.Reset()
	g.Expect(m.Value()).To(BeZero())
	g.Expect(m.StanceTicks()).To(BeZero())
}

func TestSpeedMetrics(t *testing.T) {
	g := NewWithT(t)
	fwd, errm := NewForwardSpeed(), NewSpeedError(2)
	for _, vx := range []float64{1, 3, 1, 3} {
		x := bodyState(1, vx, 0, 0)
		fwd.Observe(x, nil, 0)
		errm.Observe(x, nil, 0)
	}
	g.Expect(fwd.Value()).To(BeNumerically("~", 2, 1e-12))
	g.Expect(errm.Value()).To(BeNumerically("~", 1, 1e-12))
}

func TestApexHeight(t *testing.T) {
	g := NewWithT(t)
	m := NewApexHeight()
	g.Expect(m.Value()).To(BeZero())

	trace := []struct{ z, vz float64 }{
		{0.9, 1}, {1.0, 0.5}, {1.1, -0.1}, {1.0, -1},
		{0.9, 0}, {0.95, 0.4}, {1.05, 0}, {1.0, -0.5},
	}
	for _, s := range trace {
		m.Observe(bodyState(s.z, 2, s.vz, 0), nil, 0)
	}
	g.Expect(m.Count()).To(Equal(2))
	g.Expect(m.Value()).To(BeNumerically("~", 1.075, 1e-12))
}

func TestStandardNamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Standard(20, 9.8, 2, 40, func(dynamo.State) bool { return true }) {
		if seen[m.Name()] {
			t.Errorf("duplicate metric %q", m.Name())
		}
		seen[m.Name()] = true
	}
}
