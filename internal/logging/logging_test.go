package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)

	logger.Debugw("tick", "cycle", 1)
	logger.Warnw("solver did not converge", "cycle", 2, "cost", 0.5)

	if logs.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", logs.Len())
	}
	warns := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if len(warns) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warns))
	}
	if got := warns[0].ContextMap()["cycle"]; got != int64(2) {
		t.Errorf("cycle field = %v, want 2", got)
	}
}

func TestNewLogger(t *testing.T) {
	if NewLogger("bipedsim") == nil {
		t.Fatal("nil logger")
	}
	if !NewDebugLogger("bipedsim").Desugar().Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug logger should enable debug level")
	}
}

func TestSampledLimitsRepeats(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sampled := Sampled(logger, 5, 100)

	for i := 0; i < 200; i++ {
		sampled.Warnw("torque solve stopped early", "tick", i)
	}
	sampled.Warnw("touchdown above apex")

	repeats := logs.FilterMessage("torque solve stopped early").Len()
	if repeats < 5 || repeats > 20 {
		t.Errorf("sampled %d repeats, want between 5 and 20", repeats)
	}
	if logs.FilterMessage("touchdown above apex").Len() != 1 {
		t.Error("distinct message should not be sampled away")
	}
}
