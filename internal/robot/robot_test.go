package robot_test

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/robot"
	"github.com/san-kum/bipedsim/internal/robot/robottest"
)

func TestLegIdentity(t *testing.T) {
	if robot.Left.Other() != robot.Right || robot.Right.Other() != robot.Left {
		t.Error("Other() is not an involution")
	}
	if robot.Left.Side() != 1 || robot.Right.Side() != -1 {
		t.Error("unexpected lateral signs")
	}

	tests := []struct {
		leg  robot.Leg
		want [3]robot.Joint
	}{
		{robot.Left, [3]robot.Joint{robot.LeftHipRoll, robot.LeftHipPitch, robot.LeftKnee}},
		{robot.Right, [3]robot.Joint{robot.RightHipRoll, robot.RightHipPitch, robot.RightKnee}},
	}
	for _, tt := range tests {
		t.Run(tt.leg.String(), func(t *testing.T) {
			got := robot.LegJoints(tt.leg)
			if got != tt.want {
				t.Errorf("LegJoints(%v) = %v, want %v", tt.leg, got, tt.want)
			}
			for _, j := range got {
				if j.Leg() != tt.leg {
					t.Errorf("%v.Leg() = %v", j, j.Leg())
				}
			}
		})
	}

	if got := robot.RightKnee.String(); got != "right_knee" {
		t.Errorf("String() = %q", got)
	}
}

func TestWithSnapshotRestoresOnError(t *testing.T) {
	h := robottest.New()
	h.Q[0] = 0.3

	fnErr := errors.New("cost failed")
	err := robot.WithSnapshot(h, func() error {
		h.SetJointTorque(robot.LeftHipRoll, 10)
		if stepErr := h.Step(); stepErr != nil {
			return stepErr
		}
		return fnErr
	})
	if !errors.Is(err, fnErr) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if h.Q[0] != 0.3 || h.DQ[0] != 0 || h.Torque[0] != 0 {
		t.Errorf("state not restored: q=%v dq=%v tau=%v", h.Q[0], h.DQ[0], h.Torque[0])
	}
	if h.Live() != 0 {
		t.Errorf("%d snapshots leaked", h.Live())
	}
}

func TestWithSnapshotRestoresOnPanic(t *testing.T) {
	h := robottest.New()
	h.DQ[4] = -1

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = robot.WithSnapshot(h, func() error {
			h.DQ[4] = 7
			panic("boom")
		})
	}()

	if h.DQ[4] != -1 {
		t.Errorf("dq = %v, want -1", h.DQ[4])
	}
	if h.Restores != 1 {
		t.Errorf("restores = %d, want 1", h.Restores)
	}
}

func TestWithSnapshotExternalFaults(t *testing.T) {
	t.Run("save", func(t *testing.T) {
		h := robottest.New()
		h.SaveErr = errors.New("no slot")
		called := false
		err := robot.WithSnapshot(h, func() error { called = true; return nil })
		if !errors.Is(err, dynamo.ErrExternalState) {
			t.Errorf("expected external state error, got %v", err)
		}
		if called {
			t.Error("fn ran without a snapshot")
		}
	})

	t.Run("restore", func(t *testing.T) {
		h := robottest.New()
		h.RestoreErr = errors.New("stale")
		err := robot.WithSnapshot(h, func() error { return nil })
		if !errors.Is(err, dynamo.ErrExternalState) {
			t.Errorf("expected external state error, got %v", err)
		}
		if !dynamo.IsFatal(err) {
			t.Error("restore failure must be fatal")
		}
	})
}
