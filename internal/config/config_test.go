package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/optim"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Target != DefaultTarget {
		t.Errorf("expected target %v, got %v", DefaultTarget, cfg.Target)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Duration <= 0 {
		t.Error("duration should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("sprint")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Target != 3.5 || cfg.Initial.Velocity.X != 3.5 {
		t.Errorf("expected target 3.5, got %v (initial %v)", cfg.Target, cfg.Initial.Velocity.X)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("preset invalid: %v", err)
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets()
	want := []string{"jog", "run", "sprint"}
	if len(presets) != len(want) {
		t.Fatalf("presets = %v", presets)
	}
	for i := range want {
		if presets[i] != want[i] {
			t.Errorf("presets[%d] = %s, want %s", i, presets[i], want[i])
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"negative duration", func(c *Config) { c.Duration = -1 }},
		{"no table", func(c *Config) { c.Table = "" }},
		{"unknown liftoff", func(c *Config) { c.Liftoff = "hop" }},
		{"zero torque limit", func(c *Config) { c.Solver.TorqueLimit = 0 }},
		{"massless robot", func(c *Config) { c.Robot.Mass = 0 }},
		{"bad slip step", func(c *Config) { c.SLIP.Dt = 0 }},
		{"zero jacobian step", func(c *Config) { c.JacobianStep = 0 }},
		{"on the ground", func(c *Config) { c.Initial.Height = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, dynamo.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "run.yaml")

	cfg := DefaultConfig()
	cfg.Target = 2.5
	cfg.Solver.Method = optim.MethodSLSQP
	cfg.Solver.Runtime = 500 * time.Millisecond
	cfg.Gains.COM.Kp = 150
	cfg.Weights.Body.Y = 80
	g.Expect(Save(path, cfg)).To(Succeed())

	loaded, err := Load(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(loaded).To(Equal(cfg))
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := []byte("target: 3.0\nsolver:\n  runtime: 100ms\ngains:\n  foot:\n    kp: 55\n")
	g.Expect(os.WriteFile(path, data, 0644)).To(Succeed())

	cfg, err := Load(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg.Target).To(Equal(3.0))
	g.Expect(cfg.Solver.Runtime).To(Equal(100 * time.Millisecond))
	g.Expect(cfg.Solver.TorqueLimit).To(Equal(optim.DefaultSettings().TorqueLimit))
	g.Expect(cfg.Gains.Foot.Kp).To(Equal(55.0))
	g.Expect(cfg.Gains.Foot.Kd).To(Equal(5.0))
	g.Expect(cfg.Dt).To(Equal(DefaultDt))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("missing file: %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("target: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("malformed file: %v", err)
	}
}
