package main

import (
	"testing"

	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/gait"
)

func parsed(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addConfigFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return cmd
}

func TestResolveConfigOverrides(t *testing.T) {
	g := NewWithT(t)

	cfg, err := resolveConfig(parsed(t, "--preset", "sprint", "--target", "2.5", "--set-gain", "com.kp=120"))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg.Target).To(Equal(2.5))
	g.Expect(cfg.Initial.Velocity.X).To(Equal(2.5))
	g.Expect(cfg.Liftoff).To(Equal(gait.LiftoffElapsed))
	g.Expect(cfg.Gains.COM.Kp).To(Equal(120.0))

	cfg, err = resolveConfig(parsed(t))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg.Target).To(Equal(2.0))
	g.Expect(cfg.Liftoff).To(Equal(gait.LiftoffNever))
}

func TestResolveConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown preset", []string{"--preset", "crawl"}},
		{"unknown gain", []string{"--set-gain", "knee.kp=1"}},
		{"bad gain value", []string{"--set-gain", "com.kp=fast"}},
		{"negative dt", []string{"--dt", "-0.001"}},
		{"unknown liftoff", []string{"--liftoff", "sometimes"}},
		{"missing config file", []string{"--config", "does/not/exist.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveConfig(parsed(t, tt.args...))
			if !errors.Is(err, dynamo.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestSpeedRange(t *testing.T) {
	g := NewWithT(t)

	speeds, err := speedRange(1, 2, 0.5)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(speeds).To(HaveLen(3))
	g.Expect(speeds[2]).To(BeNumerically("~", 2, 1e-12))

	_, err = speedRange(2, 1, 0.5)
	g.Expect(err).To(HaveOccurred())
	_, err = speedRange(1, 2, 0)
	g.Expect(err).To(HaveOccurred())
}

func TestDownsample(t *testing.T) {
	data := make([]float64, 1001)
	for i := range data {
		data[i] = float64(i)
	}
	out := downsample(data, 11)
	if len(out) != 11 || out[0] != 0 || out[10] != 1000 || out[5] != 500 {
		t.Errorf("downsample = %v", out)
	}
	if short := downsample(data[:5], 11); len(short) != 5 {
		t.Errorf("short series resampled to %d", len(short))
	}
}

func TestNearestTime(t *testing.T) {
	times := []float64{0, 0.1, 0.2, 0.3}
	if i := nearestTime(times, 0.17); i != 2 {
		t.Errorf("nearest to 0.17 = %d", i)
	}
	if i := nearestTime(times, 5); i != 3 {
		t.Errorf("nearest to 5 = %d", i)
	}
}
