package experiment

import (
	"context"
	"math"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/san-kum/bipedsim/internal/config"
	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/robot"
	"github.com/san-kum/bipedsim/internal/sim"
)

const pairTable = "../../configs/stable_pair.csv"

func shortConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Table = pairTable
	cfg.Duration = 0.01
	return cfg
}

func TestRegistry(t *testing.T) {
	g := NewWithT(t)
	reg := NewRegistry()
	g.Expect(reg.ListIntegrators()).To(Equal([]string{"euler", "leapfrog", "rk4", "rk45", "verlet"}))
	g.Expect(reg.ListSolvers()).To(ContainElement("bfgs"))

	for _, name := range reg.ListIntegrators() {
		integ, err := reg.GetIntegrator(name)
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(integ).NotTo(BeNil())
	}
	_, err := reg.GetIntegrator("midpoint")
	g.Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
	_, err = reg.GetSolver("annealing")
	g.Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
}

func TestExperimentRuns(t *testing.T) {
	g := NewWithT(t)
	e, err := New(shortConfig(), NewRegistry(), nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(e.Tables.Jacobians.Len()).To(Equal(e.Tables.Pairs.Len()))
	g.Expect(e.Robot.TimeStep()).To(Equal(config.DefaultDt))

	result, err := e.Run(context.Background())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(result.StepsTaken).To(Equal(10))
	g.Expect(result.Cycles).To(HaveEach(1))
	g.Expect(result.Metrics).To(HaveKey("forward_speed"))

	meta := e.Metadata(result, nil)
	g.Expect(meta.Target).To(Equal(config.DefaultTarget))
	g.Expect(meta.Steps).To(Equal(10))
	g.Expect(meta.Cycles).To(Equal(1))
	g.Expect(meta.Aborted).To(BeEmpty())
}

func TestExperimentRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"target outside table", func(c *config.Config) { c.Target = 5 }},
		{"missing table", func(c *config.Config) { c.Table = "no/such/table.csv" }},
		{"unknown integrator", func(c *config.Config) { c.Integrator = "midpoint" }},
		{"zero dt", func(c *config.Config) { c.Dt = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := shortConfig()
			tt.mutate(cfg)
			_, err := New(cfg, NewRegistry(), nil)
			if !errors.Is(err, dynamo.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestFactorySweep(t *testing.T) {
	g := NewWithT(t)
	cfg := shortConfig()
	tables, err := LoadTables(cfg, nil)
	g.Expect(err).NotTo(HaveOccurred())

	targets := []float64{1.5, 2.5, 9}
	results, err := sim.NewEnsemble(Factory(cfg, tables, NewRegistry(), nil), 2).Run(context.Background(), targets, cfg.RunConfig())
	g.Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
	g.Expect(results[0].Err).NotTo(HaveOccurred())
	g.Expect(results[1].Err).NotTo(HaveOccurred())
	g.Expect(results[2].Err).To(HaveOccurred())
	g.Expect(results[0].Result.States[0][robot.StateLinear]).To(Equal(1.5))
	g.Expect(cfg.Target).To(Equal(config.DefaultTarget))
}

func TestTuneGain(t *testing.T) {
	g := NewWithT(t)
	cfg := shortConfig()
	tables, err := LoadTables(cfg, nil)
	g.Expect(err).NotTo(HaveOccurred())

	gains, err := GainGrid(0, 0.5, 2)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(gains).To(Equal([]float64{0, 0.5}))

	tuned, err := TuneGain(context.Background(), tables, cfg.SLIP, gains, 0)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(tuned).To(HaveLen(tables.Pairs.Len()))
	for i, p := range tuned {
		g.Expect(p.Speed).To(Equal(tables.Pairs.Pair(i).Speed()))
		g.Expect(p.Scores).To(HaveLen(2))
		g.Expect(math.IsInf(p.Best.Radius, 0)).To(BeFalse())
		g.Expect(p.Best.Radius).To(BeNumerically("<=", p.Scores[0].Radius))
	}

	_, err = GainGrid(1, 0, 5)
	g.Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
}
