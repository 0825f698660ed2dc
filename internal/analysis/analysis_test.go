package analysis

import (
	"math"
	"math/cmplx"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/san-kum/bipedsim/internal/apex"
	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/robot"
	"github.com/san-kum/bipedsim/internal/slip"
)

func TestStrideFrequency(t *testing.T) {
	const dt = 0.01
	data := make([]float64, 200)
	for i := range data {
		data[i] = 1 + 0.05*math.Sin(2*math.Pi*3*float64(i)*dt)
	}

	f, err := StrideFrequency(data, dt)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(f-3) > 1e-9 {
		t.Errorf("frequency = %v, want 3", f)
	}
}

func TestStrideFrequencyDegenerate(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		dt   float64
	}{
		{"too short", []float64{1, 2}, 0.01},
		{"no dt", make([]float64, 16), 0},
		{"flat", []float64{1, 1, 1, 1, 1, 1, 1, 1}, 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := StrideFrequency(tt.data, tt.dt); !errors.Is(err, dynamo.ErrNumericDegeneracy) {
				t.Errorf("expected degeneracy, got %v", err)
			}
		})
	}
}

func TestPowerSpectrumAnyLength(t *testing.T) {
	ps := PowerSpectrum([]float64{1, 0, -1, 0, 1, 0, -1})
	if len(ps) != 3 {
		t.Errorf("len = %d, want 3", len(ps))
	}
}

func ballistic(n int, dt float64) ([][]float64, []float64) {
	states := make([][]float64, n)
	times := make([]float64, n)
	for i := range states {
		tt := float64(i) * dt
		x := make([]float64, robot.StateDim)
		x[robot.StatePosition+2] = 1 + tt - 4.9*tt*tt
		x[robot.StateLinear] = 2
		x[robot.StateLinear+2] = 1 - 9.8*tt
		states[i], times[i] = x, tt
	}
	return states, times
}

func TestApexSection(t *testing.T) {
	g := NewWithT(t)
	states, times := ballistic(200, 0.001)

	section := ApexSection(states, times)
	g.Expect(section).To(HaveLen(1))
	g.Expect(section[0].Time).To(BeNumerically("~", 1/9.8, 1e-9))
	g.Expect(section[0].Height).To(BeNumerically("~", 1+1/(2*9.8), 1e-5))
	g.Expect(section[0].Speed).To(Equal(2.0))

	plot := ApexSectionToASCII(section, 20, 5)
	g.Expect(strings.Count(plot, "\n")).To(Equal(5))
	g.Expect(ApexSectionToASCII(nil, 20, 5)).To(Equal("No apexes detected"))
}

func TestPhasePortrait(t *testing.T) {
	g := NewWithT(t)
	states, _ := ballistic(50, 0.01)

	p := PhasePortrait(states, robot.StatePosition+2, robot.StateLinear+2)
	g.Expect(p.Points).To(HaveLen(50))
	g.Expect(p.Points[0].X).To(Equal(1.0))
	g.Expect(p.Points[0].Y).To(Equal(1.0))
	g.Expect(PhasePortraitToASCII(p, 30, 10)).NotTo(BeEmpty())

	g.Expect(PhasePortrait(states, 0, robot.StateDim)).To(BeNil())
}

// the v=2 row of configs/stable_pair.csv
var twoMetres = apex.Pair{
	Apex:       apex.State{H0: 1, VX: 2},
	Controls:   apex.Controls{Alpha: 1.310894, KS1: 20, KS2: 20},
	AirTime:    0.082789,
	StanceTime: 0.2714,
}

func TestReturnMapConservesEnergyDirection(t *testing.T) {
	sim, err := slip.NewSimulator(slip.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}

	eig, err := ReturnMapEigenvalues(sim, twoMetres, nil, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(eig) != 3 {
		t.Fatalf("got %d eigenvalues", len(eig))
	}

	// Equal stiffness keeps the stance lossless, so apex energy is
	// invariant and one eigenvalue sits at 1.
	closest := math.Inf(1)
	for _, v := range eig {
		if cmplx.IsNaN(v) {
			t.Fatalf("NaN eigenvalue in %v", eig)
		}
		closest = math.Min(closest, cmplx.Abs(v-1))
	}
	if closest > 2e-2 {
		t.Errorf("no eigenvalue near 1 in %v", eig)
	}
	if r := SpectralRadius(eig); r < 1-2e-2 {
		t.Errorf("spectral radius %v below the invariant eigenvalue", r)
	}
}

func TestSpectralRadius(t *testing.T) {
	if r := SpectralRadius([]complex128{0.5, complex(0, -2), -1}); r != 2 {
		t.Errorf("radius = %v, want 2", r)
	}
}
