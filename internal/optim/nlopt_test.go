//go:build nlopt

package optim

import (
	"context"
	"math"
	"testing"

	. "github.com/onsi/gomega"
)

func TestSLSQPKeepsEvaluationsInsideTorqueBox(t *testing.T) {
	g := NewWithT(t)
	s := DefaultSettings()
	target := []float64{60, -80, 0, 39, -200, 10}
	cost := quadratic(target)

	worst := 0.0
	oracle := CostFunc(func(tau []float64) (float64, error) {
		for _, v := range tau {
			worst = math.Max(worst, math.Abs(v))
		}
		return cost(tau)
	})

	res, err := (&SLSQP{}).Minimize(context.Background(), oracle, 6, s)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(worst).To(BeNumerically("<=", s.TorqueLimit))
	g.Expect(res.X[0]).To(BeNumerically("~", s.TorqueLimit, 1e-3))
	g.Expect(res.X[1]).To(BeNumerically("~", -s.TorqueLimit, 1e-3))
	g.Expect(res.X[3]).To(BeNumerically("~", 39, 1e-2))
	g.Expect(res.X[5]).To(BeNumerically("~", 10, 1e-2))
}

func TestNewSolverBuildsSLSQP(t *testing.T) {
	s, err := NewSolver(MethodSLSQP)
	if err != nil {
		t.Fatalf("slsqp: %v", err)
	}
	if _, ok := s.(*SLSQP); !ok {
		t.Errorf("got %T, want *SLSQP", s)
	}
}
