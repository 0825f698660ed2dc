package gait_test

import (
	"context"

	"github.com/golang/geo/r3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/bipedsim/internal/apex"
	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/gait"
	"github.com/san-kum/bipedsim/internal/optim"
	"github.com/san-kum/bipedsim/internal/robot"
	"github.com/san-kum/bipedsim/internal/robot/robottest"
	"github.com/san-kum/bipedsim/internal/stance"
)

type fakeStance struct {
	calls    int
	duration float64
	err      error
	last     apex.Controls
}

func (f *fakeStance) Trajectory(a apex.State, u apex.Controls) ([]stance.Sample, error) {
	f.calls++
	f.last = u
	if f.err != nil {
		return nil, f.err
	}
	return []stance.Sample{
		{T: 0, X: [6]float64{-0.25, 0, 0.95, 2, 0, -1}},
		{T: f.duration, X: [6]float64{0.25, 0, 0.95, 2, 0, 1}},
	}, nil
}

type fakeSolver struct {
	calls int
	legs  []robot.Leg
	last  optim.Accelerations
	tau   dynamo.Control
	err   error
}

func (f *fakeSolver) Solve(_ context.Context, des optim.Accelerations, leg robot.Leg) (dynamo.Control, error) {
	f.calls++
	f.legs = append(f.legs, leg)
	f.last = des
	if f.tau == nil {
		return nil, f.err
	}
	return append(dynamo.Control(nil), f.tau...), f.err
}

var refPair = apex.Pair{
	Apex:       apex.State{H0: 1, VX: 2},
	Controls:   apex.Controls{Alpha: 1.310894, Beta: 0, KS1: 20, KS2: 20},
	AirTime:    0.082789,
	StanceTime: 0.2714,
}

func newSelector() *apex.Selector {
	pairs := []apex.Pair{refPair, refPair, refPair}
	pairs[0].Apex.VX, pairs[2].Apex.VX = 1, 3
	table, err := apex.NewTable(pairs)
	Expect(err).NotTo(HaveOccurred())

	entries := make([]apex.JacobianEntry, table.Len())
	for i := range entries {
		entries[i] = apex.JacobianEntry{
			Speed: table.Pair(i).Speed(),
			J:     mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}),
		}
	}
	jac, err := apex.NewJacobians(entries)
	Expect(err).NotTo(HaveOccurred())

	sel, err := apex.NewSelector(table, jac, 2, apex.DefaultSelectorConfig())
	Expect(err).NotTo(HaveOccurred())
	return sel
}

var _ = Describe("Controller", func() {
	const dt = 0.001

	var (
		ctx      context.Context
		h        *robottest.Handle
		sim      *fakeStance
		solver   *fakeSolver
		cfg      gait.Config
		logs     *observer.ObservedLogs
		ctrl     *gait.Controller
		touching map[robot.Leg]bool
		now      float64
	)

	tick := func() (dynamo.Control, error) {
		tau, err := ctrl.Tick(ctx, now)
		now += dt
		return tau, err
	}

	tickOK := func() {
		_, err := tick()
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
	}

	build := func() {
		core, observed := observer.New(zap.WarnLevel)
		logs = observed
		var err error
		ctrl, err = gait.New(h, newSelector(), sim, solver, cfg, zap.New(core).Sugar())
		Expect(err).NotTo(HaveOccurred())
	}

	// land ticks through the first flight until the left foot is down and
	// the stance has been entered.
	land := func() {
		tickOK()
		touching[robot.Left] = true
		tickOK()
		Expect(ctrl.Phase()).To(Equal(gait.Ground))
		tickOK()
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = 0
		touching = map[robot.Leg]bool{}

		h = robottest.New()
		h.Position = r3.Vector{Z: 1}
		h.Linear = r3.Vector{X: 2}
		h.ContactFn = func(*robottest.Handle) []robot.Contact {
			var out []robot.Contact
			for _, leg := range robot.Legs {
				if touching[leg] {
					out = append(out, robot.Contact{Leg: leg, NormalForce: 100})
				}
			}
			return out
		}

		sim = &fakeStance{duration: 0.01}
		solver = &fakeSolver{tau: dynamo.Control{1, 2, 3, 4, 5, 6}}
		cfg = gait.DefaultConfig()
	})

	Describe("construction", func() {
		It("rejects missing collaborators", func() {
			_, err := gait.New(h, newSelector(), sim, nil, cfg, nil)
			Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
		})

		It("rejects a non-positive leg length", func() {
			cfg.Geometry.LegLength = 0
			_, err := gait.New(h, newSelector(), sim, solver, cfg, nil)
			Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
		})
	})

	Describe("first flight", func() {
		BeforeEach(build)

		It("starts in the air on cycle 1 with the left leg landing", func() {
			Expect(ctrl.Phase()).To(Equal(gait.Air))
			Expect(ctrl.Cycle()).To(Equal(1))
			tickOK()
			Expect(ctrl.Status().Landing).To(Equal(robot.Left))
			Expect(ctrl.Planner().Ready()).To(BeTrue())
		})

		It("uses the bootstrap lateral placement", func() {
			tickOK()
			Expect(ctrl.Status().Plan.Controls.Beta).To(BeNumerically("~", apex.BootstrapBeta, 1e-12))
			Expect(ctrl.Status().Plan.Controls.Alpha).To(BeNumerically("~", refPair.Controls.Alpha, 1e-12))
		})

		It("puts the joints on the swing curves so tracking starts at rest", func() {
			tau, err := tick()
			Expect(err).NotTo(HaveOccurred())
			Expect(h.Resets).To(HaveLen(robot.NumJoints))
			Expect(tau).To(HaveLen(robot.NumJoints))
			for j := range tau {
				Expect(tau[j]).To(BeNumerically("~", 0, 1e-12))
				Expect(h.Torque[j]).To(Equal(tau[j]))
			}
		})

		It("does not look at contacts on the tick that planned the flight", func() {
			touching[robot.Left] = true
			tickOK()
			Expect(ctrl.Phase()).To(Equal(gait.Air))
			tickOK()
			Expect(ctrl.Phase()).To(Equal(gait.Ground))
		})

		It("ignores contact of the leg that is not landing", func() {
			touching[robot.Right] = true
			for i := 0; i < 20; i++ {
				tickOK()
			}
			Expect(ctrl.Phase()).To(Equal(gait.Air))
			Expect(sim.calls).To(BeZero())
			Expect(solver.calls).To(BeZero())
		})
	})

	Describe("stance", func() {
		BeforeEach(build)

		It("builds the stance reference exactly once per landing", func() {
			land()
			Expect(sim.calls).To(Equal(1))
			Expect(sim.last).To(Equal(ctrl.Status().Plan.Controls))
			for i := 0; i < 50; i++ {
				tickOK()
			}
			Expect(sim.calls).To(Equal(1))
			Expect(solver.calls).To(Equal(51))
			Expect(ctrl.Phase()).To(Equal(gait.Ground))
			Expect(ctrl.Cycle()).To(Equal(1))
		})

		It("solves for the landing leg and applies the torques", func() {
			land()
			Expect(solver.legs).To(ConsistOf(robot.Left))
			for j, v := range solver.tau {
				Expect(h.Torque[j]).To(Equal(v))
			}
			Expect(ctrl.Torques()).To(Equal(solver.tau))
		})

		It("levels the body against attitude and rate", func() {
			h.Attitude = robot.Attitude{Roll: 0.1}
			h.Angular = r3.Vector{Y: 0.5}
			land()
			body := solver.last.Body
			Expect(body.X).To(BeNumerically("~", -2, 1e-12))
			Expect(body.Y).To(BeNumerically("~", -2, 1e-12))
			Expect(body.Z).To(BeNumerically("~", 0, 1e-12))
		})

		It("holds posture when the stance reference cannot be built", func() {
			sim.err = errors.Wrap(dynamo.ErrNumericDegeneracy, "body hit the ground")
			tickOK()
			touching[robot.Left] = true
			tickOK()
			_, err := tick()
			Expect(err).To(HaveOccurred())
			Expect(dynamo.IsFatal(err)).To(BeFalse())
			Expect(errors.Is(err, dynamo.ErrNumericDegeneracy)).To(BeTrue())
			Expect(logs.FilterMessage("stance reference unavailable, holding touchdown posture").Len()).To(Equal(1))

			// Zero position error; the COM law only brakes the forward speed.
			com := solver.last.COM
			Expect(com.X).To(BeNumerically("~", -cfg.Gains.COM.Kd*2, 1e-9))
			Expect(com.Y).To(BeNumerically("~", 0, 1e-9))
			Expect(com.Z).To(BeNumerically("~", 0, 1e-9))
		})

		It("applies unconverged torques with a warning", func() {
			solver.err = errors.Wrap(dynamo.ErrNonconvergence, "iteration limit")
			tickOK()
			touching[robot.Left] = true
			tickOK()
			tau, err := tick()
			Expect(errors.Is(err, dynamo.ErrNonconvergence)).To(BeTrue())
			Expect(dynamo.IsFatal(err)).To(BeFalse())
			Expect(tau).To(Equal(solver.tau))
			warns := logs.FilterMessage("applying unconverged torques").All()
			Expect(warns).To(HaveLen(1))
			Expect(warns[0].ContextMap()["error"]).To(ContainSubstring("iteration limit"))
			Expect(warns[0].ContextMap()).NotTo(HaveKey("errorVerbose"))
		})

		It("stops on an external state fault without touching the torques", func() {
			land()
			before := h.Torque
			solver.tau = nil
			solver.err = errors.Wrap(dynamo.ErrExternalState, "restore failed")
			tau, err := tick()
			Expect(tau).To(BeNil())
			Expect(dynamo.IsFatal(err)).To(BeTrue())
			Expect(h.Torque).To(Equal(before))
		})
	})

	Describe("liftoff", func() {
		BeforeEach(func() {
			cfg.Liftoff = gait.StanceElapsed{}
			build()
		})

		It("waits for the foot to leave the ground", func() {
			land()
			for i := 0; i < 30; i++ {
				tickOK()
			}
			Expect(ctrl.Phase()).To(Equal(gait.Ground))
		})

		It("starts the next cycle on the other leg", func() {
			land()
			touching[robot.Left] = false
			for i := 0; i < 30 && ctrl.Phase() == gait.Ground; i++ {
				tickOK()
			}
			Expect(ctrl.Phase()).To(Equal(gait.Air))
			Expect(ctrl.Cycle()).To(Equal(2))

			// The tick that plans the flight already tracks the swing curves
			// instead of leaving the last stance torques on the joints.
			tau, err := tick()
			Expect(err).NotTo(HaveOccurred())
			Expect(tau).NotTo(Equal(solver.tau))
			for j := range tau {
				Expect(h.Torque[j]).To(Equal(tau[j]))
			}
			status := ctrl.Status()
			Expect(status.Landing).To(Equal(robot.Right))
			Expect(status.Plan.Controls).To(Equal(refPair.Controls))
			Expect(h.Resets).To(HaveLen(robot.NumJoints))

			touching[robot.Right] = true
			tickOK()
			Expect(ctrl.Phase()).To(Equal(gait.Ground))
			tickOK()
			Expect(sim.calls).To(Equal(2))
			Expect(solver.legs[len(solver.legs)-1]).To(Equal(robot.Right))
		})
	})

	It("refuses to tick after cancellation", func() {
		build()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := ctrl.Tick(cctx, 0)
		Expect(errors.Is(err, dynamo.ErrContextCanceled)).To(BeTrue())
	})
})

var _ = Describe("LandingLeg", func() {
	DescribeTable("alternates legs by cycle",
		func(cycle int, want robot.Leg) {
			Expect(gait.LandingLeg(cycle)).To(Equal(want))
		},
		Entry("first", 1, robot.Left),
		Entry("second", 2, robot.Right),
		Entry("third", 3, robot.Left),
	)
})

var _ = Describe("LiftoffPolicyByName", func() {
	It("knows both policies", func() {
		p, ok := gait.LiftoffPolicyByName(gait.LiftoffElapsed)
		Expect(ok).To(BeTrue())
		Expect(p.Liftoff(gait.StanceStatus{Elapsed: 1, Duration: 0.5})).To(BeTrue())

		p, ok = gait.LiftoffPolicyByName("")
		Expect(ok).To(BeTrue())
		Expect(p.Liftoff(gait.StanceStatus{Elapsed: 1, Duration: 0.5})).To(BeFalse())

		_, ok = gait.LiftoffPolicyByName("bounce")
		Expect(ok).To(BeFalse())
	})
})
