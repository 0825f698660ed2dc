package gait

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/san-kum/bipedsim/internal/apex"
	"github.com/san-kum/bipedsim/internal/control"
	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/kinematics"
	"github.com/san-kum/bipedsim/internal/logging"
	"github.com/san-kum/bipedsim/internal/optim"
	"github.com/san-kum/bipedsim/internal/robot"
	"github.com/san-kum/bipedsim/internal/stance"
	"github.com/san-kum/bipedsim/internal/swing"
)

// StanceSimulator produces the body-relative-to-foot reference for a stance
// entered from apex a under controls u.
type StanceSimulator interface {
	Trajectory(a apex.State, u apex.Controls) ([]stance.Sample, error)
}

// TorqueSolver picks joint torques that realise des during a stance on leg.
type TorqueSolver interface {
	Solve(ctx context.Context, des optim.Accelerations, stance robot.Leg) (dynamo.Control, error)
}

type Config struct {
	Geometry kinematics.Geometry
	Gravity  float64
	Gains    control.Gains
	Liftoff  LiftoffPolicy
}

func DefaultConfig() Config {
	return Config{
		Geometry: kinematics.DefaultGeometry(),
		Gravity:  apex.Gravity,
		Gains:    control.DefaultGains(),
		Liftoff:  NeverLiftoff{},
	}
}

// Status is a read-only view of the controller for displays and logs.
type Status struct {
	Phase    Phase
	Cycle    int
	Landing  robot.Leg
	Plan     apex.Plan
	Progress [2]float64
	// StanceElapsed is the time since the current stance began; zero in flight.
	StanceElapsed float64
}

// Per-tick warnings log the first tickWarnFirst occurrences of a message each
// second and then one in tickWarnThereafter.
const (
	tickWarnFirst      = 5
	tickWarnThereafter = 100
)

// Controller runs the gait against one robot.Handle. Every tick it may run
// the entry action of the phase it is in (once per phase entry), computes
// and applies joint torques, and then checks the phase exit condition.
type Controller struct {
	handle    robot.Handle
	selector  *apex.Selector
	planner   *swing.Planner
	stanceSim StanceSimulator
	solver    TorqueSolver
	cfg       Config
	logger    *zap.SugaredLogger
	// tickLogger samples the warnings that can repeat on every tick.
	tickLogger *zap.SugaredLogger

	phase    Phase
	entering bool
	cycle    int
	landing  robot.Leg

	plan       apex.Plan
	curveStart float64

	reference   *stance.Table
	stanceStart float64

	now    float64
	torque dynamo.Control
}

// New builds a controller in the flight phase of cycle 1. The selector's
// target is checked against its table again so a stale selector cannot
// start a run.
func New(h robot.Handle, sel *apex.Selector, stanceSim StanceSimulator, solver TorqueSolver, cfg Config, logger *zap.SugaredLogger) (*Controller, error) {
	if h == nil || sel == nil || stanceSim == nil || solver == nil {
		return nil, errors.Wrap(dynamo.ErrConfiguration, "controller needs a handle, selector, stance simulator and torque solver")
	}
	if err := sel.Table().Validate(sel.Target()); err != nil {
		return nil, err
	}
	if cfg.Gravity <= 0 || cfg.Geometry.LegLength <= 0 {
		return nil, errors.Wrapf(dynamo.ErrConfiguration, "gravity %v and leg length %v must be positive", cfg.Gravity, cfg.Geometry.LegLength)
	}
	if cfg.Liftoff == nil {
		cfg.Liftoff = NeverLiftoff{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Controller{
		handle:     h,
		selector:   sel,
		planner:    swing.NewPlanner(cfg.Geometry, logger),
		stanceSim:  stanceSim,
		solver:     solver,
		cfg:        cfg,
		logger:     logger,
		tickLogger: logging.Sampled(logger, tickWarnFirst, tickWarnThereafter),
		phase:      Air,
		entering:   true,
		cycle:      1,
		landing:    LandingLeg(1),
		torque:     make(dynamo.Control, robot.NumJoints),
	}, nil
}

func (c *Controller) Phase() Phase { return c.phase }

func (c *Controller) Cycle() int { return c.cycle }

func (c *Controller) Planner() *swing.Planner { return c.planner }

// Torques returns the torques applied on the last tick.
func (c *Controller) Torques() dynamo.Control { return append(dynamo.Control(nil), c.torque...) }

func (c *Controller) Status() Status {
	s := Status{Phase: c.phase, Cycle: c.cycle, Landing: c.landing, Plan: c.plan}
	refs := c.planner.At(c.now - c.curveStart)
	s.Progress = [2]float64{refs[0].Progress, refs[1].Progress}
	if c.phase == Ground && !c.entering {
		s.StanceElapsed = c.now - c.stanceStart
	}
	return s
}

func (c *Controller) enter(p Phase) {
	c.phase = p
	c.entering = true
}

// Tick runs one control step at simulation time t and leaves the chosen
// torques set on the handle. The returned control is a copy of them.
//
// A non-nil error for which dynamo.IsFatal is false is a warning: the tick
// still completed with usable torques. Fatal errors leave the handle
// torques unchanged.
func (c *Controller) Tick(ctx context.Context, t float64) (dynamo.Control, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(dynamo.ErrContextCanceled, err.Error())
	}
	c.now = t

	var warn error
	justEntered := c.entering
	if c.entering {
		var err error
		switch c.phase {
		case Air:
			err = c.enterAir(t)
		case Ground:
			err = c.enterGround(t)
		}
		if dynamo.IsFatal(err) {
			return nil, err
		}
		warn = multierr.Append(warn, err)
		c.entering = false
	}

	switch c.phase {
	case Air:
		// Flight tracking also runs on the tick that planned the flight, so
		// stance torques never carry into the air.
		c.flight(t)
		if !justEntered && robot.InContact(c.handle.Contacts(), c.landing) {
			c.logger.Debugw("touchdown", "cycle", c.cycle, "leg", c.landing.String(), "t", t)
			c.enter(Ground)
		}
	case Ground:
		if err := c.stance(ctx, t); err != nil {
			if dynamo.IsFatal(err) {
				return nil, err
			}
			warn = multierr.Append(warn, err)
		}
		status := StanceStatus{
			Cycle:    c.cycle,
			Stance:   c.landing,
			Elapsed:  t - c.stanceStart,
			Duration: c.reference.Duration(),
			Contacts: c.handle.Contacts(),
		}
		if c.cfg.Liftoff.Liftoff(status) {
			c.logger.Debugw("liftoff", "cycle", c.cycle, "leg", c.landing.String(), "t", t)
			c.cycle++
			c.landing = LandingLeg(c.cycle)
			c.enter(Air)
		}
	}
	return c.Torques(), warn
}

// enterAir plans the flight from the current apex estimate.
func (c *Controller) enterAir(t float64) error {
	pos, att := c.handle.BasePose()
	lin, _ := c.handle.BaseVelocity()
	a := apex.FromBody(pos.Z, lin.X, lin.Y, lin.Z, c.cfg.Gravity)

	var warn error
	plan, err := c.selector.Plan(a, c.cycle)
	if err != nil {
		if !errors.Is(err, dynamo.ErrNumericDegeneracy) {
			return err
		}
		c.warn("apex correction degenerate, using reference controls", err)
		warn = multierr.Append(warn, err)
	}
	c.plan = plan

	td, err := swing.ComputeTouchdown(a, plan.Controls, c.cfg.Geometry.LegLength, c.cfg.Gravity)
	if err != nil {
		c.warn("touchdown above apex", err)
		warn = multierr.Append(warn, err)
	}

	timing := swing.Timing{Air: plan.Ref.AirTime, Stance: plan.Ref.StanceTime}
	if err := c.planner.Replan(td, c.landing, c.cycle, att, timing); err != nil {
		err = errors.Wrapf(dynamo.ErrNumericDegeneracy, "swing replan: %v", err)
		c.warn("keeping previous swing curves", err)
		warn = multierr.Append(warn, err)
		if !c.planner.Ready() {
			return warn
		}
	}

	c.curveStart = t
	if c.cycle == 1 {
		// The run starts at an apex, midway through a flight.
		c.curveStart = t - timing.Air/2
		refs := c.planner.At(t - c.curveStart)
		for _, leg := range robot.Legs {
			for i, j := range robot.LegJoints(leg) {
				c.handle.ResetJointState(j, refs[leg].Q[i], refs[leg].DQ[i])
			}
		}
	}
	c.logger.Debugw("flight planned",
		"cycle", c.cycle, "landing", c.landing.String(),
		"apex_h0", a.H0, "apex_vx", a.VX, "alpha", plan.Controls.Alpha, "beta", plan.Controls.Beta)
	return warn
}

// enterGround builds the stance reference from the plan of this cycle.
func (c *Controller) enterGround(t float64) error {
	c.stanceStart = t
	samples, err := c.stanceSim.Trajectory(c.plan.Apex, c.plan.Controls)
	if err == nil {
		var table *stance.Table
		if table, err = stance.NewTable(samples); err == nil {
			c.reference = table
			return nil
		}
	}
	if dynamo.IsFatal(err) {
		return err
	}
	c.warn("stance reference unavailable, holding touchdown posture", err)
	c.reference = c.holdReference()
	return err
}

// holdReference keeps the body where it is relative to the stance foot for
// the planned stance time.
func (c *Controller) holdReference() *stance.Table {
	est := c.comEstimate()
	d := c.plan.Ref.StanceTime
	if !(d > 0) {
		d = c.handle.TimeStep()
	}
	x := [6]float64{est.X, est.Y, est.Z}
	table, _ := stance.NewTable([]stance.Sample{{T: 0, X: x}, {T: d, X: x}})
	return table
}

// comEstimate is the body position relative to the stance foot.
func (c *Controller) comEstimate() r3.Vector {
	_, att := c.handle.BasePose()
	q, _ := robot.LegState(c.handle, c.landing)
	return c.cfg.Geometry.FootPosition(q, c.landing, att).Mul(-1)
}

func (c *Controller) flight(t float64) {
	refs := c.planner.At(t - c.curveStart)
	for _, leg := range robot.Legs {
		q, dq := robot.LegState(c.handle, leg)
		tau := c.cfg.Gains.Air.Joints(refs[leg].Q, refs[leg].DQ, q, dq)
		c.apply(leg, tau)
	}
}

func (c *Controller) stance(ctx context.Context, t float64) error {
	ref := c.reference.Query(t - c.stanceStart)
	_, att := c.handle.BasePose()
	lin, ang := c.handle.BaseVelocity()

	swingLeg := c.landing.Other()
	refs := c.planner.At(t - c.curveStart)
	q, dq := robot.LegState(c.handle, swingLeg)

	des := optim.Accelerations{
		COM:  c.cfg.Gains.COM.Vector(ref.Position, ref.Velocity, c.comEstimate(), lin),
		Body: c.cfg.Gains.Body.Vector(r3.Vector{}, r3.Vector{}, att.Vector(), ang),
		Foot: c.cfg.Gains.Foot.Joints(refs[swingLeg].Q, refs[swingLeg].DQ, q, dq),
	}

	tau, err := c.solver.Solve(ctx, des, c.landing)
	if tau == nil {
		if err == nil {
			err = errors.Wrap(dynamo.ErrExternalState, "torque solver returned nothing")
		}
		return err
	}
	if len(tau) != robot.NumJoints {
		return errors.Wrapf(dynamo.ErrDimensionMismatch, "%d torques for %d joints", len(tau), robot.NumJoints)
	}
	for j := range tau {
		if math.IsNaN(tau[j]) {
			return errors.Wrap(dynamo.ErrInvalidState, "solver returned NaN torque")
		}
	}
	for j, v := range tau {
		c.set(robot.Joint(j), v)
	}
	if err != nil {
		c.warn("applying unconverged torques", err)
	}
	return err
}

func (c *Controller) apply(leg robot.Leg, tau [3]float64) {
	for i, j := range robot.LegJoints(leg) {
		c.set(j, tau[i])
	}
}

func (c *Controller) set(j robot.Joint, tau float64) {
	c.handle.SetJointTorque(j, tau)
	c.torque[j] = tau
}

func (c *Controller) warn(msg string, err error) {
	c.tickLogger.Warnw(msg, "cycle", c.cycle, "phase", c.phase.String(), "leg", c.landing.String(), "error", err.Error())
}
