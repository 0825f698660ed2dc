package apex

import (
	"github.com/pkg/errors"

	"github.com/san-kum/bipedsim/internal/dynamo"
)

// Plan is everything decided at the start of one flight phase.
type Plan struct {
	Index      int
	Ref        Pair
	Apex       State
	Correction Correction
	Controls   Controls
}

type SelectorConfig struct {
	Gain          float64
	BootstrapBeta float64
}

func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{Gain: DefaultGain, BootstrapBeta: BootstrapBeta}
}

// Selector chooses the reference pair for a fixed target velocity and
// corrects its controls from the measured apex.
type Selector struct {
	table  *Table
	jac    *Jacobians
	target float64
	cfg    SelectorConfig
}

// NewSelector fails with a configuration error when target is outside the
// table or the sensitivity matrices do not cover the table.
func NewSelector(table *Table, jac *Jacobians, target float64, cfg SelectorConfig) (*Selector, error) {
	if table == nil || jac == nil {
		return nil, errors.Wrap(dynamo.ErrConfiguration, "selector needs a pair table and sensitivity matrices")
	}
	if err := table.Validate(target); err != nil {
		return nil, err
	}
	if jac.Len() != table.Len() {
		return nil, errors.Wrapf(dynamo.ErrConfiguration, "%d sensitivity matrices for %d pairs", jac.Len(), table.Len())
	}
	return &Selector{table: table, jac: jac, target: target, cfg: cfg}, nil
}

func (s *Selector) Target() float64 { return s.target }

func (s *Selector) Table() *Table { return s.table }

// Plan selects the pair for the target velocity and returns the controls to
// apply during this cycle given the measured apex.
//
// When the correction is not finite the plan is still returned, built with
// a zero correction, together with the error wrapping
// dynamo.ErrNumericDegeneracy.
func (s *Selector) Plan(apex State, cycle int) (Plan, error) {
	ref, idx, err := s.table.Select(s.target)
	if err != nil {
		return Plan{}, err
	}
	corr, corrErr := ComputeCorrection(apex, ref, s.jac.Lookup(ref.Speed()))
	if corrErr != nil {
		if !errors.Is(corrErr, dynamo.ErrNumericDegeneracy) {
			return Plan{}, corrErr
		}
		corr = Correction{}
	}
	return Plan{
		Index:      idx,
		Ref:        ref,
		Apex:       apex,
		Correction: corr,
		Controls:   CycleControl(ref, corr, cycle, s.cfg.Gain, s.cfg.BootstrapBeta),
	}, corrErr
}
