// Package automation runs scripted sequences of gait runs from yaml.
package automation

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/bipedsim/internal/config"
	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/experiment"
	"github.com/san-kum/bipedsim/internal/storage"
)

// Scenario is a named list of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a config file, a preset or the defaults, in that
// order of preference, and applies the non-zero overrides.
type ScenarioStep struct {
	Name       string  `yaml:"name"`
	Config     string  `yaml:"config"`
	Preset     string  `yaml:"preset"`
	Target     float64 `yaml:"target"`
	Duration   float64 `yaml:"duration"`
	Liftoff    string  `yaml:"liftoff"`
	Integrator string  `yaml:"integrator"`
	Save       bool    `yaml:"save"`
}

// StepResult is the outcome of one step. Result is set for every run that
// started, including aborted ones.
type StepResult struct {
	Name   string
	Result *dynamo.Result
	RunID  string
	Err    error
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(dynamo.ErrConfiguration, err.Error())
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, errors.Wrapf(dynamo.ErrConfiguration, "%s: %v", path, err)
	}
	if len(sc.Steps) == 0 {
		return nil, errors.Wrapf(dynamo.ErrConfiguration, "scenario %s has no steps", path)
	}
	return &sc, nil
}

// Resolve builds the configuration of one step.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case s.Config != "":
		var err error
		if cfg, err = config.Load(s.Config); err != nil {
			return nil, err
		}
	case s.Preset != "":
		if cfg = config.GetPreset(s.Preset); cfg == nil {
			return nil, errors.Wrapf(dynamo.ErrConfiguration, "unknown preset %q", s.Preset)
		}
	default:
		cfg = config.DefaultConfig()
	}
	if s.Target != 0 {
		cfg.Target = s.Target
		cfg.Initial.Velocity.X = s.Target
	}
	if s.Duration != 0 {
		cfg.Duration = s.Duration
	}
	if s.Liftoff != "" {
		cfg.Liftoff = s.Liftoff
	}
	if s.Integrator != "" {
		cfg.Integrator = s.Integrator
	}
	return cfg, nil
}

// RunScenario runs every step in order. A failing step does not stop the
// ones after it; the step errors are combined in the returned error. Steps
// with Save set are written to store when it is not nil.
func RunScenario(ctx context.Context, sc *Scenario, reg *experiment.Registry, store *storage.Store, logger *zap.SugaredLogger) ([]StepResult, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	results := make([]StepResult, 0, len(sc.Steps))
	var errs error
	for i, step := range sc.Steps {
		res := StepResult{Name: step.Name}
		if res.Name == "" {
			res.Name = step.Preset
		}
		logger.Infow("scenario step", "scenario", sc.Name, "step", i+1, "of", len(sc.Steps), "name", res.Name)

		res.Err = runStep(ctx, step, reg, store, logger, &res)
		if res.Err != nil {
			errs = multierr.Append(errs, errors.WithMessagef(res.Err, "step %d (%s)", i+1, res.Name))
			if errors.Is(res.Err, dynamo.ErrContextCanceled) {
				results = append(results, res)
				return results, errs
			}
		}
		results = append(results, res)
	}
	return results, errs
}

func runStep(ctx context.Context, step ScenarioStep, reg *experiment.Registry, store *storage.Store, logger *zap.SugaredLogger, res *StepResult) error {
	cfg, err := step.Resolve()
	if err != nil {
		return err
	}
	e, err := experiment.New(cfg, reg, logger)
	if err != nil {
		return err
	}
	result, runErr := e.Run(ctx)
	res.Result = result
	if step.Save && store != nil && result != nil {
		id, err := store.Save(e.Metadata(result, runErr), result)
		if err != nil {
			return multierr.Append(runErr, err)
		}
		res.RunID = id
	}
	return runErr
}
