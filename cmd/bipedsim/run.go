package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/bipedsim/internal/automation"
	"github.com/san-kum/bipedsim/internal/experiment"
	"github.com/san-kum/bipedsim/internal/sim"
	"github.com/san-kum/bipedsim/internal/storage"
	"github.com/san-kum/bipedsim/internal/viz"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger()
	defer logger.Sync()

	exp, err := experiment.New(cfg, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}

	fmt.Printf("Running %s integrator, %s solver, target %.2f m/s for %.2fs (dt %g)\n",
		cfg.Integrator, cfg.Solver.Method, cfg.Target, cfg.Duration, cfg.Dt)
	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	result, runErr := exp.Run(ctx)
	elapsed := time.Since(start)
	if result == nil {
		return runErr
	}
	fmt.Printf("%d steps in %v, %d cycles, %d warnings\n", result.StepsTaken, elapsed, maxCycle(result.Cycles), result.Warnings)
	if runErr != nil {
		fmt.Printf("aborted: %v\n", runErr)
	}

	if noSave, _ := cmd.Flags().GetBool("no-save"); !noSave {
		store := storage.New(dataDir)
		if err := store.Init(); err != nil {
			return err
		}
		id, err := store.Save(exp.Metadata(result, runErr), result)
		if err != nil {
			return errors.WithMessage(err, "saving run")
		}
		fmt.Printf("Saved run %s\n", id)
	}

	printMetrics(result.Metrics)
	return runErr
}

func printMetrics(m map[string]float64) {
	if len(m) == 0 {
		return
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nMetrics:")
	for _, name := range names {
		fmt.Printf("  %-18s %.4f\n", name, m[name])
	}
}

func maxCycle(cycles []int) int {
	n := 0
	for _, c := range cycles {
		if c > n {
			n = c
		}
	}
	return n
}

func watchSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	// The dashboard owns the terminal, so logging stays off unless asked for.
	logger := zap.NewNop().Sugar()
	if debug {
		logger = newLogger()
	}

	exp, err := experiment.New(cfg, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}
	speed, _ := cmd.Flags().GetFloat64("speed")
	every, _ := cmd.Flags().GetInt("every")
	theme, _ := cmd.Flags().GetString("theme")

	ctx, cancel := signalContext()
	defer cancel()
	return viz.Watch(ctx, exp.Simulator, cfg.RunConfig(), viz.Options{
		Info: viz.Info{
			Target:      cfg.Target,
			Duration:    cfg.Duration,
			Geometry:    cfg.Robot.Geometry,
			TorqueLimit: cfg.Solver.TorqueLimit,
			Theme:       theme,
		},
		Buffer: 256,
		Every:  every,
		Speed:  speed,
	})
}

func sweepTargets(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	from, _ := cmd.Flags().GetFloat64("from")
	to, _ := cmd.Flags().GetFloat64("to")
	step, _ := cmd.Flags().GetFloat64("step")
	workers, _ := cmd.Flags().GetInt("workers")
	targets, err := speedRange(from, to, step)
	if err != nil {
		return err
	}

	logger := newLogger()
	defer logger.Sync()
	reg := experiment.NewRegistry()
	tables, err := experiment.LoadTables(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	fmt.Printf("Sweeping %d targets over %.2fs each\n", len(targets), cfg.Duration)
	build := experiment.Factory(cfg, tables, reg, logger.Named("sweep"))
	results, sweepErr := sim.NewEnsemble(build, workers).Run(ctx, targets, cfg.RunConfig())

	fmt.Printf("\n%-8s %-8s %-8s %-10s %-10s %s\n", "TARGET", "STEPS", "CYCLES", "SPEED", "SPD_ERR", "STATUS")
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		if r.Result == nil {
			fmt.Printf("%-8.2f %-8s %-8s %-10s %-10s %s\n", r.Target, "-", "-", "-", "-", status)
			continue
		}
		fmt.Printf("%-8.2f %-8d %-8d %-10.3f %-10.3f %s\n", r.Target, r.Result.StepsTaken, maxCycle(r.Result.Cycles),
			r.Result.Metrics["forward_speed"], r.Result.Metrics["speed_error"], status)
	}
	return sweepErr
}

func speedRange(from, to, step float64) ([]float64, error) {
	if !(step > 0) || to < from {
		return nil, errors.Errorf("invalid speed range %g..%g step %g", from, to, step)
	}
	var out []float64
	for v := from; v <= to+1e-9; v += step {
		out = append(out, v)
	}
	return out, nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	logger := newLogger()
	defer logger.Sync()

	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("Scenario %s: %d steps\n", sc.Name, len(sc.Steps))
	results, err := automation.RunScenario(ctx, sc, experiment.NewRegistry(), store, logger)
	for _, r := range results {
		line := fmt.Sprintf("  %-16s", r.Name)
		if r.Result != nil {
			line += fmt.Sprintf(" %6d steps %3d cycles", r.Result.StepsTaken, maxCycle(r.Result.Cycles))
		}
		if r.RunID != "" {
			line += " saved " + r.RunID
		}
		if r.Err != nil {
			line += " error: " + r.Err.Error()
		}
		fmt.Println(line)
	}
	return err
}
