package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/bipedsim/internal/config"
	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/logging"
)

var (
	dataDir    string
	debug      bool
	configFile string
	preset     string
	target     float64
	dt         float64
	duration   float64
	integrator string
	solver     string
	liftoff    string
	tablePath  string
	jacobians  string
	gain       float64
	gainSet    map[string]string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "bipedsim",
		Short:         "apex-driven running controller for a 3D biped",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".bipedsim", "data directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the controller and store the trace",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().Bool("no-save", false, "do not store the run")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "run the controller on the live dashboard",
		Args:  cobra.NoArgs,
		RunE:  watchSimulation,
	}
	addConfigFlags(watchCmd)
	watchCmd.Flags().Float64("speed", 0.25, "playback speed relative to real time (0 = unpaced)")
	watchCmd.Flags().Int("every", 10, "physics steps per dashboard frame")
	watchCmd.Flags().String("theme", "cyberpunk", "color theme")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run one simulation per target speed in parallel",
		Args:  cobra.NoArgs,
		RunE:  sweepTargets,
	}
	addConfigFlags(sweepCmd)
	sweepCmd.Flags().Float64("from", 1.5, "lowest target speed")
	sweepCmd.Flags().Float64("to", 3.5, "highest target speed")
	sweepCmd.Flags().Float64("step", 0.5, "target speed increment")
	sweepCmd.Flags().Int("workers", 0, "concurrent runs (0 = one per CPU)")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a yaml scenario of several runs",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot base height, speed and pitch of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().String("svg", "", "also write the sagittal path (x, z) to this SVG file")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "stride frequency, apex section and phase portrait of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	snapshotCmd := &cobra.Command{
		Use:   "snapshot [run_id]",
		Short: "draw the robot pose at one instant of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  snapshotRun,
	}
	snapshotCmd.Flags().Float64("at", 0, "time of the pose in seconds")
	snapshotCmd.Flags().String("svg", "", "write the figure to this SVG file instead of the terminal")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a run trace as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringP("output", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run with its metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringP("output", "o", "", "output file (default stdout)")

	tableCmd := &cobra.Command{
		Use:   "table",
		Short: "compute periodic pairs and sensitivity matrices from the spring-mass model",
		Args:  cobra.NoArgs,
		RunE:  buildTable,
	}
	tableCmd.Flags().Float64("from", 1, "lowest speed")
	tableCmd.Flags().Float64("to", 4, "highest speed")
	tableCmd.Flags().Float64("step", 0.5, "speed increment")
	tableCmd.Flags().String("out", "configs/stable_pair.csv", "pair table output")
	tableCmd.Flags().String("jacobians-out", "", "sensitivity matrix output (skipped when empty)")

	swingCmd := &cobra.Command{
		Use:   "swing",
		Short: "plot the planned swing curves for the target speed",
		Args:  cobra.NoArgs,
		RunE:  plotSwing,
	}
	addConfigFlags(swingCmd)
	swingCmd.Flags().Int("cycle", 2, "cycle number to plan")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "pick the correction gain minimising the return-map spectral radius",
		Args:  cobra.NoArgs,
		RunE:  tuneGain,
	}
	addConfigFlags(tuneCmd)
	tuneCmd.Flags().Float64("min", 0, "smallest gain")
	tuneCmd.Flags().Float64("max", 1.5, "largest gain")
	tuneCmd.Flags().Int("points", 16, "grid points")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.Presets[name]
				fmt.Printf("  %-8s target %.1f m/s, %.1fs, liftoff %s: %s\n", name, p.Target, p.Duration, p.Liftoff, p.Description)
			}
			return nil
		},
	}

	gainsCmd := &cobra.Command{
		Use:   "gains",
		Short: "show the PD gains of the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			params := cfg.Gains.GetParams()
			for _, name := range cfg.Gains.ParamNames() {
				fmt.Printf("  %-8s %g\n", name, params[name])
			}
			fmt.Printf("  %-8s %g\n", "apex", cfg.Selector.Gain)
			return nil
		},
	}
	addConfigFlags(gainsCmd)

	rootCmd.AddCommand(gainsCmd, runCmd, watchCmd, sweepCmd, scenarioCmd, listCmd, plotCmd, analyzeCmd,
		snapshotCmd, exportCSVCmd, exportJSONCmd, tableCmd, swingCmd, tuneCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, dynamo.ErrConfiguration) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "start from a preset (see presets)")
	cmd.Flags().Float64Var(&target, "target", config.DefaultTarget, "target forward speed [m/s]")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "physics time step")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration [s]")
	cmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator")
	cmd.Flags().StringVar(&solver, "solver", "bfgs", "torque solver")
	cmd.Flags().StringVar(&liftoff, "liftoff", "", "liftoff policy (never, stance-elapsed)")
	cmd.Flags().StringVar(&tablePath, "table", config.DefaultTable, "pair table CSV")
	cmd.Flags().StringVar(&jacobians, "jacobians", "", "sensitivity matrix CSV (computed when empty)")
	cmd.Flags().Float64Var(&gain, "gain", 0, "apex correction gain")
	cmd.Flags().StringToStringVar(&gainSet, "set-gain", nil, "override PD gains, e.g. com.kp=120,body.kd=5")
}

// resolveConfig starts from the config file, the preset or the defaults and
// applies every flag set on the command line.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, err
		}
	case preset != "":
		if cfg = config.GetPreset(preset); cfg == nil {
			return nil, errors.Wrapf(dynamo.ErrConfiguration, "unknown preset %q (available: %v)", preset, config.ListPresets())
		}
	default:
		cfg = config.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("target") {
		cfg.Target = target
		cfg.Initial.Velocity.X = target
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("solver") {
		cfg.Solver.Method = solver
	}
	if flags.Changed("liftoff") {
		cfg.Liftoff = liftoff
	}
	if flags.Changed("table") {
		cfg.Table = tablePath
	}
	if flags.Changed("jacobians") {
		cfg.Jacobians = jacobians
	}
	if flags.Changed("gain") {
		cfg.Selector.Gain = gain
	}
	for name, raw := range gainSet {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.Wrapf(dynamo.ErrConfiguration, "gain %s: %v", name, err)
		}
		if err := cfg.Gains.SetParam(name, v); err != nil {
			return nil, errors.Wrapf(dynamo.ErrConfiguration, "%v (known: %v)", err, cfg.Gains.ParamNames())
		}
	}
	return cfg, cfg.Validate()
}

func newLogger() *zap.SugaredLogger {
	if debug {
		return logging.NewDebugLogger("bipedsim")
	}
	return logging.NewLogger("bipedsim")
}
