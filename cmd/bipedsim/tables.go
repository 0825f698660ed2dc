package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/bipedsim/internal/analysis"
	"github.com/san-kum/bipedsim/internal/apex"
	"github.com/san-kum/bipedsim/internal/config"
	"github.com/san-kum/bipedsim/internal/experiment"
	"github.com/san-kum/bipedsim/internal/gait"
	"github.com/san-kum/bipedsim/internal/robot"
	"github.com/san-kum/bipedsim/internal/slip"
	"github.com/san-kum/bipedsim/internal/swing"
)

func buildTable(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetFloat64("from")
	to, _ := cmd.Flags().GetFloat64("to")
	step, _ := cmd.Flags().GetFloat64("step")
	out, _ := cmd.Flags().GetString("out")
	jacOut, _ := cmd.Flags().GetString("jacobians-out")

	speeds, err := speedRange(from, to, step)
	if err != nil {
		return err
	}
	cfg := config.DefaultConfig()
	model, err := slip.NewSimulator(cfg.SLIP)
	if err != nil {
		return err
	}

	start := time.Now()
	table, err := model.BuildTable(speeds, slip.DefaultSearch())
	if err != nil {
		return err
	}
	if err := writeFile(out, table.Write); err != nil {
		return err
	}
	fmt.Printf("%d periodic pairs in %v -> %s\n", table.Len(), time.Since(start), out)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SPEED\tHEIGHT\tALPHA\tAIR\tSTANCE")
	for i := 0; i < table.Len(); i++ {
		p := table.Pair(i)
		fmt.Fprintf(w, "%.3f\t%.3f\t%.4f\t%.4f\t%.4f\n", p.Speed(), p.Apex.H0, p.Controls.Alpha, p.AirTime, p.StanceTime)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if jacOut == "" {
		return nil
	}
	jac, err := model.Jacobians(table, cfg.JacobianStep)
	if err != nil {
		return err
	}
	if err := writeFile(jacOut, jac.Write); err != nil {
		return err
	}
	fmt.Printf("%d sensitivity matrices -> %s\n", jac.Len(), jacOut)
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func plotSwing(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	cycle, _ := cmd.Flags().GetInt("cycle")
	logger := newLogger()
	defer logger.Sync()

	tables, err := experiment.LoadTables(cfg, logger)
	if err != nil {
		return err
	}
	sel, err := apex.NewSelector(tables.Pairs, tables.Jacobians, cfg.Target, cfg.Selector.Apex())
	if err != nil {
		return err
	}
	ref, _, err := tables.Pairs.Select(cfg.Target)
	if err != nil {
		return err
	}

	// Plan from the reference apex itself, so the correction is zero.
	plan, err := sel.Plan(ref.Apex, cycle)
	if err != nil {
		return err
	}
	geo := cfg.Robot.Geometry
	td, err := swing.ComputeTouchdown(plan.Apex, plan.Controls, geo.LegLength, cfg.Robot.Gravity)
	if err != nil {
		logger.Warnw("touchdown above apex", "error", err)
	}
	landing := gait.LandingLeg(cycle)
	planner := swing.NewPlanner(geo, logger.Named("swing"))
	timing := swing.Timing{Air: plan.Ref.AirTime, Stance: plan.Ref.StanceTime}
	if err := planner.Replan(td, landing, cycle, robot.Attitude{}, timing); err != nil {
		return err
	}

	fmt.Printf("cycle %d, landing %s: alpha %.4f beta %.4f, touchdown (%.3f, %.3f, %.3f)\n",
		cycle, landing, plan.Controls.Alpha, plan.Controls.Beta, td.Position.X, td.Position.Y, td.Position.Z)
	fmt.Printf("curve span %.3fs (air %.3fs, stance %.3fs)\n\n", timing.Cycle(), timing.Air, timing.Stance)

	for _, leg := range robot.Legs {
		samples := planner.Samples(leg)
		series := make([][]float64, 3)
		for _, q := range samples {
			for i := range series {
				series[i] = append(series[i], q[i])
			}
		}
		joints := robot.LegJoints(leg)
		graph := asciigraph.PlotMany(series,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s leg: %s, %s, %s [rad]", leg, joints[0], joints[1], joints[2])),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func tuneGain(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	lo, _ := cmd.Flags().GetFloat64("min")
	hi, _ := cmd.Flags().GetFloat64("max")
	n, _ := cmd.Flags().GetInt("points")
	gains, err := experiment.GainGrid(lo, hi, n)
	if err != nil {
		return err
	}

	logger := newLogger()
	defer logger.Sync()
	tables, err := experiment.LoadTables(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	start := time.Now()
	tunings, err := experiment.TuneGain(ctx, tables, cfg.SLIP, gains, cfg.JacobianStep)
	if err != nil {
		return err
	}
	fmt.Printf("%d pairs x %d gains in %v\n\n", len(tunings), len(gains), time.Since(start))

	model, err := slip.NewSimulator(cfg.SLIP)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SPEED\tBEST GAIN\tRADIUS\tRADIUS AT %.3f\n", cfg.Selector.Gain)
	for i, t := range tunings {
		current := "-"
		pair := tables.Pairs.Pair(i)
		eig, err := analysis.ReturnMapEigenvalues(model, pair, tables.Jacobians.Lookup(pair.Speed()), cfg.Selector.Gain, cfg.JacobianStep)
		if err == nil {
			current = fmt.Sprintf("%.4f", analysis.SpectralRadius(eig))
		}
		fmt.Fprintf(w, "%.3f\t%.3f\t%.4f\t%s\n", t.Speed, t.Best.Gain, t.Best.Radius, current)
	}
	return w.Flush()
}
