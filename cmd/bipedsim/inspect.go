package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/san-kum/bipedsim/internal/analysis"
	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/export"
	"github.com/san-kum/bipedsim/internal/kinematics"
	"github.com/san-kum/bipedsim/internal/robot"
	"github.com/san-kum/bipedsim/internal/storage"
	"github.com/san-kum/bipedsim/internal/viz"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTARGET\tINTEGRATOR\tSOLVER\tLIFTOFF\tSTEPS\tCYCLES\tWARNINGS\tSTATUS")
	for _, r := range runs {
		status := "ok"
		if r.Aborted != "" {
			status = "aborted"
		}
		fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.Target, r.Integrator, r.Solver, r.Liftoff, r.Steps, r.Cycles, r.Warnings, status)
	}
	return w.Flush()
}

// column extracts one state channel from every row.
func column(states [][]float64, idx int) []float64 {
	out := make([]float64, 0, len(states))
	for _, s := range states {
		if idx < len(s) {
			out = append(out, s[idx])
		}
	}
	return out
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	states, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return errors.New("no data")
	}

	fmt.Printf("run %s: target %.2f m/s, %d steps, %d cycles\n\n", meta.ID, meta.Target, meta.Steps, meta.Cycles)

	channels := []struct {
		idx     int
		caption string
	}{
		{robot.StatePosition + 2, "base height [m]"},
		{robot.StateLinear, "forward speed [m/s]"},
		{robot.StateAttitude + 1, "pitch [rad]"},
	}
	for _, ch := range channels {
		data := downsample(column(states, ch.idx), 400)
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(ch.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if path, _ := cmd.Flags().GetString("svg"); path != "" {
		points := make([]export.Point, len(states))
		for i, s := range states {
			points[i] = export.Point{X: s[robot.StatePosition], Y: s[robot.StatePosition+2]}
		}
		if err := os.WriteFile(path, []byte(export.TrajectoryToSVG(points, 800, 300, "#00ff9f")), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
	}
	return nil
}

// downsample keeps at most n evenly spaced samples.
func downsample(data []float64, n int) []float64 {
	if len(data) <= n {
		return data
	}
	out := make([]float64, n)
	step := float64(len(data)-1) / float64(n-1)
	for i := range out {
		out[i] = data[int(math.Round(float64(i)*step))]
	}
	return out
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	states, times, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) < 2 {
		return errors.New("no data")
	}

	fmt.Printf("analysis: %s (target %.2f m/s)\n\n", meta.ID, meta.Target)

	height := column(states, robot.StatePosition+2)
	if f, err := analysis.StrideFrequency(height, meta.Dt); err != nil {
		fmt.Printf("stride frequency: %v\n", err)
	} else {
		fmt.Printf("stride frequency: %.3f hz (period %.3f s)\n", f, 1/f)
	}

	section := analysis.ApexSection(states, times)
	fmt.Printf("apexes: %d\n\n", len(section))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tHEIGHT\tSPEED")
	for _, a := range section {
		fmt.Fprintf(w, "%.3f\t%.4f\t%.4f\n", a.Time, a.Height, a.Speed)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println()
	fmt.Println("apex height vs forward speed:")
	fmt.Println(analysis.ApexSectionToASCII(section, 60, 15))
	fmt.Println()

	fmt.Println("phase portrait, height vs vertical velocity:")
	portrait := analysis.PhasePortrait(states, robot.StatePosition+2, robot.StateLinear+2)
	fmt.Println(analysis.PhasePortraitToASCII(portrait, 60, 20))
	return nil
}

func snapshotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	at, _ := cmd.Flags().GetFloat64("at")
	path, _ := cmd.Flags().GetString("svg")

	st := storage.New(dataDir)
	states, times, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return errors.New("no data")
	}

	i := nearestTime(times, at)
	if len(states[i]) < robot.StateDim {
		return errors.Wrapf(dynamo.ErrDimensionMismatch, "state row has %d channels", len(states[i]))
	}
	canvas := viz.NewCanvas(60, 24)
	viz.DrawRobot(canvas, viz.NewCamera(), dynamo.State(states[i]), kinematics.DefaultGeometry())

	if path == "" {
		fmt.Printf("t = %.3f s\n", times[i])
		fmt.Print(canvas.String())
		return nil
	}
	if err := os.WriteFile(path, []byte(export.CanvasToSVG(canvas, 4)), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (t = %.3f s)\n", path, times[i])
	return nil
}

func nearestTime(times []float64, t float64) int {
	best := 0
	for i, v := range times {
		if math.Abs(v-t) < math.Abs(times[best]-t) {
			best = i
		}
	}
	return best
}

// output opens the -o file of an export command, or stdout.
func output(cmd *cobra.Command) (io.WriteCloser, error) {
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	tr, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}
	w, err := output(cmd)
	if err != nil {
		return err
	}
	defer w.Close()
	return storage.WriteCSV(w, storage.TraceResult(tr))
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	tr, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}
	w, err := output(cmd)
	if err != nil {
		return err
	}
	defer w.Close()
	return storage.ExportJSON(w, *meta, storage.TraceResult(tr))
}
