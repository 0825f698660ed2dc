package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/bipedsim/internal/gait"
	"github.com/san-kum/bipedsim/internal/kinematics"
	"github.com/san-kum/bipedsim/internal/robot"
	"github.com/san-kum/bipedsim/internal/sim"
)

const (
	canvasWidth     = 40
	canvasHeight    = 18
	historyCapacity = 600
	sparkWidth      = 24
)

// Info is the static description of a watched run.
type Info struct {
	Target      float64
	Duration    float64
	Geometry    kinematics.Geometry
	TorqueLimit float64
	Theme       string
}

// Model is the bubbletea model of the live dashboard.
type Model struct {
	info   Info
	feed   *Feed
	theme  Theme
	styles styles
	canvas *Canvas
	camera *Camera

	frame   sim.Frame
	seen    bool
	heights []float64
	torques [robot.NumJoints][]float64

	paused   bool
	done     bool
	err      error
	showHelp bool
	noFigure bool
}

func NewModel(info Info, feed *Feed) Model {
	if info.Geometry.LegLength <= 0 {
		info.Geometry = kinematics.DefaultGeometry()
	}
	theme := GetTheme(info.Theme)
	return Model{
		info:    info,
		feed:    feed,
		theme:   theme,
		styles:  newStyles(theme),
		canvas:  NewCanvas(canvasWidth, canvasHeight),
		camera:  NewCamera(),
		heights: make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd { return m.feed.wait() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "t":
			m.theme = nextTheme(m.theme)
			m.styles = newStyles(m.theme)
		case "f":
			m.noFigure = !m.noFigure
		case "left", "h":
			m.camera.RotateY(-0.2)
		case "right", "l":
			m.camera.RotateY(0.2)
		case "up", "k":
			m.camera.RotateX(-0.1)
		case "down", "j":
			m.camera.RotateX(0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		case "?":
			m.showHelp = !m.showHelp
		}
	case frameMsg:
		if !m.paused {
			m.observe(sim.Frame(msg))
		}
		return m, m.feed.wait()
	case doneMsg:
		m.done = true
		m.err = msg.err
	}
	return m, nil
}

func (m *Model) observe(f sim.Frame) {
	m.frame = f
	m.seen = true
	if len(f.State) >= robot.StateDim {
		m.heights = appendCapped(m.heights, f.State[robot.StatePosition+2])
	}
	for j := range m.torques {
		if j < len(f.Control) {
			m.torques[j] = appendCapped(m.torques[j], f.Control[j])
		}
	}
}

func appendCapped(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyCapacity {
		xs = xs[len(xs)-historyCapacity:]
	}
	return xs
}

func (m Model) status() string {
	switch {
	case m.done && m.err != nil:
		return m.styles.err.Render("ABORTED: " + m.err.Error())
	case m.done:
		return m.styles.ground.Render("FINISHED")
	case m.paused:
		return m.styles.warn.Render("PAUSED")
	}
	return m.styles.value.Render("RUNNING")
}

func (m Model) View() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.header.Render(fmt.Sprintf("BIPEDSIM  target %.2f m/s", m.info.Target)) + "\n")
	b.WriteString(m.status() + "\n\n")

	if !m.seen {
		b.WriteString(s.muted.Render("waiting for the first frame...") + "\n")
		return b.String()
	}

	f := m.frame
	x := f.State
	row := func(label, value string) {
		b.WriteString(s.label.Render(label) + s.value.Render(value) + "\n")
	}
	progress := 0.0
	if m.info.Duration > 0 {
		progress = f.Time / m.info.Duration
	}
	row("Time", fmt.Sprintf("%.3fs %s", f.Time, ProgressBar(progress, 16)))
	b.WriteString(s.label.Render("Phase") + s.phase(f.Phase) + "\n")
	row("Cycle", fmt.Sprintf("%d (landing %s)", f.Cycle, gait.LandingLeg(f.Cycle)))
	if len(x) >= robot.StateDim {
		row("Height", fmt.Sprintf("%.3f m", x[robot.StatePosition+2]))
		row("Speed", fmt.Sprintf("%.3f m/s", x[robot.StateLinear]))
		row("Roll/Pitch", fmt.Sprintf("%+.3f %+.3f rad", x[robot.StateAttitude], x[robot.StateAttitude+1]))
	}

	b.WriteString("\n" + s.muted.Render("torques") + "\n")
	for j := range m.torques {
		last := 0.0
		if n := len(m.torques[j]); n > 0 {
			last = m.torques[j][n-1]
		}
		line := fmt.Sprintf("%-12s %s %+7.2f", robot.Joint(j).String(), SparklineChart(m.torques[j], m.info.TorqueLimit, sparkWidth), last)
		b.WriteString(s.graph.Render(line) + "\n")
	}

	if len(m.heights) > 1 {
		chart := asciigraph.Plot(m.heights,
			asciigraph.Height(6), asciigraph.Width(40), asciigraph.Precision(2),
			asciigraph.Caption("base height [m]"))
		b.WriteString("\n" + s.graph.Render(chart) + "\n")
	}

	b.WriteString("\n" + s.muted.Render(fmt.Sprintf("dropped frames: %d", m.feed.Dropped())) + "\n")
	b.WriteString(s.muted.Render(Separator(40)) + "\n")
	b.WriteString(s.muted.Render("SP:Pause T:Theme F:Figure ?:Help Q:Quit"))

	stats := s.panel.Render(b.String())
	view := stats
	if !m.noFigure {
		m.canvas.Clear()
		DrawRobot(m.canvas, m.camera, x, m.info.Geometry)
		view = lipgloss.JoinHorizontal(lipgloss.Top, s.panel.Render(m.canvas.String()), stats)
	}
	if m.showHelp {
		return helpText + "\n" + view
	}
	return view
}

const helpText = `
  Space      pause/resume the display
  T          cycle colour themes
  F          toggle the robot figure
  Arrows/HJKL rotate the camera
  + / -      zoom
  ?          toggle this help
  Q          quit and stop the run
`
