package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/bipedsim/internal/gait"
)

// styles are the lipgloss styles derived from one theme.
type styles struct {
	header lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	muted  lipgloss.Style
	panel  lipgloss.Style
	graph  lipgloss.Style
	air    lipgloss.Style
	ground lipgloss.Style
	warn   lipgloss.Style
	err    lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		header: lipgloss.NewStyle().Bold(true).Foreground(t.Primary).
			BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(t.Muted),
		label:  lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		value:  lipgloss.NewStyle().Foreground(t.Text),
		muted:  lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		panel:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Muted).Padding(0, 1),
		graph:  lipgloss.NewStyle().Foreground(t.Secondary),
		air:    lipgloss.NewStyle().Bold(true).Foreground(t.Air),
		ground: lipgloss.NewStyle().Bold(true).Foreground(t.Ground),
		warn:   lipgloss.NewStyle().Foreground(t.Warning),
		err:    lipgloss.NewStyle().Bold(true).Foreground(t.Error),
	}
}

func (s styles) phase(p gait.Phase) string {
	if p == gait.Ground {
		return s.ground.Render(strings.ToUpper(p.String()))
	}
	return s.air.Render(strings.ToUpper(p.String()))
}

// ProgressBar renders a bar filled to percent in [0, 1].
func ProgressBar(percent float64, width int) string {
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// SparklineChart renders at most width of the most recent values, scaled
// symmetrically around zero by limit.
func SparklineChart(values []float64, limit float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", width)
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	if limit <= 0 {
		limit = 1
	}
	var b strings.Builder
	for _, v := range values {
		norm := (v/limit + 1) / 2
		idx := int(norm * float64(len(sparkChars)-1))
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		if idx < 0 {
			idx = 0
		}
		b.WriteRune(sparkChars[idx])
	}
	return b.String()
}

func Separator(width int) string {
	if width < 8 {
		return strings.Repeat("─", width)
	}
	mid := width / 2
	return strings.Repeat("─", mid-2) + " ◆ " + strings.Repeat("─", width-mid-1)
}
