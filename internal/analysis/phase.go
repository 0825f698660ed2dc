package analysis

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/bipedsim/internal/robot"
)

// PlanePoint is one sample of a phase portrait.
type PlanePoint struct{ X, Y float64 }

// PhasePortrait2D is a trace projected onto two state channels.
type PhasePortrait2D struct {
	XIndex, YIndex int
	Points         []PlanePoint
}

// PhasePortrait pairs two channels of a recorded trace, for example base
// height against vertical velocity. It returns nil if a row lacks either
// channel.
func PhasePortrait(states [][]float64, xIdx, yIdx int) *PhasePortrait2D {
	portrait := &PhasePortrait2D{XIndex: xIdx, YIndex: yIdx, Points: make([]PlanePoint, 0, len(states))}
	for _, x := range states {
		if xIdx >= len(x) || yIdx >= len(x) {
			return nil
		}
		portrait.Points = append(portrait.Points, PlanePoint{X: x[xIdx], Y: x[yIdx]})
	}
	return portrait
}

// span is a padded plotting range mapped onto n cells.
type span struct{ lo, hi float64 }

func newSpan(vs []float64) span {
	lo, hi := floats.Min(vs), floats.Max(vs)
	pad := 0.1 * (hi - lo)
	if pad == 0 {
		pad = 0.1
	}
	return span{lo - pad, hi + pad}
}

func (s span) cell(v float64, n int) int {
	return int((v - s.lo) / (s.hi - s.lo) * float64(n-1))
}

func (s span) contains(v float64) bool { return s.lo <= v && v <= s.hi }

// PhasePortraitToASCII draws the portrait as a width by height grid of
// dots, with the zero axes where they are in range.
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width < 2 || height < 2 {
		return ""
	}
	xs := make([]float64, len(portrait.Points))
	ys := make([]float64, len(portrait.Points))
	for i, p := range portrait.Points {
		xs[i], ys[i] = p.X, p.Y
	}
	sx, sy := newSpan(xs), newSpan(ys)

	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", width))
	}
	if sx.contains(0) {
		c := sx.cell(0, width)
		for r := range grid {
			grid[r][c] = '│'
		}
	}
	if sy.contains(0) {
		r := height - 1 - sy.cell(0, height)
		for c := range grid[r] {
			if grid[r][c] == ' ' {
				grid[r][c] = '─'
			}
		}
	}
	for _, p := range portrait.Points {
		grid[height-1-sy.cell(p.Y, height)][sx.cell(p.X, width)] = '•'
	}

	var sb strings.Builder
	for _, row := range grid {
		sb.WriteString(string(row))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ApexPoint is the body state at one flight apex.
type ApexPoint struct {
	Time   float64
	Height float64
	Speed  float64
}

// ApexSection is the Poincare section of a trace at vertical velocity zero
// on the way down. Crossing time and height are interpolated between the
// bracketing samples.
func ApexSection(states [][]float64, times []float64) []ApexPoint {
	var out []ApexPoint
	for i := 1; i < len(states) && i < len(times); i++ {
		prev, curr := states[i-1], states[i]
		if len(prev) < robot.StateDim || len(curr) < robot.StateDim {
			return out
		}
		v0, v1 := prev[robot.StateLinear+2], curr[robot.StateLinear+2]
		if !(v0 > 0 && v1 <= 0) {
			continue
		}
		frac := v0 / (v0 - v1)
		if math.IsNaN(frac) || math.IsInf(frac, 0) {
			frac = 0.5
		}
		lerp := func(a, b float64) float64 { return a + frac*(b-a) }
		out = append(out, ApexPoint{
			Time:   lerp(times[i-1], times[i]),
			Height: lerp(prev[robot.StatePosition+2], curr[robot.StatePosition+2]),
			Speed:  lerp(prev[robot.StateLinear], curr[robot.StateLinear]),
		})
	}
	return out
}

// ApexSectionToASCII plots apex height against forward speed.
func ApexSectionToASCII(section []ApexPoint, width, height int) string {
	if len(section) == 0 {
		return "No apexes detected"
	}
	portrait := &PhasePortrait2D{}
	for _, p := range section {
		portrait.Points = append(portrait.Points, PlanePoint{X: p.Speed, Y: p.Height})
	}
	return PhasePortraitToASCII(portrait, width, height)
}
