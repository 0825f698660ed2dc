// Package export renders dashboards and traces as standalone SVG files.
package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/bipedsim/internal/viz"
)

const svgHeader = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`

// CanvasToSVG draws every dot of a braille canvas as a circle, scale
// user units apart.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}
	pw, ph := canvas.Pixels()
	width, height := float64(pw)*scale, float64(ph)*scale

	var sb strings.Builder
	fmt.Fprintf(&sb, svgHeader, width, height, width, height)
	sb.WriteString("<g fill=\"#00ff00\">\n")
	for y := 0; y < ph; y++ {
		for x := 0; x < pw; x++ {
			if canvas.IsSet(x, y) {
				fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
					(float64(x)+0.5)*scale, (float64(y)+0.5)*scale, 0.4*scale)
			}
		}
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// Point is one vertex of a polyline.
type Point struct{ X, Y float64 }

// TrajectoryToSVG draws points as a polyline fitted to width x height with
// a tenth of the data range as margin.
func TrajectoryToSVG(points []Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, svgHeader, float64(width), float64(height), float64(width), float64(height))
	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="`, strokeColor)
	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)
		cmd := " L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&sb, "%s%.1f,%.1f", cmd, x, y)
	}
	sb.WriteString("\"/>\n</svg>")
	return sb.String()
}
