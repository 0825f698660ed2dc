package export

import (
	"strings"
	"testing"

	"github.com/san-kum/bipedsim/internal/viz"
)

func TestCanvasToSVG(t *testing.T) {
	c := viz.NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)

	svg := CanvasToSVG(c, 10)
	if n := strings.Count(svg, "<circle"); n != 2 {
		t.Fatalf("circles = %d, want 2", n)
	}
	for _, want := range []string{`width="40" height="40"`, `cx="5.0" cy="5.0" r="4.0"`, `cx="35.0" cy="35.0"`} {
		if !strings.Contains(svg, want) {
			t.Errorf("missing %q", want)
		}
	}
	if CanvasToSVG(nil, 1) != "" {
		t.Error("nil canvas rendered")
	}
}

func TestTrajectoryToSVG(t *testing.T) {
	svg := TrajectoryToSVG([]Point{{0, 0}, {1, 1}}, 120, 120, "#fff")
	if !strings.Contains(svg, `d="M10.0,110.0 L110.0,10.0"`) {
		t.Errorf("unexpected path in %s", svg)
	}
	if TrajectoryToSVG([]Point{{0, 0}}, 10, 10, "#fff") != "" {
		t.Error("single point rendered")
	}
}
