package viz

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
)

// Camera projects camera-space points (x right, y up, z towards the viewer)
// onto a canvas.
type Camera struct {
	Distance   float64
	RotX, RotY float64
	Zoom       float64
}

func NewCamera() *Camera {
	return &Camera{Distance: 6, Zoom: 1}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

func (c *Camera) RotatePoint(p r3.Vector) r3.Vector {
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	return p
}

// Project maps p to pixel coordinates on a sw x sh pixel canvas and returns
// its depth and whether it lands on the canvas.
func (c *Camera) Project(p r3.Vector, sw, sh int) (int, int, float64, bool) {
	rot := c.RotatePoint(p).Mul(c.Zoom)
	if rot.Z >= c.Distance-0.1 {
		return 0, 0, 0, false
	}
	scale := c.Distance / (c.Distance - rot.Z)
	pScale := math.Min(float64(sw), float64(sh)) / 3.0
	sx := int(rot.X*scale*pScale) + sw/2
	sy := int(-rot.Y*scale*pScale) + sh/2
	return sx, sy, rot.Z, sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

type Edge struct {
	Start, End r3.Vector
}

type Wireframe struct{ Edges []Edge }

func NewWireframe() *Wireframe { return &Wireframe{Edges: make([]Edge, 0)} }

func (w *Wireframe) AddEdge(s, e r3.Vector) { w.Edges = append(w.Edges, Edge{s, e}) }
func (w *Wireframe) AddPoint(p r3.Vector)   { w.Edges = append(w.Edges, Edge{p, p}) }

type projectedEdge struct {
	x1, y1, x2, y2 int
	depth          float64
}

// Render3D draws the wireframe back to front.
func Render3D(c *Canvas, w *Wireframe, cam *Camera) {
	if c == nil || w == nil || cam == nil {
		return
	}
	pw, ph := c.Pixels()
	proj := make([]projectedEdge, 0, len(w.Edges))
	for _, e := range w.Edges {
		x1, y1, d1, v1 := cam.Project(e.Start, pw, ph)
		x2, y2, d2, v2 := cam.Project(e.End, pw, ph)
		if v1 || v2 {
			proj = append(proj, projectedEdge{x1, y1, x2, y2, (d1 + d2) / 2})
		}
	}
	sort.Slice(proj, func(i, j int) bool { return proj[i].depth < proj[j].depth })
	for _, e := range proj {
		if e.x1 == e.x2 && e.y1 == e.y2 {
			c.Set(e.x1, e.y1)
		} else {
			c.DrawLine(e.x1, e.y1, e.x2, e.y2)
		}
	}
}
