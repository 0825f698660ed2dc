package control

import (
	"fmt"
	"sort"
	"strings"

	"github.com/golang/geo/r3"
)

// PD is a proportional-derivative law on a reference and its rate.
type PD struct {
	Kp float64 `yaml:"kp"`
	Kd float64 `yaml:"kd"`
}

func NewPD(kp, kd float64) PD {
	return PD{Kp: kp, Kd: kd}
}

// Compute returns Kp*(ref-x) + Kd*(refRate-xRate).
func (p PD) Compute(ref, refRate, x, xRate float64) float64 {
	return p.Kp*(ref-x) + p.Kd*(refRate-xRate)
}

// Vector applies Compute per axis.
func (p PD) Vector(ref, refRate, x, xRate r3.Vector) r3.Vector {
	return r3.Vector{
		X: p.Compute(ref.X, refRate.X, x.X, xRate.X),
		Y: p.Compute(ref.Y, refRate.Y, x.Y, xRate.Y),
		Z: p.Compute(ref.Z, refRate.Z, x.Z, xRate.Z),
	}
}

// Joints applies Compute to three joints.
func (p PD) Joints(ref, refRate, x, xRate [3]float64) [3]float64 {
	var out [3]float64
	for i := range out {
		out[i] = p.Compute(ref[i], refRate[i], x[i], xRate[i])
	}
	return out
}

// Gains are the four laws of the running controller.
type Gains struct {
	// Air tracks both swing curves with joint torques in flight.
	Air PD `yaml:"air"`
	// COM drives the body toward the stance reference.
	COM PD `yaml:"com"`
	// Foot tracks the swing curve of the leg not in stance.
	Foot PD `yaml:"foot"`
	// Body levels the base toward zero attitude and rate.
	Body PD `yaml:"body"`
}

func DefaultGains() Gains {
	return Gains{
		Air:  NewPD(1, 0.1),
		COM:  NewPD(100, 10),
		Foot: NewPD(40, 5),
		Body: NewPD(20, 4),
	}
}

func (g *Gains) laws() map[string]*PD {
	return map[string]*PD{"air": &g.Air, "com": &g.COM, "foot": &g.Foot, "body": &g.Body}
}

// GetParams returns every gain keyed "<law>.kp" / "<law>.kd".
func (g *Gains) GetParams() map[string]float64 {
	out := make(map[string]float64, 8)
	for name, pd := range g.laws() {
		out[name+".kp"] = pd.Kp
		out[name+".kd"] = pd.Kd
	}
	return out
}

// SetParam adjusts one gain by its GetParams key.
func (g *Gains) SetParam(name string, value float64) error {
	law, term, ok := strings.Cut(name, ".")
	pd, known := g.laws()[law]
	if !ok || !known {
		return fmt.Errorf("unknown gain: %s", name)
	}
	switch term {
	case "kp":
		pd.Kp = value
	case "kd":
		pd.Kd = value
	default:
		return fmt.Errorf("unknown gain: %s", name)
	}
	return nil
}

// ParamNames lists the GetParams keys in sorted order.
func (g *Gains) ParamNames() []string {
	params := g.GetParams()
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
