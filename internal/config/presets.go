package config

import (
	"sort"

	"github.com/san-kum/bipedsim/internal/gait"
)

// Preset is a named change to the default configuration.
type Preset struct {
	Description string
	Target      float64
	Duration    float64
	Liftoff     string
}

var Presets = map[string]Preset{
	"jog": {
		Description: "slow run near the bottom of the stable table",
		Target:      1.5, Duration: 2.0, Liftoff: gait.LiftoffNever,
	},
	"run": {
		Description: "default running speed, several strides",
		Target:      2.0, Duration: 3.0, Liftoff: gait.LiftoffElapsed,
	},
	"sprint": {
		Description: "fast run near the top of the stable table",
		Target:      3.5, Duration: 3.0, Liftoff: gait.LiftoffElapsed,
	},
}

// GetPreset returns the default configuration with preset name applied, or
// nil when there is no such preset.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Target = p.Target
	cfg.Initial.Velocity.X = p.Target
	cfg.Duration = p.Duration
	cfg.Liftoff = p.Liftoff
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
