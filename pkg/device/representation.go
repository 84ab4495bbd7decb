package device

import "fmt"

// Representation selects how schedule state is presented to clients
type Representation string

const (
	// RepresentationPreset keeps the mode at HEAT and exposes the schedule
	// as a preset. Commands are rejected while the device is offline.
	RepresentationPreset Representation = "preset"

	// RepresentationLegacy maps SCHEDULE to AUTO and everything else to
	// HEAT, with no presets.
	RepresentationLegacy Representation = "legacy"
)

// DefaultRepresentation is used when none is configured
const DefaultRepresentation = RepresentationPreset

type representationRules struct {
	version       int
	presets       bool
	hvacModes     []HVACMode
	rejectOffline bool
}

var representations = map[Representation]representationRules{
	RepresentationPreset: {
		version:       1,
		presets:       true,
		hvacModes:     []HVACMode{HVACModeHeat, HVACModeOff},
		rejectOffline: true,
	},
	RepresentationLegacy: {
		version:   0,
		hvacModes: []HVACMode{HVACModeAuto, HVACModeHeat, HVACModeOff},
	},
}

// ParseRepresentation validates a configured representation name
func ParseRepresentation(s string) (Representation, error) {
	if s == "" {
		return DefaultRepresentation, nil
	}
	rep := Representation(s)
	if _, ok := representations[rep]; !ok {
		return "", fmt.Errorf("invalid representation: %s (must be 'preset' or 'legacy')", s)
	}
	return rep, nil
}

func (r Representation) rules() representationRules {
	if rules, ok := representations[r]; ok {
		return rules
	}
	return representations[DefaultRepresentation]
}

// Version is the mapping table version reported to clients
func (r Representation) Version() int {
	return r.rules().version
}

// UsesPresets reports whether schedule state is exposed as a preset
func (r Representation) UsesPresets() bool {
	return r.rules().presets
}

// HVACModes lists the modes a thermostat accepts
func (r Representation) HVACModes() []HVACMode {
	modes := r.rules().hvacModes
	out := make([]HVACMode, len(modes))
	copy(out, modes)
	return out
}

// SupportsHVACMode reports whether mode is settable
func (r Representation) SupportsHVACMode(mode HVACMode) bool {
	for _, m := range r.rules().hvacModes {
		if m == mode {
			return true
		}
	}
	return false
}

// RejectsOffline reports whether commands fail fast on offline devices
func (r Representation) RejectsOffline() bool {
	return r.rules().rejectOffline
}
