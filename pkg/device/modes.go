package device

import (
	"fmt"
	"strings"
)

// ScheduleMode is the vendor schedule state. Codes outside the known set are
// carried verbatim; zero means the vendor did not report one.
type ScheduleMode int

const (
	ScheduleModeUnknown       ScheduleMode = 0
	ScheduleModeSchedule      ScheduleMode = 1
	ScheduleModeTemporaryHold ScheduleMode = 2
	ScheduleModePermanentHold ScheduleMode = 3
)

// Known reports whether m is one of the documented vendor codes
func (m ScheduleMode) Known() bool {
	return m >= ScheduleModeSchedule && m <= ScheduleModePermanentHold
}

func (m ScheduleMode) String() string {
	switch m {
	case ScheduleModeUnknown:
		return "Unknown"
	case ScheduleModeSchedule:
		return "Schedule"
	case ScheduleModeTemporaryHold:
		return "Temporary Hold"
	case ScheduleModePermanentHold:
		return "Permanent Hold"
	default:
		return fmt.Sprintf("Mode %d", int(m))
	}
}

// HVACMode is the host-facing operating mode
type HVACMode string

const (
	HVACModeOff  HVACMode = "off"
	HVACModeHeat HVACMode = "heat"
	HVACModeAuto HVACMode = "auto"
)

// ParseHVACMode accepts a mode name in any case
func ParseHVACMode(s string) (HVACMode, error) {
	switch HVACMode(strings.ToLower(strings.TrimSpace(s))) {
	case HVACModeOff:
		return HVACModeOff, nil
	case HVACModeHeat:
		return HVACModeHeat, nil
	case HVACModeAuto:
		return HVACModeAuto, nil
	}
	return "", &ValidationError{Field: "hvac_mode", Value: s, Reason: "must be one of off, heat, auto", Err: ErrUnknownHVACMode}
}

// HVACAction describes what the device is doing right now
type HVACAction string

const (
	HVACActionOff     HVACAction = "off"
	HVACActionHeating HVACAction = "heating"
	HVACActionIdle    HVACAction = "idle"
)

// Preset is a host-facing preset name
type Preset string

const (
	PresetAuto          Preset = "Auto"
	PresetHold          Preset = "Hold"
	PresetPermanentHold Preset = "Permanent Hold"
	PresetHome          Preset = "Home"
	PresetAway          Preset = "Away"
)

// thermostatPresets maps schedule codes to presets; ScheduleModeForPreset is its inverse
var thermostatPresets = []struct {
	mode   ScheduleMode
	preset Preset
}{
	{ScheduleModeSchedule, PresetAuto},
	{ScheduleModeTemporaryHold, PresetHold},
	{ScheduleModePermanentHold, PresetPermanentHold},
}

// ThermostatPresets lists the presets a thermostat accepts, in display order
func ThermostatPresets() []Preset {
	presets := make([]Preset, 0, len(thermostatPresets))
	for _, entry := range thermostatPresets {
		presets = append(presets, entry.preset)
	}
	return presets
}

// GroupPresets lists the presets a group accepts
func GroupPresets() []Preset {
	return []Preset{PresetHome, PresetAway}
}

// PresetForScheduleMode returns the preset for a schedule code. Unknown codes
// have no preset.
func PresetForScheduleMode(mode ScheduleMode) (Preset, bool) {
	for _, entry := range thermostatPresets {
		if entry.mode == mode {
			return entry.preset, true
		}
	}
	return "", false
}

// ScheduleModeForPreset is the inverse of PresetForScheduleMode
func ScheduleModeForPreset(preset Preset) (ScheduleMode, error) {
	for _, entry := range thermostatPresets {
		if entry.preset == preset {
			return entry.mode, nil
		}
	}
	return ScheduleModeUnknown, &ValidationError{
		Field:  "preset",
		Value:  preset,
		Reason: fmt.Sprintf("must be one of %s", joinPresets(ThermostatPresets())),
		Err:    ErrUnknownPreset,
	}
}

// AwayForPreset maps a group preset to the awayMode flag
func AwayForPreset(preset Preset) (bool, error) {
	switch preset {
	case PresetAway:
		return true, nil
	case PresetHome:
		return false, nil
	}
	return false, &ValidationError{
		Field:  "preset",
		Value:  preset,
		Reason: fmt.Sprintf("must be one of %s", joinPresets(GroupPresets())),
		Err:    ErrUnknownPreset,
	}
}

// ScheduleModeForHVACMode returns the schedule code that realizes mode
// directly. Only AUTO has one; HEAT and OFF are expressed as setpoint changes.
func ScheduleModeForHVACMode(mode HVACMode) (ScheduleMode, bool) {
	if mode == HVACModeAuto {
		return ScheduleModeSchedule, true
	}
	return ScheduleModeUnknown, false
}

// Feature is a bitset of the commands an entity currently accepts
type Feature uint8

const (
	FeatureTargetTemperature Feature = 1 << iota
	FeaturePresetMode
	FeatureHVACMode
)

// Has reports whether every bit in other is set
func (f Feature) Has(other Feature) bool {
	return f&other == other
}

// Names lists the set features, for serialization
func (f Feature) Names() []string {
	names := []string{}
	if f.Has(FeatureTargetTemperature) {
		names = append(names, "target_temperature")
	}
	if f.Has(FeaturePresetMode) {
		names = append(names, "preset_mode")
	}
	if f.Has(FeatureHVACMode) {
		names = append(names, "hvac_mode")
	}
	return names
}

func joinPresets(presets []Preset) string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
