package device

import (
	"fmt"
	"math"

	"github.com/andreweacott/nuheat-conductor/pkg/nuheat"
)

// Status strings surfaced in the attributes
const (
	StatusOnline  = "Online"
	StatusOffline = "Offline"

	staleWarning = "Thermostat is offline; displayed values may be stale"
)

// Thermostat is the canonical thermostat record. Treat it as immutable:
// NormalizeThermostat and the With* helpers return new values.
type Thermostat struct {
	ID                 string
	Name               string
	CurrentTemperature *float64
	TargetTemperature  *float64
	MinTemperature     *float64
	MaxTemperature     *float64
	ScheduleMode       ScheduleMode
	Heating            bool
	Online             bool
}

// NewThermostat builds the initial record from a full poll response
func NewThermostat(raw *nuheat.ThermostatData) Thermostat {
	return NormalizeThermostat(Thermostat{Online: true}, raw)
}

// NormalizeThermostat replaces prev with the record described by raw.
// An empty or absent raw record returns prev unchanged. The identity of prev
// survives a raw record that omits its serial number.
func NormalizeThermostat(prev Thermostat, raw *nuheat.ThermostatData) Thermostat {
	if raw.IsEmpty() {
		return prev
	}

	next := Thermostat{
		ID:                 raw.SerialNumber,
		Name:               raw.Name,
		CurrentTemperature: decodeOptional(raw.CurrentTemperature),
		TargetTemperature:  decodeOptional(raw.SetPointTemp),
		MinTemperature:     decodeOptional(raw.MinTemp),
		MaxTemperature:     decodeOptional(raw.MaxTemp),
		Online:             true,
	}
	if next.ID == "" {
		next.ID = prev.ID
	}
	if raw.ScheduleMode != nil {
		next.ScheduleMode = ScheduleMode(*raw.ScheduleMode)
	}
	if raw.Online != nil {
		next.Online = *raw.Online
	}

	switch {
	case !next.Online:
		next.Heating = false
	case raw.IsHeating != nil:
		next.Heating = *raw.IsHeating
	case raw.Heating != nil:
		next.Heating = *raw.Heating
	}
	return next
}

// HasIdentity reports whether the record can be the target of a command
func (t Thermostat) HasIdentity() bool {
	return t.ID != ""
}

// WithScheduleMode returns a copy with the schedule mode replaced
func (t Thermostat) WithScheduleMode(mode ScheduleMode) Thermostat {
	t.ScheduleMode = mode
	return t
}

// MinTemp returns the vendor minimum or the unit default
func (t Thermostat) MinTemp(unit TemperatureUnit) float64 {
	if t.MinTemperature != nil {
		return *t.MinTemperature
	}
	return unit.DefaultBounds().Min
}

// MaxTemp returns the vendor maximum or the unit default
func (t Thermostat) MaxTemp(unit TemperatureUnit) float64 {
	if t.MaxTemperature != nil {
		return *t.MaxTemperature
	}
	return unit.DefaultBounds().Max
}

// HVACMode derives the host-facing mode
func (t Thermostat) HVACMode(rep Representation) HVACMode {
	if !t.Online {
		return HVACModeOff
	}
	if rep.UsesPresets() {
		return HVACModeHeat
	}
	if t.ScheduleMode == ScheduleModeSchedule {
		return HVACModeAuto
	}
	return HVACModeHeat
}

// HVACAction derives what the device is doing right now
func (t Thermostat) HVACAction() HVACAction {
	switch {
	case !t.Online:
		return HVACActionOff
	case t.Heating:
		return HVACActionHeating
	default:
		return HVACActionIdle
	}
}

// Preset derives the active preset. It reports false when the representation
// has no presets or the schedule mode is not a known code.
func (t Thermostat) Preset(rep Representation) (Preset, bool) {
	if !rep.UsesPresets() {
		return "", false
	}
	return PresetForScheduleMode(t.ScheduleMode)
}

// Features lists the commands accepted in the current state
func (t Thermostat) Features(rep Representation) Feature {
	if !t.Online {
		return 0
	}
	features := FeatureTargetTemperature | FeatureHVACMode
	if rep.UsesPresets() {
		features |= FeaturePresetMode
	}
	return features
}

// Attributes returns the extra state surfaced alongside the climate fields
func (t Thermostat) Attributes() map[string]string {
	attrs := map[string]string{"status": StatusOnline}
	if t.ScheduleMode != ScheduleModeUnknown {
		attrs["schedule_mode"] = t.ScheduleMode.String()
	}
	if !t.Online {
		attrs["status"] = StatusOffline
		attrs["warning"] = staleWarning
	}
	return attrs
}

// CheckCommand validates that t may receive a command under rep
func (t Thermostat) CheckCommand(rep Representation) error {
	if !t.HasIdentity() {
		return &ValidationError{Field: "serial_number", Value: t.ID, Reason: "thermostat has no serial number", Err: ErrMissingIdentity}
	}
	if rep.RejectsOffline() && !t.Online {
		return fmt.Errorf("thermostat %s: %w", t.ID, ErrOffline)
	}
	return nil
}

// TemperatureCommand encodes a setpoint change as a temporary hold. The
// target is sent as given; the thermostat clamps it to its own limits.
func TemperatureCommand(t Thermostat, target float64, rep Representation) (nuheat.TemperatureUpdate, error) {
	if err := t.CheckCommand(rep); err != nil {
		return nuheat.TemperatureUpdate{}, err
	}
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return nuheat.TemperatureUpdate{}, &ValidationError{Field: "temperature", Value: target, Reason: "not a number", Err: ErrInvalidTemperature}
	}
	return nuheat.TemperatureUpdate{
		SerialNumber: t.ID,
		Name:         t.Name,
		SetPointTemp: EncodeTemperature(target),
		ScheduleMode: int(ScheduleModeTemporaryHold),
	}, nil
}
