package climate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/andreweacott/nuheat-conductor/pkg/device"
	"github.com/andreweacott/nuheat-conductor/pkg/nuheat"
)

// ErrNoData is returned when a poll succeeds but carries no record
var ErrNoData = errors.New("no data returned")

// Thermostat is a climate entity backed by one NuHeat thermostat.
// Polls and commands on the same entity are serialized.
type Thermostat struct {
	api  nuheat.API
	opts Options

	mu        sync.Mutex
	record    device.Thermostat
	available bool
	// changed marks state to publish once mu is released
	changed bool
	seq     uint64

	pub statePublisher
}

// NewThermostat creates an entity from the record returned by the listing
func NewThermostat(api nuheat.API, raw *nuheat.ThermostatData, opts Options) *Thermostat {
	return &Thermostat{
		api:       api,
		opts:      opts.withDefaults(),
		record:    device.NewThermostat(raw),
		available: !raw.IsEmpty(),
	}
}

// ID returns the thermostat serial number
func (t *Thermostat) ID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record.ID
}

// Record returns the current canonical record
func (t *Thermostat) Record() device.Thermostat {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record
}

// Available reports whether the last poll returned data
func (t *Thermostat) Available() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.available
}

// State returns the host-facing snapshot
func (t *Thermostat) State() EntityState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

// Snapshot returns the record and the state derived from it under one lock
func (t *Thermostat) Snapshot() (device.Thermostat, EntityState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record, t.stateLocked()
}

// Publish writes the current state without polling
func (t *Thermostat) Publish(ctx context.Context) {
	t.mu.Lock()
	defer t.unlockAndPublish(ctx)
	t.markChangedLocked()
}

// Update polls the thermostat. On failure or an empty response the previous
// record is kept and the entity is marked unavailable.
func (t *Thermostat) Update(ctx context.Context) error {
	t.mu.Lock()
	defer t.unlockAndPublish(ctx)
	return t.refreshLocked(ctx)
}

// SetTemperature holds target as a temporary override
func (t *Thermostat) SetTemperature(ctx context.Context, target float64) error {
	t.mu.Lock()
	defer t.unlockAndPublish(ctx)
	return t.setTemperatureLocked(ctx, CommandSetTemperature, target)
}

// SetPreset switches the schedule mode to the one named by preset
func (t *Thermostat) SetPreset(ctx context.Context, preset device.Preset) error {
	t.mu.Lock()
	defer t.unlockAndPublish(ctx)

	rep := t.opts.Representation
	if !rep.UsesPresets() {
		return &device.ValidationError{
			Field:  "preset",
			Value:  preset,
			Reason: fmt.Sprintf("presets are not available in the %s representation", rep),
			Err:    device.ErrUnknownPreset,
		}
	}
	if err := t.record.CheckCommand(rep); err != nil {
		return err
	}
	mode, err := device.ScheduleModeForPreset(preset)
	if err != nil {
		return err
	}
	return t.setScheduleModeLocked(ctx, CommandSetPreset, mode)
}

// SetHVACMode emulates the requested mode. AUTO resumes the schedule, HEAT
// holds the current target and OFF holds the minimum temperature.
func (t *Thermostat) SetHVACMode(ctx context.Context, mode device.HVACMode) error {
	t.mu.Lock()
	defer t.unlockAndPublish(ctx)

	rep := t.opts.Representation
	if !rep.SupportsHVACMode(mode) {
		return &device.ValidationError{
			Field:  "hvac_mode",
			Value:  mode,
			Reason: fmt.Sprintf("not supported in the %s representation", rep),
			Err:    device.ErrUnknownHVACMode,
		}
	}
	if err := t.record.CheckCommand(rep); err != nil {
		return err
	}

	switch mode {
	case device.HVACModeAuto:
		scheduleMode, _ := device.ScheduleModeForHVACMode(mode)
		return t.setScheduleModeLocked(ctx, CommandSetHVACMode, scheduleMode)
	case device.HVACModeHeat:
		// Preset mode is always HEAT while online
		if rep.UsesPresets() {
			return nil
		}
		if t.record.TargetTemperature == nil {
			return &device.ValidationError{
				Field:  "target_temperature",
				Value:  nil,
				Reason: "no target temperature to hold",
				Err:    device.ErrInvalidTemperature,
			}
		}
		return t.setTemperatureLocked(ctx, CommandSetHVACMode, *t.record.TargetTemperature)
	default:
		return t.setTemperatureLocked(ctx, CommandSetHVACMode, t.record.MinTemp(t.opts.Preferences.Unit))
	}
}

func (t *Thermostat) setTemperatureLocked(ctx context.Context, command string, target float64) error {
	update, err := device.TemperatureCommand(t.record, target, t.opts.Representation)
	if err != nil {
		return err
	}
	if err := t.api.SetTemperature(ctx, update); err != nil {
		return t.commandFailedLocked(ctx, command, err)
	}

	// The setpoint itself is left for the next poll to confirm
	t.record = t.record.WithScheduleMode(device.ScheduleModeTemporaryHold)
	t.opts.Logger.WithThermostat(t.record.ID).
		WithField("temperature", target).
		Info("Temperature hold set")
	t.markChangedLocked()
	return nil
}

func (t *Thermostat) setScheduleModeLocked(ctx context.Context, command string, mode device.ScheduleMode) error {
	if err := t.api.SetScheduleMode(ctx, t.record.ID, int(mode)); err != nil {
		return t.commandFailedLocked(ctx, command, err)
	}
	t.record = t.record.WithScheduleMode(mode)
	t.opts.Logger.WithThermostat(t.record.ID).
		WithField("schedule_mode", mode.String()).
		Info("Schedule mode set")
	t.markChangedLocked()
	return nil
}

// commandFailedLocked reconciles with the API and returns the command error
func (t *Thermostat) commandFailedLocked(ctx context.Context, command string, err error) error {
	t.opts.recordCommandError(command)
	t.opts.Logger.WithThermostat(t.record.ID).
		WithField("command", command).
		WithError(err).
		Warn("Command failed, reconciling state")

	if rerr := t.refreshLocked(ctx); rerr != nil {
		t.opts.Logger.WithThermostat(t.record.ID).WithError(rerr).Warn("Reconciliation failed")
	}
	return fmt.Errorf("%s on thermostat %s: %w", command, t.record.ID, err)
}

func (t *Thermostat) refreshLocked(ctx context.Context) error {
	if !t.record.HasIdentity() {
		return fmt.Errorf("refresh thermostat: %w", device.ErrMissingIdentity)
	}

	raw, err := t.api.Thermostat(ctx, t.record.ID)
	if err == nil && raw.IsEmpty() {
		err = ErrNoData
	}
	if err != nil {
		t.available = false
		t.opts.Logger.WithThermostat(t.record.ID).WithError(err).Warn("Failed to refresh thermostat")
		t.markChangedLocked()
		return fmt.Errorf("refresh thermostat %s: %w", t.record.ID, err)
	}

	t.record = device.NormalizeThermostat(t.record, raw)
	t.available = true
	t.markChangedLocked()
	return nil
}

func (t *Thermostat) markChangedLocked() {
	t.changed = true
}

// unlockAndPublish releases mu and then writes the latest snapshot if the
// state changed while it was held
func (t *Thermostat) unlockAndPublish(ctx context.Context) {
	if !t.changed {
		t.mu.Unlock()
		return
	}
	t.changed = false
	t.seq++
	seq, state := t.seq, t.stateLocked()
	t.mu.Unlock()

	if err := t.pub.write(ctx, t.opts.Writer, seq, state); err != nil {
		t.opts.Logger.WithThermostat(state.ID).WithError(err).Warn("Failed to write thermostat state")
	}
}

func (t *Thermostat) stateLocked() EntityState {
	rec := t.record
	rep := t.opts.Representation
	unit := t.opts.Preferences.Unit

	state := EntityState{
		Kind:               KindThermostat,
		ID:                 rec.ID,
		Name:               rec.Name,
		Available:          t.available,
		Unit:               string(unit),
		CurrentTemperature: rec.CurrentTemperature,
		TargetTemperature:  rec.TargetTemperature,
		MinTemperature:     rec.MinTemp(unit),
		MaxTemperature:     rec.MaxTemp(unit),
		HVACMode:           rec.HVACMode(rep),
		HVACModes:          rep.HVACModes(),
		HVACAction:         rec.HVACAction(),
		Features:           rec.Features(rep).Names(),
		Attributes:         rec.Attributes(),
	}
	if preset, ok := rec.Preset(rep); ok {
		state.Preset = preset
	}
	if rep.UsesPresets() {
		state.Presets = device.ThermostatPresets()
	}
	return state
}
