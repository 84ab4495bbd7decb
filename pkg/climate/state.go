// Package climate exposes NuHeat thermostats and groups as climate entities.
//
// Each entity owns one canonical record from the device package and replaces
// it wholesale on every successful poll or command. Failed commands trigger a
// reconciling fetch so published state never keeps a change the API refused.
package climate

import (
	"context"
	"sync"

	"github.com/andreweacott/nuheat-conductor/pkg/device"
)

// Entity kinds
const (
	KindThermostat = "thermostat"
	KindGroup      = "group"
)

// Command names used in logs and metrics
const (
	CommandSetTemperature = "set_temperature"
	CommandSetPreset      = "set_preset"
	CommandSetHVACMode    = "set_hvac_mode"
)

// EntityState is the host-facing snapshot of an entity
type EntityState struct {
	Kind               string            `json:"kind"`
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Available          bool              `json:"available"`
	Unit               string            `json:"temperature_unit"`
	CurrentTemperature *float64          `json:"current_temperature"`
	TargetTemperature  *float64          `json:"target_temperature"`
	MinTemperature     float64           `json:"min_temp"`
	MaxTemperature     float64           `json:"max_temp"`
	HVACMode           device.HVACMode   `json:"hvac_mode"`
	HVACModes          []device.HVACMode `json:"hvac_modes"`
	HVACAction         device.HVACAction `json:"hvac_action,omitempty"`
	Preset             device.Preset     `json:"preset_mode,omitempty"`
	Presets            []device.Preset   `json:"preset_modes,omitempty"`
	Features           []string          `json:"supported_features"`
	Attributes         map[string]string `json:"attributes,omitempty"`
}

// StateWriter receives every state change
type StateWriter interface {
	WriteState(ctx context.Context, state EntityState) error
}

// StateWriterFunc adapts a function to StateWriter
type StateWriterFunc func(ctx context.Context, state EntityState) error

// WriteState implements StateWriter
func (f StateWriterFunc) WriteState(ctx context.Context, state EntityState) error {
	return f(ctx, state)
}

type discardWriter struct{}

func (discardWriter) WriteState(context.Context, EntityState) error { return nil }

// statePublisher writes an entity's snapshots outside the entity lock.
// Writes are serialized and a snapshot older than the last one written is
// dropped, so a slow writer never reorders state.
type statePublisher struct {
	mu   sync.Mutex
	last uint64
}

func (p *statePublisher) write(ctx context.Context, w StateWriter, seq uint64, state EntityState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seq <= p.last {
		return nil
	}
	p.last = seq
	return w.WriteState(ctx, state)
}
