// Package publish fans entity state out to message buses.
//
// Every publisher implements climate.StateWriter and sends the JSON encoding
// of climate.EntityState.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/andreweacott/nuheat-conductor/pkg/climate"
	"github.com/andreweacott/nuheat-conductor/pkg/logger"
)

// Multi writes to every writer; one failure does not stop the others
type Multi []climate.StateWriter

// WriteState implements climate.StateWriter
func (m Multi) WriteState(ctx context.Context, state climate.EntityState) error {
	var errs []error
	for _, w := range m {
		if err := w.WriteState(ctx, state); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes each state change as a debug log line
type LogPublisher struct {
	log *logger.Logger
}

// NewLogPublisher creates a publisher logging to log
func NewLogPublisher(log *logger.Logger) *LogPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &LogPublisher{log: log}
}

// WriteState implements climate.StateWriter
func (p *LogPublisher) WriteState(_ context.Context, state climate.EntityState) error {
	entry := p.log.WithField("kind", state.Kind).
		WithField("id", state.ID).
		WithField("available", state.Available).
		WithField("hvac_mode", state.HVACMode)
	if state.Preset != "" {
		entry = entry.WithField("preset", state.Preset)
	}
	if state.TargetTemperature != nil {
		entry = entry.WithField("target_temperature", *state.TargetTemperature)
	}
	if state.CurrentTemperature != nil {
		entry = entry.WithField("current_temperature", *state.CurrentTemperature)
	}
	entry.Debug("Entity state updated")
	return nil
}

func encode(state climate.EntityState) ([]byte, error) {
	return json.Marshal(state)
}

// subjectToken makes id safe to use as one NATS subject token or MQTT topic level
func subjectToken(id string, reserved string) string {
	if id == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		if r == ' ' || strings.ContainsRune(reserved, r) {
			return '_'
		}
		return r
	}, id)
}
