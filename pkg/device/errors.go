package device

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingIdentity rejects commands on a record without a serial or group id
	ErrMissingIdentity = errors.New("record has no identity")

	// ErrOffline rejects commands on an offline thermostat
	ErrOffline = errors.New("thermostat is offline")

	// ErrUnknownPreset is wrapped by the ValidationError for an unmapped preset
	ErrUnknownPreset = errors.New("unknown preset")

	// ErrUnknownHVACMode is wrapped by the ValidationError for an unsupported mode
	ErrUnknownHVACMode = errors.New("unknown hvac mode")

	// ErrInvalidTemperature is wrapped by the ValidationError for an unusable target
	ErrInvalidTemperature = errors.New("invalid temperature")
)

// ValidationError reports a command rejected before any network call
type ValidationError struct {
	Field  string
	Value  interface{}
	Reason string
	Err    error
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s = %v, %s", ve.Field, ve.Value, ve.Reason)
}

func (ve *ValidationError) Unwrap() error {
	return ve.Err
}

// IsValidationError reports whether err was produced by local validation
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
