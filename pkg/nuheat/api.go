// Package nuheat is a client for the NuHeat Conductor REST API.
package nuheat

import (
	"context"
)

// TokenProvider supplies bearer tokens for API requests.
// Implementations refresh tokens as needed.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// API defines the NuHeat API operations used by the climate entities.
// This interface allows for dependency injection and testing with mocks.
type API interface {
	// Thermostats lists every thermostat on the account
	Thermostats(ctx context.Context) ([]ThermostatData, error)

	// Thermostat fetches one thermostat by serial number. A nil record with a
	// nil error means the API answered with something other than an object.
	Thermostat(ctx context.Context, serial string) (*ThermostatData, error)

	// Groups lists every thermostat group on the account
	Groups(ctx context.Context) ([]GroupData, error)

	// Account fetches the account preferences
	Account(ctx context.Context) (*AccountData, error)

	// SetTemperature changes a thermostat setpoint
	SetTemperature(ctx context.Context, update TemperatureUpdate) error

	// SetScheduleMode changes a thermostat schedule mode only
	SetScheduleMode(ctx context.Context, serial string, mode int) error

	// SetGroupAway turns away mode on or off for a group
	SetGroupAway(ctx context.Context, groupID string, away bool) error
}
