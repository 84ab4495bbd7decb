// Package device maps raw NuHeat records into canonical thermostat and group
// state and encodes user commands back into vendor payloads.
//
// Everything here is pure: records are immutable values and every change
// produces a new value. Network calls live in the climate package.
package device

import (
	"math"

	"github.com/andreweacott/nuheat-conductor/pkg/nuheat"
)

// TemperatureUnit is the unit selected by the account preferences
type TemperatureUnit string

const (
	Fahrenheit TemperatureUnit = "fahrenheit"
	Celsius    TemperatureUnit = "celsius"
)

// Bounds is an inclusive temperature range in device units
type Bounds struct {
	Min float64
	Max float64
}

// ParseTemperatureUnit maps the vendor temperatureScale string. Matching is
// case-sensitive and anything unrecognized selects Fahrenheit.
func ParseTemperatureUnit(scale string) TemperatureUnit {
	if scale == "Celsius" {
		return Celsius
	}
	return Fahrenheit
}

// DefaultBounds returns the range used when the vendor omits minTemp/maxTemp
func (u TemperatureUnit) DefaultBounds() Bounds {
	if u == Celsius {
		return Bounds{Min: 5, Max: 40}
	}
	return Bounds{Min: 41, Max: 104}
}

// Symbol returns the display suffix for the unit
func (u TemperatureUnit) Symbol() string {
	if u == Celsius {
		return "°C"
	}
	return "°F"
}

// AccountPreferences are fetched once per setup cycle
type AccountPreferences struct {
	Unit TemperatureUnit
	// Use12Hour is retained for clients; nothing here renders times
	Use12Hour bool
}

// DefaultPreferences applies when the account endpoint fails or omits fields
func DefaultPreferences() AccountPreferences {
	return AccountPreferences{Unit: Fahrenheit, Use12Hour: true}
}

// PreferencesFromAccount normalizes the raw account record
func PreferencesFromAccount(account *nuheat.AccountData) AccountPreferences {
	prefs := DefaultPreferences()
	if account == nil {
		return prefs
	}
	if account.TemperatureScale != nil {
		prefs.Unit = ParseTemperatureUnit(*account.TemperatureScale)
	}
	if account.Use12Hour != nil {
		prefs.Use12Hour = *account.Use12Hour
	}
	return prefs
}

// DecodeTemperature converts a vendor integer (hundredths) to device units
func DecodeTemperature(raw int) float64 {
	return float64(raw) / 100
}

// EncodeTemperature converts device units to the vendor integer, rounding to
// the nearest hundredth
func EncodeTemperature(value float64) int {
	return int(math.Round(value * 100))
}

func decodeOptional(raw *int) *float64 {
	if raw == nil {
		return nil
	}
	v := DecodeTemperature(*raw)
	return &v
}
