package nuheat

// ThermostatData is a thermostat record as returned by GET /api/v1/Thermostat.
// Temperatures are integers scaled by 100 (3000 = 30.00 degrees in the
// account's unit). Pointer fields are nil when the vendor omits them.
type ThermostatData struct {
	SerialNumber       string `json:"serialNumber,omitempty"`
	Name               string `json:"name,omitempty"`
	CurrentTemperature *int   `json:"currentTemperature,omitempty"`
	SetPointTemp       *int   `json:"setPointTemp,omitempty"`
	MinTemp            *int   `json:"minTemp,omitempty"`
	MaxTemp            *int   `json:"maxTemp,omitempty"`
	ScheduleMode       *int   `json:"scheduleMode,omitempty"`
	IsHeating          *bool  `json:"isHeating,omitempty"`
	// Heating is the field name used by older firmware for IsHeating.
	Heating *bool `json:"heating,omitempty"`
	Online  *bool `json:"online,omitempty"`
}

// IsEmpty reports whether the record carries no fields at all.
func (d *ThermostatData) IsEmpty() bool {
	return d == nil || *d == ThermostatData{}
}

// GroupData is a thermostat group as returned by GET /api/v1/Group.
type GroupData struct {
	GroupID          string `json:"groupId,omitempty"`
	GroupName        string `json:"groupName,omitempty"`
	AwayMode         *bool  `json:"awayMode,omitempty"`
	AwaySetPointTemp *int   `json:"awaySetPointTemp,omitempty"`
}

// IsEmpty reports whether the record carries no fields at all.
func (d *GroupData) IsEmpty() bool {
	return d == nil || *d == GroupData{}
}

// AccountData holds the account preferences returned by GET /api/v1/Account.
type AccountData struct {
	TemperatureScale *string `json:"temperatureScale,omitempty"`
	Use12Hour        *bool   `json:"use12Hour,omitempty"`
}

// TemperatureUpdate is the PUT /api/v1/Thermostat body for a setpoint change.
// HoldSetPointDateTime is always sent, as null for temporary and permanent holds.
type TemperatureUpdate struct {
	SerialNumber         string  `json:"serialNumber"`
	Name                 string  `json:"name"`
	SetPointTemp         int     `json:"setPointTemp"`
	ScheduleMode         int     `json:"scheduleMode"`
	HoldSetPointDateTime *string `json:"holdSetPointDateTime"`
}

// ScheduleModeUpdate is the PUT /api/v1/Thermostat body for a mode-only change.
type ScheduleModeUpdate struct {
	SerialNumber string `json:"serialNumber"`
	ScheduleMode int    `json:"scheduleMode"`
}

// GroupAwayUpdate is the PUT /api/v1/Group body.
type GroupAwayUpdate struct {
	GroupID  string `json:"groupId"`
	AwayMode bool   `json:"awayMode"`
}
