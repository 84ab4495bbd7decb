package device

import "github.com/andreweacott/nuheat-conductor/pkg/nuheat"

// Group is the canonical record for a thermostat group
type Group struct {
	ID           string
	Name         string
	AwayMode     bool
	AwaySetpoint *float64
}

// NewGroup builds the initial record from a group listing entry
func NewGroup(raw *nuheat.GroupData) Group {
	return NormalizeGroup(Group{}, raw)
}

// NormalizeGroup replaces prev with the record described by raw. An empty
// or absent raw record returns prev unchanged.
func NormalizeGroup(prev Group, raw *nuheat.GroupData) Group {
	if raw.IsEmpty() {
		return prev
	}
	next := Group{
		ID:           raw.GroupID,
		Name:         raw.GroupName,
		AwaySetpoint: decodeOptional(raw.AwaySetPointTemp),
	}
	if next.ID == "" {
		next.ID = prev.ID
	}
	if raw.AwayMode != nil {
		next.AwayMode = *raw.AwayMode
	}
	return next
}

// FindGroup returns the listing entry with the given id
func FindGroup(groups []nuheat.GroupData, id string) (*nuheat.GroupData, bool) {
	for i := range groups {
		if groups[i].GroupID == id {
			return &groups[i], true
		}
	}
	return nil, false
}

// HasIdentity reports whether the record can be the target of a command
func (g Group) HasIdentity() bool {
	return g.ID != ""
}

// WithAway returns a copy with away mode replaced
func (g Group) WithAway(away bool) Group {
	g.AwayMode = away
	return g
}

// HVACMode is always HEAT; groups do not heat on their own
func (g Group) HVACMode() HVACMode {
	return HVACModeHeat
}

// Preset is Away or Home
func (g Group) Preset() Preset {
	if g.AwayMode {
		return PresetAway
	}
	return PresetHome
}

// TargetTemperature surfaces the away setpoint
func (g Group) TargetTemperature() *float64 {
	return g.AwaySetpoint
}

// CurrentTemperature is always nil; groups do not measure
func (g Group) CurrentTemperature() *float64 {
	return nil
}

// Features lists the commands a group accepts
func (g Group) Features() Feature {
	return FeaturePresetMode
}

// CheckCommand validates that g may receive a command
func (g Group) CheckCommand() error {
	if !g.HasIdentity() {
		return &ValidationError{Field: "group_id", Value: g.ID, Reason: "group has no id", Err: ErrMissingIdentity}
	}
	return nil
}
