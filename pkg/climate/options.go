package climate

import (
	"github.com/andreweacott/nuheat-conductor/pkg/device"
	"github.com/andreweacott/nuheat-conductor/pkg/logger"
	"github.com/andreweacott/nuheat-conductor/pkg/metrics"
)

// Options configure thermostat and group entities
type Options struct {
	Preferences    device.AccountPreferences
	Representation device.Representation
	Writer         StateWriter
	Logger         *logger.Logger
	// ExporterMetrics is optional
	ExporterMetrics *metrics.ExporterMetrics
}

func (o Options) withDefaults() Options {
	if o.Preferences.Unit == "" {
		o.Preferences = device.DefaultPreferences()
	}
	if o.Representation == "" {
		o.Representation = device.DefaultRepresentation
	}
	if o.Writer == nil {
		o.Writer = discardWriter{}
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	return o
}

func (o Options) recordCommandError(command string) {
	if o.ExporterMetrics != nil {
		o.ExporterMetrics.IncrementCommandErrors(command)
	}
}
