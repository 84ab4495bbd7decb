// Package metrics defines the Prometheus metrics published by the conductor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	thermostatLabels = []string{"thermostat_id", "thermostat_name"}
	groupLabels      = []string{"group_id", "group_name"}
)

// MetricDescriptors holds all Prometheus metric descriptors for thermostats and groups
type MetricDescriptors struct {
	// Thermostat metrics (labels: thermostat_id, thermostat_name)
	TemperatureCurrent prometheus.GaugeVec
	TemperatureTarget  prometheus.GaugeVec
	TemperatureMin     prometheus.GaugeVec
	TemperatureMax     prometheus.GaugeVec
	ScheduleMode       prometheus.GaugeVec
	IsHeating          prometheus.GaugeVec
	IsOnline           prometheus.GaugeVec
	IsAvailable        prometheus.GaugeVec

	// Group metrics (labels: group_id, group_name)
	GroupAwayMode     prometheus.GaugeVec
	GroupAwaySetpoint prometheus.GaugeVec
}

// NewMetricDescriptorsUnregistered creates the metrics without registering them.
// Use it when the metrics are exposed through a prometheus.Collector or a
// custom registry.
func NewMetricDescriptorsUnregistered() *MetricDescriptors {
	return &MetricDescriptors{
		TemperatureCurrent: *prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nuheat_thermostat_temperature_current",
				Help: "Measured floor temperature in the account unit",
			},
			thermostatLabels,
		),

		TemperatureTarget: *prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nuheat_thermostat_temperature_target",
				Help: "Target temperature in the account unit",
			},
			thermostatLabels,
		),

		TemperatureMin: *prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nuheat_thermostat_temperature_min",
				Help: "Lowest settable temperature in the account unit",
			},
			thermostatLabels,
		),

		TemperatureMax: *prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nuheat_thermostat_temperature_max",
				Help: "Highest settable temperature in the account unit",
			},
			thermostatLabels,
		),

		ScheduleMode: *prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nuheat_thermostat_schedule_mode",
				Help: "Vendor schedule mode (1 = schedule, 2 = temporary hold, 3 = permanent hold, 0 = unknown)",
			},
			thermostatLabels,
		),

		IsHeating: *prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nuheat_thermostat_is_heating",
				Help: "Whether the thermostat is heating (1 = heating, 0 = idle or off)",
			},
			thermostatLabels,
		),

		IsOnline: *prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nuheat_thermostat_is_online",
				Help: "Whether the thermostat reported itself online (1 = online, 0 = offline)",
			},
			thermostatLabels,
		),

		IsAvailable: *prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nuheat_thermostat_is_available",
				Help: "Whether the last poll of the thermostat succeeded (1 = yes, 0 = no)",
			},
			thermostatLabels,
		),

		GroupAwayMode: *prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nuheat_group_away_mode",
				Help: "Whether the group is in away mode (1 = away, 0 = home)",
			},
			groupLabels,
		),

		GroupAwaySetpoint: *prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nuheat_group_away_setpoint",
				Help: "Away setpoint of the group in the account unit",
			},
			groupLabels,
		),
	}
}

func (md *MetricDescriptors) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		&md.TemperatureCurrent,
		&md.TemperatureTarget,
		&md.TemperatureMin,
		&md.TemperatureMax,
		&md.ScheduleMode,
		&md.IsHeating,
		&md.IsOnline,
		&md.IsAvailable,
		&md.GroupAwayMode,
		&md.GroupAwaySetpoint,
	}
}

// RegisterWith registers all metrics with reg
func (md *MetricDescriptors) RegisterWith(reg prometheus.Registerer) error {
	for _, c := range md.collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Describe sends every descriptor to ch
func (md *MetricDescriptors) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range md.collectors() {
		c.Describe(ch)
	}
}

// Collect sends every current metric to ch
func (md *MetricDescriptors) Collect(ch chan<- prometheus.Metric) {
	for _, c := range md.collectors() {
		c.Collect(ch)
	}
}

// Reset clears all metric values
func (md *MetricDescriptors) Reset() {
	md.TemperatureCurrent.Reset()
	md.TemperatureTarget.Reset()
	md.TemperatureMin.Reset()
	md.TemperatureMax.Reset()
	md.ScheduleMode.Reset()
	md.IsHeating.Reset()
	md.IsOnline.Reset()
	md.IsAvailable.Reset()
	md.GroupAwayMode.Reset()
	md.GroupAwaySetpoint.Reset()
}

// BoolToFloat converts a flag to the 1/0 gauge convention
func BoolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
