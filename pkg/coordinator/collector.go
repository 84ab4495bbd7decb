package coordinator

import (
	"github.com/andreweacott/nuheat-conductor/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Describe implements prometheus.Collector
func (c *Coordinator) Describe(ch chan<- *prometheus.Desc) {
	c.metricDescriptors.Describe(ch)
}

// Collect implements prometheus.Collector. Gauges are rebuilt from the
// entity snapshots so removed entities drop out.
func (c *Coordinator) Collect(ch chan<- prometheus.Metric) {
	c.collectMu.Lock()
	defer c.collectMu.Unlock()

	md := c.metricDescriptors
	md.Reset()

	for _, th := range c.Thermostats() {
		rec, state := th.Snapshot()
		labels := []string{state.ID, state.Name}

		if state.CurrentTemperature != nil {
			md.TemperatureCurrent.WithLabelValues(labels...).Set(*state.CurrentTemperature)
		}
		if state.TargetTemperature != nil {
			md.TemperatureTarget.WithLabelValues(labels...).Set(*state.TargetTemperature)
		}
		md.TemperatureMin.WithLabelValues(labels...).Set(state.MinTemperature)
		md.TemperatureMax.WithLabelValues(labels...).Set(state.MaxTemperature)
		md.ScheduleMode.WithLabelValues(labels...).Set(float64(rec.ScheduleMode))
		md.IsHeating.WithLabelValues(labels...).Set(metrics.BoolToFloat(rec.Heating))
		md.IsOnline.WithLabelValues(labels...).Set(metrics.BoolToFloat(rec.Online))
		md.IsAvailable.WithLabelValues(labels...).Set(metrics.BoolToFloat(state.Available))
	}

	for _, g := range c.Groups() {
		rec := g.Record()
		labels := []string{rec.ID, rec.Name}

		md.GroupAwayMode.WithLabelValues(labels...).Set(metrics.BoolToFloat(rec.AwayMode))
		if rec.AwaySetpoint != nil {
			md.GroupAwaySetpoint.WithLabelValues(labels...).Set(*rec.AwaySetpoint)
		}
	}

	md.Collect(ch)
}
