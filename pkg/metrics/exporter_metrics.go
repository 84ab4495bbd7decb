package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ExporterMetrics holds Prometheus metrics for internal health monitoring
type ExporterMetrics struct {
	// Poll duration histogram (in seconds)
	PollDurationSeconds prometheus.Histogram

	// Poll error counter
	PollErrorsTotal prometheus.Counter

	// Failed commands by command name
	CommandErrorsTotal *prometheus.CounterVec

	// Build info gauge
	BuildInfo prometheus.Gauge

	// Authentication status gauge (1 = valid, 0 = invalid/expired)
	AuthenticationValid prometheus.Gauge

	// Authentication error counter
	AuthenticationErrorsTotal prometheus.Counter

	// Last successful poll timestamp (unix seconds)
	LastPollSuccessUnix prometheus.Gauge
}

// NewExporterMetricsUnregistered creates health metrics without registering them
func NewExporterMetricsUnregistered() *ExporterMetrics {
	em := &ExporterMetrics{
		// Buckets: 0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8
		PollDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nuheat_conductor_poll_duration_seconds",
			Help:    "Time taken to refresh every thermostat and group in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8),
		}),

		PollErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nuheat_conductor_poll_errors_total",
			Help: "Total number of failed entity refreshes",
		}),

		CommandErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nuheat_conductor_command_errors_total",
			Help: "Total number of commands rejected by the NuHeat API",
		}, []string{"command"}),

		BuildInfo: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nuheat_conductor_build_info",
			Help: "Build information for the conductor (value is always 1)",
		}),

		AuthenticationValid: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nuheat_conductor_authentication_valid",
			Help: "Set to 1 if the NuHeat session is authorized, 0 if authorization is required",
		}),

		AuthenticationErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nuheat_conductor_authentication_errors_total",
			Help: "Total number of requests that failed for lack of a valid token",
		}),

		LastPollSuccessUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nuheat_conductor_last_poll_success_unix",
			Help: "Unix timestamp of the last poll in which every entity refreshed",
		}),
	}

	em.BuildInfo.Set(1)
	em.AuthenticationValid.Set(0)
	return em
}

// RegisterWith registers health metrics with reg
func (em *ExporterMetrics) RegisterWith(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		em.PollDurationSeconds,
		em.PollErrorsTotal,
		em.CommandErrorsTotal,
		em.BuildInfo,
		em.AuthenticationValid,
		em.AuthenticationErrorsTotal,
		em.LastPollSuccessUnix,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordPollDuration records the duration of a refresh cycle
func (em *ExporterMetrics) RecordPollDuration(duration float64) {
	em.PollDurationSeconds.Observe(duration)
}

// IncrementPollErrors increments the poll error counter
func (em *ExporterMetrics) IncrementPollErrors() {
	em.PollErrorsTotal.Inc()
}

// IncrementCommandErrors increments the error counter for command
func (em *ExporterMetrics) IncrementCommandErrors(command string) {
	em.CommandErrorsTotal.WithLabelValues(command).Inc()
}

// SetAuthenticationValid sets the authentication status gauge
func (em *ExporterMetrics) SetAuthenticationValid(valid bool) {
	em.AuthenticationValid.Set(BoolToFloat(valid))
}

// IncrementAuthenticationErrors increments the authentication error counter
func (em *ExporterMetrics) IncrementAuthenticationErrors() {
	em.AuthenticationErrorsTotal.Inc()
}

// RecordPollSuccess records a fully successful poll
func (em *ExporterMetrics) RecordPollSuccess() {
	em.LastPollSuccessUnix.Set(float64(time.Now().Unix()))
}
