package syncer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes sync run counters for watch mode.
type Metrics struct {
	runs     *prometheus.CounterVec
	secrets  *prometheus.CounterVec
	errors   prometheus.Counter
	lastRun  prometheus.Gauge
	pending  prometheus.Gauge
	duration prometheus.Histogram
}

// NewMetrics registers the sync metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maosec_sync_runs_total",
			Help: "Sync runs, by outcome.",
		}, []string{"outcome"}),
		secrets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maosec_sync_secrets_total",
			Help: "Records processed, by action taken.",
		}, []string{"action"}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maosec_sync_write_errors_total",
			Help: "Store writes that failed during apply.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "maosec_sync_last_run_timestamp_seconds",
			Help: "Unix time of the last completed sync run.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "maosec_sync_invalid_records",
			Help: "Invalid source records seen in the last run.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "maosec_sync_run_duration_seconds",
			Help:    "Wall time of a full plan and apply cycle.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
	reg.MustRegister(m.runs, m.secrets, m.errors, m.lastRun, m.pending, m.duration)
	return m
}

func (m *Metrics) observeRun(result *Result, elapsed time.Duration) {
	outcome := "success"
	if len(result.Errors) > 0 {
		outcome = "partial"
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.secrets.WithLabelValues(string(ActionCreate)).Add(float64(result.Created))
	m.secrets.WithLabelValues(string(ActionUpdate)).Add(float64(result.Updated))
	m.secrets.WithLabelValues(string(ActionSkip)).Add(float64(result.Skipped))
	m.secrets.WithLabelValues(string(ActionInvalid)).Add(float64(result.Invalid))
	m.errors.Add(float64(len(result.Errors)))
	m.pending.Set(float64(result.Invalid))
	m.duration.Observe(elapsed.Seconds())
	m.lastRun.SetToCurrentTime()
}

// InvalidGauge returns the invalid-records gauge.
func (m *Metrics) InvalidGauge() prometheus.Gauge {
	return m.pending
}

func (m *Metrics) observeFailure() {
	m.runs.WithLabelValues("failure").Inc()
}
