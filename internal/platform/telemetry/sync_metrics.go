package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics are the Prometheus collectors describing sync cycles and publishes.
type SyncMetrics struct {
	cycles    *prometheus.CounterVec
	merged    prometheus.Counter
	duration  prometheus.Histogram
	inFlight  prometheus.Gauge
	published *prometheus.CounterVec
}

// NewSyncMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which tests rely on.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quotesync",
			Name:      "sync_cycles_total",
			Help:      "Sync cycles by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		merged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quotesync",
			Name:      "sync_merged_quotes_total",
			Help:      "Remote quotes appended to the local collection.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quotesync",
			Name:      "sync_cycle_duration_seconds",
			Help:      "Wall time of a sync cycle including the remote fetch.",
			Buckets:   prometheus.DefBuckets,
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quotesync",
			Name:      "sync_cycles_in_flight",
			Help:      "Sync cycles currently in the Syncing state.",
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quotesync",
			Name:      "publish_total",
			Help:      "Outbound quote publishes by outcome.",
		}, []string{"outcome"}),
	}

	if reg != nil {
		reg.MustRegister(m.cycles, m.merged, m.duration, m.inFlight, m.published)
	}

	return m
}

// CycleStarted marks a cycle as in flight and returns a func that records its completion.
func (m *SyncMetrics) CycleStarted(trigger string) func(outcome string, merged int) {
	if m == nil {
		return func(string, int) {}
	}

	start := time.Now()
	m.inFlight.Inc()

	return func(outcome string, merged int) {
		m.inFlight.Dec()
		m.duration.Observe(time.Since(start).Seconds())
		m.cycles.WithLabelValues(trigger, outcome).Inc()
		m.merged.Add(float64(merged))
	}
}

// Published records one publish outcome.
func (m *SyncMetrics) Published(outcome string) {
	if m == nil {
		return
	}

	m.published.WithLabelValues(outcome).Inc()
}
