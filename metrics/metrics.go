// Package metrics exposes Prometheus collectors for lookup sessions, the
// result cache and the service front door.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sessionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "regionscope_session_duration_seconds",
			Help:    "Wall time of one browser lookup session by outcome",
			Buckets: []float64{1, 2.5, 5, 10, 15, 20, 30, 45, 60, 90},
		},
		[]string{"outcome"},
	)

	pollAttempts = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "regionscope_poll_attempts",
			Help:    "Result-ready samples taken per session by final poll state",
			Buckets: prometheus.LinearBuckets(1, 2, 10),
		},
		[]string{"state"},
	)

	lookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regionscope_lookups_total",
			Help: "Total lookups served by outcome",
		},
		[]string{"outcome"},
	)

	cacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regionscope_cache_requests_total",
			Help: "Result cache reads by result",
		},
		[]string{"result"},
	)

	sessionsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "regionscope_sessions_in_flight",
			Help: "Browser sessions currently running",
		},
	)
)

var registerOnce sync.Once

// Register adds all collectors to reg. Only the first call has an effect.
// Observations made before Register are kept.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(sessionDuration, pollAttempts, lookupsTotal, cacheTotal, sessionsInFlight)
	})
}

// ObserveSession records the duration of a finished browser session.
// outcome is "success" or a failure code.
func ObserveSession(outcome string, d time.Duration) {
	sessionDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObservePoll records how many samples the result poller took.
func ObservePoll(state string, attempts int) {
	pollAttempts.WithLabelValues(state).Observe(float64(attempts))
}

// RecordLookup counts a lookup served to a caller, cached or not.
func RecordLookup(outcome string) {
	lookupsTotal.WithLabelValues(outcome).Inc()
}

// RecordCache counts a cache read.
func RecordCache(hit bool) {
	if hit {
		cacheTotal.WithLabelValues("hit").Inc()
		return
	}
	cacheTotal.WithLabelValues("miss").Inc()
}

// SessionStarted marks a browser session slot as taken. The returned func
// releases it.
func SessionStarted() func() {
	sessionsInFlight.Inc()
	return sessionsInFlight.Dec
}
