// Package metrics holds the Prometheus collectors exported by FreeSlot.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every collector the service layer updates.
type Metrics struct {
	ResolverCalls    *prometheus.CounterVec
	ResolverLatency  prometheus.Histogram
	OverlapRuns      *prometheus.CounterVec
	OverlapExcluded  prometheus.Counter
	SyncRuns         *prometheus.CounterVec
	SyncFeedFailures prometheus.Counter
	SyncBusySlots    prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg. A nil reg gets a
// private registry, which keeps tests from colliding on the global one.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		ResolverCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "freeslot",
			Name:      "resolver_calls_total",
			Help:      "Effective availability resolutions by outcome.",
		}, []string{"outcome"}),
		ResolverLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "freeslot",
			Name:      "resolver_duration_seconds",
			Help:      "Time spent resolving one user's availability.",
			Buckets:   prometheus.DefBuckets,
		}),
		OverlapRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "freeslot",
			Name:      "overlap_runs_total",
			Help:      "Overlap computations by kind and whether the result was degraded.",
		}, []string{"kind", "degraded"}),
		OverlapExcluded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "freeslot",
			Name:      "overlap_excluded_participants_total",
			Help:      "Participants left out of an overlap because their availability failed to load.",
		}),
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "freeslot",
			Name:      "calendar_sync_runs_total",
			Help:      "Calendar sync runs by outcome.",
		}, []string{"outcome"}),
		SyncFeedFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "freeslot",
			Name:      "calendar_sync_feed_failures_total",
			Help:      "ICS feeds that could not be fetched or parsed.",
		}),
		SyncBusySlots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "freeslot",
			Name:      "calendar_sync_busy_slots_total",
			Help:      "Busy slots written by the calendar sync job.",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.ResolverCalls,
		m.ResolverLatency,
		m.OverlapRuns,
		m.OverlapExcluded,
		m.SyncRuns,
		m.SyncFeedFailures,
		m.SyncBusySlots,
	)

	return m
}

// ObserveResolve records one resolver call.
func (m *Metrics) ObserveResolve(start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ResolverCalls.With(prometheus.Labels{"outcome": outcome}).Inc()
	m.ResolverLatency.Observe(time.Since(start).Seconds())
}

// ObserveOverlap records one overlap computation.
func (m *Metrics) ObserveOverlap(kind string, excluded int) {
	degraded := "false"
	if excluded > 0 {
		degraded = "true"
	}
	m.OverlapRuns.With(prometheus.Labels{"kind": kind, "degraded": degraded}).Inc()
	m.OverlapExcluded.Add(float64(excluded))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
