// Package metrics exposes session activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Veraticus/activity-monitor/pkg/interfaces"
	"github.com/Veraticus/activity-monitor/pkg/types"
)

// Collectors holds the activity metrics on a dedicated registry.
type Collectors struct {
	Registry *prometheus.Registry

	EventsTotal      *prometheus.CounterVec
	IdlePeriodsTotal prometheus.Counter
	SessionsTotal    prometheus.Counter
}

// Ensure Collectors implements EventObserver
var _ interfaces.EventObserver = (*Collectors)(nil)

// New creates and registers the collectors. Time gauges read from
// provider on every scrape.
func New(provider interfaces.SnapshotProvider) *Collectors {
	c := &Collectors{
		Registry: prometheus.NewRegistry(),

		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_events_total",
				Help: "Total activity log entries by kind",
			},
			[]string{"kind"},
		),

		IdlePeriodsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "activity_idle_periods_total",
				Help: "Total idle periods entered",
			},
		),

		SessionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "activity_sessions_total",
				Help: "Total monitoring sessions started",
			},
		),
	}

	activeSeconds := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "activity_active_seconds",
			Help: "Active time in the current session",
		},
		func() float64 { return provider.Stats().ActiveSeconds },
	)

	idleSeconds := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "activity_idle_seconds",
			Help: "Idle time in the current session",
		},
		func() float64 { return provider.Stats().IdleSeconds },
	)

	c.Registry.MustRegister(
		c.EventsTotal,
		c.IdlePeriodsTotal,
		c.SessionsTotal,
		activeSeconds,
		idleSeconds,
	)
	return c
}

// ObserveEvent counts an appended log entry.
func (c *Collectors) ObserveEvent(ev types.Event) {
	c.EventsTotal.WithLabelValues(ev.Kind.String()).Inc()

	switch ev.Kind {
	case types.KindIdleStart:
		c.IdlePeriodsTotal.Inc()
	case types.KindSessionStart:
		c.SessionsTotal.Inc()
	}
}
