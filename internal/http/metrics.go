package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics implements core.Metrics on a private registry so several
// instances can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	PollTicksTotal      *prometheus.CounterVec
	SkippedTicksTotal   prometheus.Counter
	PlaybackEventsTotal *prometheus.CounterVec
	RefreshesTotal      *prometheus.CounterVec
	PlacementsTotal     *prometheus.CounterVec
	SessionsTotal       *prometheus.CounterVec
	CommandsTotal       *prometheus.CounterVec
	ErrorsTotal         *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PollTicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynamite_poll_ticks_total",
				Help: "Total number of playback samples taken",
			},
			[]string{"result"},
		),
		SkippedTicksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dynamite_poll_ticks_skipped_total",
				Help: "Poll ticks skipped because the previous sample was still running",
			},
		),
		PlaybackEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynamite_playback_events_total",
				Help: "Total number of playback transitions observed",
			},
			[]string{"event"},
		),
		RefreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynamite_credential_refreshes_total",
				Help: "Total number of credential refresh attempts",
			},
			[]string{"trigger", "status"},
		),
		PlacementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynamite_placements_total",
				Help: "Total number of playlist placements",
			},
			[]string{"kind", "status"},
		),
		SessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynamite_sessions_total",
				Help: "Total number of finished confirmation sessions",
			},
			[]string{"outcome"},
		),
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynamite_commands_total",
				Help: "Total number of chat commands handled",
			},
			[]string{"command", "status"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynamite_errors_total",
				Help: "Total number of errors",
			},
			[]string{"component", "type"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.PollTicksTotal,
		m.SkippedTicksTotal,
		m.PlaybackEventsTotal,
		m.RefreshesTotal,
		m.PlacementsTotal,
		m.SessionsTotal,
		m.CommandsTotal,
		m.ErrorsTotal,
	)
	return m
}

// Registry exposes the registry for the /metrics handler and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordPollTick(result string) {
	m.PollTicksTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordSkippedTick() {
	m.SkippedTicksTotal.Inc()
}

func (m *Metrics) RecordPlaybackEvent(event string) {
	m.PlaybackEventsTotal.WithLabelValues(event).Inc()
}

func (m *Metrics) RecordRefresh(trigger, status string) {
	m.RefreshesTotal.WithLabelValues(trigger, status).Inc()
}

func (m *Metrics) RecordPlacement(kind, status string) {
	m.PlacementsTotal.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) RecordSession(outcome string) {
	m.SessionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordCommand(command, status string) {
	m.CommandsTotal.WithLabelValues(command, status).Inc()
}

func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
