// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every ocpd instrument on one dedicated registry so tests
// can construct isolated instances and /metrics only exposes ocpd series.
type Metrics struct {
	registry *prometheus.Registry

	// PlaysTotal counts successful play routings per backend family
	// ("audio", "video", "web", "skill", "mpris").
	PlaysTotal *prometheus.CounterVec

	// StateTransitions counts player state changes by from/to state name.
	StateTransitions *prometheus.CounterVec

	// BusMessages counts bus traffic by direction ("in"/"out") and the
	// namespace class of the type ("common_play", "audio", "video", "web",
	// "mycroft", "other").
	BusMessages *prometheus.CounterVec

	// BridgeFailures counts failed D-Bus calls per external player.
	BridgeFailures *prometheus.CounterVec

	// SearchDuration observes catalog search latency.
	SearchDuration prometheus.Histogram

	// BackendLoadFailures counts backends that failed to construct.
	BackendLoadFailures *prometheus.CounterVec

	// WebsocketClients gauges currently connected GUI clients.
	WebsocketClients prometheus.Gauge
}

// New constructs the instrument set on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		PlaysTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ocpd_plays_total",
			Help: "Play requests successfully routed, by backend family",
		}, []string{"media_family"}),
		StateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ocpd_player_state_transitions_total",
			Help: "Player state machine transitions",
		}, []string{"from", "to"}),
		BusMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ocpd_bus_messages_total",
			Help: "Bus messages by direction and namespace class",
		}, []string{"direction", "type_class"}),
		BridgeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ocpd_bridge_player_failures_total",
			Help: "Failed D-Bus calls to external MPRIS players",
		}, []string{"player"}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ocpd_search_duration_seconds",
			Help:    "Catalog search duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		BackendLoadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ocpd_backend_load_failures_total",
			Help: "Configured backends that failed to load",
		}, []string{"family"}),
		WebsocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ocpd_websocket_clients",
			Help: "Currently connected GUI websocket clients",
		}),
	}

	reg.MustRegister(
		m.PlaysTotal,
		m.StateTransitions,
		m.BusMessages,
		m.BridgeFailures,
		m.SearchDuration,
		m.BackendLoadFailures,
		m.WebsocketClients,
	)
	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveBusMessage classifies a message type into its namespace class and
// counts it. Installed as the bus connection observer.
func (m *Metrics) ObserveBusMessage(direction, msgType string) {
	m.BusMessages.WithLabelValues(direction, TypeClass(msgType)).Inc()
}

// TypeClass maps a bus message type to a bounded label value. Full types
// embed skill ids and would blow up series cardinality.
func TypeClass(msgType string) string {
	switch {
	case strings.HasPrefix(msgType, "ovos.common_play."):
		return "common_play"
	case strings.HasPrefix(msgType, "ovos.audio."):
		return "audio"
	case strings.HasPrefix(msgType, "ovos.video."):
		return "video"
	case strings.HasPrefix(msgType, "ovos.web."):
		return "web"
	case strings.HasPrefix(msgType, "mycroft."):
		return "mycroft"
	default:
		return "other"
	}
}
