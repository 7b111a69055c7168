// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package health

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Counters is implemented by each per-node registry (router, transport,
// producer, consumer) and by signaling.Manager through their Count()
// accessor. worker.Pool exposes LiveCount() instead, which reaches the
// gauges through Report.LiveWorkers.
type Counters interface {
	Count() int
}

// Metrics holds the room/session/media gauges that Refresh updates on each
// tick of RegisterRoutes' background refresh loop, grouped the same way
// internal/metrics.Metrics groups the KV gauges.
type Metrics struct {
	SignalingSessions prometheus.Gauge
	Routers           prometheus.Gauge
	Transports        prometheus.Gauge
	Producers         prometheus.Gauge
	Consumers         prometheus.Gauge
	LiveWorkers       prometheus.Gauge
	DatabaseUp        prometheus.Gauge
	SharedStoreUp     prometheus.Gauge
}

// NewMetrics registers and returns the health/signaling gauge set.
func NewMetrics() *Metrics {
	m := &Metrics{
		SignalingSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "connect_signaling_sessions",
			Help: "The number of websocket signaling sessions currently held open by this node",
		}),
		Routers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "connect_routers",
			Help: "The number of SFU routers currently owned by this node",
		}),
		Transports: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "connect_transports",
			Help: "The number of WebRTC transports currently owned by this node",
		}),
		Producers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "connect_producers",
			Help: "The number of media producers currently owned by this node",
		}),
		Consumers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "connect_consumers",
			Help: "The number of media consumers currently owned by this node",
		}),
		LiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "connect_live_workers",
			Help: "The number of live entries in this node's media worker pool",
		}),
		DatabaseUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "connect_database_up",
			Help: "1 if the database ping most recently succeeded, 0 otherwise",
		}),
		SharedStoreUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "connect_shared_store_up",
			Help: "1 if the shared-store round trip most recently succeeded, 0 otherwise",
		}),
	}
	prometheus.MustRegister(
		m.SignalingSessions, m.Routers, m.Transports, m.Producers,
		m.Consumers, m.LiveWorkers, m.DatabaseUp, m.SharedStoreUp,
	)
	return m
}

// Refresh sets every gauge from its current source. Any nil Counters is
// left at its last reported value (0 if never set).
func (m *Metrics) Refresh(report Report, sessions, routers, transports, producers, consumers Counters) {
	if sessions != nil {
		m.SignalingSessions.Set(float64(sessions.Count()))
	}
	if routers != nil {
		m.Routers.Set(float64(routers.Count()))
	}
	if transports != nil {
		m.Transports.Set(float64(transports.Count()))
	}
	if producers != nil {
		m.Producers.Set(float64(producers.Count()))
	}
	if consumers != nil {
		m.Consumers.Set(float64(consumers.Count()))
	}
	m.LiveWorkers.Set(float64(report.LiveWorkers))
	m.DatabaseUp.Set(boolToFloat(report.DatabaseUp))
	m.SharedStoreUp.Set(boolToFloat(report.SharedStoreUp))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
