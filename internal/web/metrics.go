// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package web

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the gateway's Prometheus metrics.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	ConnectionsTotal *prometheus.CounterVec
	AttachedClients  *prometheus.GaugeVec
	EventsDropped    prometheus.Counter
	TasksAborted     prometheus.Counter
}

// NewMetrics creates and registers the gateway metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "driftwood_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
		ConnectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "driftwood_connections_total",
				Help: "Total number of realtime attach connections by transport",
			},
			[]string{"transport"},
		),
		AttachedClients: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "driftwood_attached_clients",
				Help: "Currently attached realtime clients by transport",
			},
			[]string{"transport"},
		),
		EventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "driftwood_events_dropped_total",
				Help: "Total number of events dropped on slow realtime connections",
			},
		),
		TasksAborted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "driftwood_tasks_aborted_total",
				Help: "Total number of verb tasks that aborted with an uncaught error",
			},
		),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.ConnectionsTotal,
		m.AttachedClients,
		m.EventsDropped,
		m.TasksAborted,
	)
	return m
}
