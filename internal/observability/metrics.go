// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions prometheus.GaugeFunc
	Exchanges      *prometheus.CounterVec
	ToolDispatches *prometheus.CounterVec
	LoopIterations prometheus.Histogram
	PrunedSessions prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics registers all instruments on a fresh registry. activeSessions is
// sampled on scrape so the gauge never drifts from the store.
func NewMetrics(namespace string, activeSessions func() float64) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		ActiveSessions: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live conversation sessions.",
		}, activeSessions),
		Exchanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_exchanges_total",
			Help:      "Chat exchanges by outcome.",
		}, []string{"outcome"}),
		ToolDispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_dispatches_total",
			Help:      "Tool dispatches by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		LoopIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "loop_iterations",
			Help:      "Model round trips per exchange.",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8},
		}),
		PrunedSessions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_sessions_total",
			Help:      "Sessions removed by idle-TTL pruning.",
		}),
		registry: reg,
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
