package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the relay's prometheus instruments, served on /metrics.
// Each Server owns its own registry so tests can start several servers in
// one process without duplicate-registration panics.
type metrics struct {
	registry *prometheus.Registry

	sessionsActive  prometheus.Gauge
	joinRejections  prometheus.Counter
	messagesRelayed *prometheus.CounterVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &metrics{
		registry: reg,
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chatrelay_sessions_active",
			Help: "Number of admitted sessions currently online.",
		}),
		joinRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "chatrelay_join_rejections_total",
			Help: "Join attempts rejected because the username was taken.",
		}),
		messagesRelayed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chatrelay_messages_relayed_total",
			Help: "Chat messages routed by the relay.",
		}, []string{"kind"}), // public | private
	}
}
