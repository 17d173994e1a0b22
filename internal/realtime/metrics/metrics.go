package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the realtime gateway.
type Metrics struct {
	ConnectionsActive prometheus.Gauge
	EventsDelivered   prometheus.Counter
	EventsUndelivered prometheus.Counter
	AuthFailures      prometheus.Counter
}

// New creates a new Metrics instance with all gateway metrics registered.
func New() *Metrics {
	return &Metrics{
		ConnectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bizlink_ws_connections_active",
			Help: "Currently registered websocket connections",
		}),
		EventsDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bizlink_ws_events_delivered_total",
			Help: "Events delivered to at least one connection",
		}),
		EventsUndelivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bizlink_ws_events_undelivered_total",
			Help: "Events published to rooms with no live members",
		}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bizlink_ws_auth_failures_total",
			Help: "Websocket connections rejected at the auth handshake",
		}),
	}
}
