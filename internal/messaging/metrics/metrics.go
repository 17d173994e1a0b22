package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the messaging module.
type Metrics struct {
	MessagesSent         prometheus.Counter
	ConversationsCreated prometheus.Counter
	MessagesMarkedRead   prometheus.Counter
	SendDuration         prometheus.Histogram
	SendRejected         *prometheus.CounterVec
}

// New creates a new Metrics instance with all messaging module metrics
// registered.
func New() *Metrics {
	return &Metrics{
		MessagesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bizlink_messages_sent_total",
			Help: "Total number of messages persisted",
		}),
		ConversationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bizlink_conversations_created_total",
			Help: "Total number of conversations created",
		}),
		MessagesMarkedRead: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bizlink_messages_marked_read_total",
			Help: "Total number of messages transitioned to read",
		}),
		SendDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bizlink_send_duration_seconds",
			Help:    "Duration of send operations (hot path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		SendRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bizlink_send_rejected_total",
			Help: "Send operations rejected before persistence, by error code",
		}, []string{"code"}),
	}
}

// ObserveSend records the duration of a send operation.
func (m *Metrics) ObserveSend(start time.Time) {
	m.SendDuration.Observe(time.Since(start).Seconds())
}
