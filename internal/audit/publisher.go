package audit

import (
	"context"
	"log/slog"
	"time"
)

// Store is the append-only sink behind the worker. The in-memory store backs
// tests and dev mode; the Kafka store ships events off-process.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher accepts audit events from domain logic without blocking the hot
// path: events go onto a bounded inbox drained by the Worker. A full inbox
// drops the event with a log line rather than stalling a send.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Emit enqueues the event, stamping it if the caller did not.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit inbox full, dropping event",
			"action", event.Action,
			"actor_id", event.ActorID,
		)
	}
}

// Inbox exposes the receive side for the Worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
