package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const bridgeChannel = "bizlink.realtime.events"

// envelope is the cross-instance wire format: a room plus the event bound
// for it.
type envelope struct {
	Room  string `json:"room"`
	Event Event  `json:"event"`
}

// Bridge relays events through Redis pub/sub so fan-out reaches connections
// held by other service instances. Each instance publishes every event and
// delivers whatever arrives on the channel into its local gateway; rooms
// with no local members are simply a no-op. The bridge holds no durable
// state, same as the gateway.
type Bridge struct {
	client  *redis.Client
	gateway *Gateway
	logger  *slog.Logger
}

func NewBridge(client *redis.Client, gateway *Gateway, logger *slog.Logger) *Bridge {
	return &Bridge{client: client, gateway: gateway, logger: logger}
}

// PublishEvent implements the messaging service's publisher interface by
// relaying through Redis instead of the local gateway.
func (b *Bridge) PublishEvent(ctx context.Context, room string, event Event) {
	payload, err := json.Marshal(envelope{Room: room, Event: event})
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to marshal bridge envelope",
			"event_type", event.Type,
			"error", err,
		)
		return
	}
	if err := b.client.Publish(ctx, bridgeChannel, payload).Err(); err != nil {
		// Degrade to local delivery: connected clients on this instance
		// still get the event, and others recover via re-fetch.
		b.logger.WarnContext(ctx, "bridge publish failed, delivering locally",
			"event_type", event.Type,
			"error", err,
		)
		b.gateway.PublishEvent(ctx, room, event)
	}
}

// Run subscribes to the bridge channel and forwards events into the local
// gateway until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, bridgeChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.WarnContext(ctx, "discarding malformed bridge envelope", "error", err)
				continue
			}
			b.gateway.PublishEvent(ctx, env.Room, env.Event)
		}
	}
}
