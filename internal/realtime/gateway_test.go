package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizlink/internal/realtime/metrics"
)

// promauto uses the default registry, so metrics are shared across the test
// binary.
var testMetrics = metrics.New()

// stubConn records delivered payloads and can be flipped to fail sends.
type stubConn struct {
	identityID string

	mu       sync.Mutex
	payloads [][]byte
	fail     bool
}

func newStubConn(identityID string) *stubConn {
	return &stubConn{identityID: identityID}
}

func (c *stubConn) IdentityID() string { return c.identityID }

func (c *stubConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("connection closed")
	}
	c.payloads = append(c.payloads, payload)
	return nil
}

func (c *stubConn) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.payloads))
	copy(out, c.payloads)
	return out
}

func (c *stubConn) setFail(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = fail
}

func newTestGateway() *Gateway {
	return NewGateway(slog.New(slog.NewTextHandler(io.Discard, nil)), testMetrics)
}

func TestGateway_RegisterJoinsIdentityRoom(t *testing.T) {
	g := newTestGateway()
	conn := newStubConn("user-1")

	g.Register(conn)
	defer g.Deregister(conn)

	assert.Equal(t, 1, g.RoomSize("user-1"))

	g.PublishEvent(context.Background(), "user-1", MessagesReadEvent("conv-1", "user-2"))

	payloads := conn.received()
	require.Len(t, payloads, 1)

	var ev Event
	require.NoError(t, json.Unmarshal(payloads[0], &ev))
	assert.Equal(t, EventMessagesRead, ev.Type)
	assert.Equal(t, "conv-1", ev.ConversationID)
	assert.Equal(t, "user-2", ev.ReaderID)
}

func TestGateway_PublishReachesAllDevicesOfOneIdentity(t *testing.T) {
	g := newTestGateway()
	laptop := newStubConn("user-1")
	phone := newStubConn("user-1")
	other := newStubConn("user-2")

	g.Register(laptop)
	g.Register(phone)
	g.Register(other)

	g.PublishEvent(context.Background(), "user-1", NewMessageEvent("conv-1", map[string]string{"id": "msg-1"}))

	assert.Len(t, laptop.received(), 1)
	assert.Len(t, phone.received(), 1)
	assert.Empty(t, other.received(), "events are addressed per identity room")
}

func TestGateway_PublishToEmptyRoomIsNoOp(t *testing.T) {
	g := newTestGateway()
	g.PublishEvent(context.Background(), "nobody-home", NewMessageEvent("conv-1", nil))
}

func TestGateway_JoinRequiresRegistration(t *testing.T) {
	g := newTestGateway()
	conn := newStubConn("user-1")

	g.Join("conv-1", conn)
	assert.Equal(t, 0, g.RoomSize("conv-1"), "unregistered connections cannot join rooms")

	g.Register(conn)
	g.Join("conv-1", conn)
	assert.Equal(t, 1, g.RoomSize("conv-1"))
}

func TestGateway_DeregisterLeavesEveryRoom(t *testing.T) {
	g := newTestGateway()
	conn := newStubConn("user-1")

	g.Register(conn)
	g.Join("conv-1", conn)
	g.Join("conv-2", conn)

	g.Deregister(conn)

	assert.Equal(t, 0, g.RoomSize("user-1"))
	assert.Equal(t, 0, g.RoomSize("conv-1"))
	assert.Equal(t, 0, g.RoomSize("conv-2"))

	// Deregistering twice is harmless.
	g.Deregister(conn)
}

func TestGateway_DeadConnectionIsDroppedOnPublish(t *testing.T) {
	g := newTestGateway()
	healthy := newStubConn("user-1")
	dead := newStubConn("user-1")

	g.Register(healthy)
	g.Register(dead)
	dead.setFail(true)

	g.PublishEvent(context.Background(), "user-1", NewMessageEvent("conv-1", nil))

	assert.Len(t, healthy.received(), 1)
	assert.Equal(t, 1, g.RoomSize("user-1"), "the failed connection is evicted")

	// A later publish no longer attempts the dead connection.
	g.PublishEvent(context.Background(), "user-1", NewMessageEvent("conv-1", nil))
	assert.Len(t, healthy.received(), 2)
}

func TestGateway_ConcurrentRegisterPublishDeregister(t *testing.T) {
	g := newTestGateway()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := newStubConn(fmt.Sprintf("user-%d", i%4))
			g.Register(conn)
			g.Join("conv-shared", conn)
			g.PublishEvent(ctx, "conv-shared", NewMessageEvent("conv-shared", nil))
			g.PublishEvent(ctx, conn.IdentityID(), MessagesReadEvent("conv-shared", "reader"))
			g.Deregister(conn)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, g.RoomSize("conv-shared"))
	for i := 0; i < 4; i++ {
		assert.Equal(t, 0, g.RoomSize(fmt.Sprintf("user-%d", i)))
	}
}
