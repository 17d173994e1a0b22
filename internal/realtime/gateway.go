package realtime

import (
	"context"
	"log/slog"
	"sync"

	"bizlink/internal/realtime/metrics"
)

// Gateway is the explicit in-process connection registry. Rooms are keyed by
// identity id (joined automatically on registration) and by conversation id
// (joined on request). All state here is ephemeral: registration happens on
// auth success, deregistration on disconnect, and nothing else mutates the
// maps. A missed event never loses data since clients re-fetch through the
// store-backed REST surface.
type Gateway struct {
	mu          sync.RWMutex
	rooms       map[string]map[Conn]struct{}
	memberships map[Conn]map[string]struct{}

	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewGateway(logger *slog.Logger, m *metrics.Metrics) *Gateway {
	return &Gateway{
		rooms:       make(map[string]map[Conn]struct{}),
		memberships: make(map[Conn]map[string]struct{}),
		logger:      logger,
		metrics:     m,
	}
}

// Register adds an authenticated connection and joins it to its own identity
// room, enabling direct addressing without the client opting in.
func (g *Gateway) Register(conn Conn) {
	g.mu.Lock()
	g.memberships[conn] = make(map[string]struct{})
	g.joinLocked(conn.IdentityID(), conn)
	g.mu.Unlock()

	g.metrics.ConnectionsActive.Inc()
}

// Join adds the connection to the given room. Join is advisory: membership
// checks happen at the messaging service when events are emitted, not here.
func (g *Gateway) Join(room string, conn Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, registered := g.memberships[conn]; !registered {
		return
	}
	g.joinLocked(room, conn)
}

// Deregister discards the connection and every room membership it holds.
func (g *Gateway) Deregister(conn Conn) {
	g.mu.Lock()
	memberships, registered := g.memberships[conn]
	if !registered {
		g.mu.Unlock()
		return
	}
	for room := range memberships {
		g.leaveLocked(room, conn)
	}
	delete(g.memberships, conn)
	g.mu.Unlock()

	g.metrics.ConnectionsActive.Dec()
}

// PublishEvent marshals the event and fans it out to every member of the
// room. Connections whose send fails are dropped from the registry.
func (g *Gateway) PublishEvent(ctx context.Context, room string, event Event) {
	payload, err := marshalEvent(event)
	if err != nil {
		g.logger.ErrorContext(ctx, "failed to marshal event",
			"event_type", event.Type,
			"error", err,
		)
		return
	}

	g.mu.RLock()
	members := make([]Conn, 0, len(g.rooms[room]))
	for conn := range g.rooms[room] {
		members = append(members, conn)
	}
	g.mu.RUnlock()

	if len(members) == 0 {
		g.metrics.EventsUndelivered.Inc()
		return
	}

	var dead []Conn
	for _, conn := range members {
		if err := conn.Send(payload); err != nil {
			dead = append(dead, conn)
		}
	}
	if len(members) > len(dead) {
		g.metrics.EventsDelivered.Inc()
	}
	for _, conn := range dead {
		g.Deregister(conn)
	}
}

// RoomSize reports current members of a room.
func (g *Gateway) RoomSize(room string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms[room])
}

func (g *Gateway) joinLocked(room string, conn Conn) {
	members := g.rooms[room]
	if members == nil {
		members = make(map[Conn]struct{})
		g.rooms[room] = members
	}
	members[conn] = struct{}{}
	g.memberships[conn][room] = struct{}{}
}

func (g *Gateway) leaveLocked(room string, conn Conn) {
	members := g.rooms[room]
	if members == nil {
		return
	}
	delete(members, conn)
	if len(members) == 0 {
		delete(g.rooms, room)
	}
}
