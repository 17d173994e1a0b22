package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"bizlink/internal/platform/middleware"
)

const (
	readTimeout  = 60 * time.Second
	maxFrameSize = 1 << 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by the CORS layer on the REST surface;
		// the socket accepts any origin and relies on bearer auth.
		return true
	},
}

// inboundFrame is the only client-to-server traffic: room join requests.
// Messages themselves go through the REST send endpoint, the single write
// path.
type inboundFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Handler upgrades HTTP connections, authenticates them, and runs the per-
// connection read loop.
type Handler struct {
	gateway   *Gateway
	validator middleware.TokenValidator
	logger    *slog.Logger
}

func NewHandler(gateway *Gateway, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{gateway: gateway, validator: validator, logger: logger}
}

// ServeWS is the websocket endpoint. The connection lifecycle is
// Connecting -> Authenticated -> Joined(0..n) -> Disconnected; a failed
// handshake gets an authError frame and an immediate close, and no join is
// possible before authentication.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response; nothing else to do.
		return
	}

	claims, err := h.validator.ValidateToken(bearerToken(r))
	if err != nil {
		h.gateway.metrics.AuthFailures.Inc()
		h.rejectUnauthenticated(ws)
		return
	}

	conn := NewConnection(claims.IdentityID, deviceLabel(r.UserAgent()), ws)
	conn.Start()
	h.gateway.Register(conn)
	h.logger.InfoContext(r.Context(), "websocket connected",
		"identity_id", claims.IdentityID,
		"device", conn.Device(),
	)
	defer func() {
		h.gateway.Deregister(conn)
		conn.Close(websocket.CloseNormalClosure, "session closed")
		h.logger.InfoContext(r.Context(), "websocket disconnected",
			"identity_id", claims.IdentityID,
		)
	}()

	if payload, err := json.Marshal(Event{Type: EventConnected}); err == nil {
		_ = conn.Send(payload)
	}

	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	h.readLoop(conn, ws)
}

func (h *Handler) readLoop(conn *Connection, ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.replyError(conn, "invalid_argument", "invalid frame")
			continue
		}

		switch frame.Type {
		case EventJoinConversation:
			// Join is advisory and only checks the id is well-formed;
			// event addressing is decided at the messaging service.
			if _, err := uuid.Parse(frame.ConversationID); err != nil {
				h.replyError(conn, "invalid_argument", "malformed conversation id")
				continue
			}
			h.gateway.Join(frame.ConversationID, conn)
			if payload, err := json.Marshal(Event{Type: EventJoined, ConversationID: frame.ConversationID}); err == nil {
				_ = conn.Send(payload)
			}
		default:
			h.replyError(conn, "invalid_argument", "unknown frame type")
		}
	}
}

// rejectUnauthenticated delivers the auth failure frame before closing, so
// clients can distinguish bad credentials from network flaps.
func (h *Handler) rejectUnauthenticated(ws *websocket.Conn) {
	frame := errorFrame{Type: EventAuthError, Code: "unauthenticated", Message: "invalid or missing token"}
	if payload, err := json.Marshal(frame); err == nil {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = ws.WriteMessage(websocket.TextMessage, payload)
	}
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"),
		time.Now().Add(writeWait))
	_ = ws.Close()
}

func (h *Handler) replyError(conn *Connection, code, message string) {
	frame := errorFrame{Type: EventError, Code: code, Message: message}
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	_ = conn.Send(payload)
}

// bearerToken extracts the credential from the Authorization header or,
// for browser websocket clients that cannot set headers, the token query
// parameter.
func bearerToken(r *http.Request) string {
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	return r.URL.Query().Get("token")
}
