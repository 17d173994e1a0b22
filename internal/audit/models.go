package audit

import "time"

// Actions recorded on the messaging audit trail.
const (
	ActionMessageSent  = "message_sent"
	ActionMessagesRead = "messages_read"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp      time.Time `json:"timestamp"`
	ActorID        string    `json:"actor_id"`
	Action         string    `json:"action"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Detail         string    `json:"detail,omitempty"`
}
