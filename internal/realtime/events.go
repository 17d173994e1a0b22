package realtime

import "encoding/json"

// Wire event types. Client to server: joinConversation. Server to client:
// the rest.
const (
	EventConnected        = "connected"
	EventNewMessage       = "newMessage"
	EventMessagesRead     = "messagesRead"
	EventJoinConversation = "joinConversation"
	EventJoined           = "joined"
	EventError            = "error"
	EventAuthError        = "authError"
)

// Event is the server-to-client frame. Message carries the full message
// payload for newMessage; ReaderID is set for messagesRead.
type Event struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	Message        any    `json:"message,omitempty"`
	ReaderID       string `json:"reader_id,omitempty"`
}

// NewMessageEvent builds the newMessage frame delivered to the receiver's
// identity room.
func NewMessageEvent(conversationID string, message any) Event {
	return Event{Type: EventNewMessage, ConversationID: conversationID, Message: message}
}

// MessagesReadEvent builds the messagesRead frame delivered to the other
// participant's identity room.
func MessagesReadEvent(conversationID, readerID string) Event {
	return Event{Type: EventMessagesRead, ConversationID: conversationID, ReaderID: readerID}
}

// errorFrame is the best-effort error event sent to a live connection. The
// connection stays open except for authentication failures.
type errorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func marshalEvent(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}
