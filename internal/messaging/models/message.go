package models

import (
	"time"

	identityModel "bizlink/internal/identity/models"
)

// Message is immutable once created except for the Read flag, which only
// transitions false to true via MarkRead. Seq is the store-assigned insertion
// sequence and is the authoritative ordering tiebreaker; CreatedAt alone is
// ambiguous for same-instant sends.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	Content        string    `json:"content"`
	Read           bool      `json:"read"`
	Seq            int64     `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// SendMessageRequest is the send endpoint payload.
type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

// MessageResponse is a message with the sender's public identity attached.
type MessageResponse struct {
	Message
	Sender identityModel.PublicIdentity `json:"sender"`
}

// MarkReadResponse reports how many messages a mark-read call transitioned.
type MarkReadResponse struct {
	ModifiedCount int `json:"modified_count"`
}
