package models

import (
	"time"

	identityModel "bizlink/internal/identity/models"
)

// Conversation is the unique two-party thread between one identity pair.
// The pair is stored in lexicographic order so the unordered pair has a
// single canonical representation for the uniqueness constraint.
type Conversation struct {
	ID              string    `json:"id"`
	ParticipantLow  string    `json:"-"`
	ParticipantHigh string    `json:"-"`
	LastActiveAt    time.Time `json:"last_active_at"`
}

// ParticipantPair returns the canonical (low, high) ordering of two ids.
func ParticipantPair(a, b string) (low, high string) {
	if a < b {
		return a, b
	}
	return b, a
}

// Participants returns both participant ids in stored order.
func (c *Conversation) Participants() [2]string {
	return [2]string{c.ParticipantLow, c.ParticipantHigh}
}

// HasParticipant reports whether id is one of the two participants.
func (c *Conversation) HasParticipant(id string) bool {
	return id == c.ParticipantLow || id == c.ParticipantHigh
}

// Other returns the counterpart of id, or "" when id is not a participant.
func (c *Conversation) Other(id string) string {
	switch id {
	case c.ParticipantLow:
		return c.ParticipantHigh
	case c.ParticipantHigh:
		return c.ParticipantLow
	}
	return ""
}

// ConversationSummary is a conversation annotated with the caller's unread
// count, as returned by ListConversationsFor.
type ConversationSummary struct {
	Conversation *Conversation
	UnreadCount  int
}

// ConversationResponse is the REST projection of a summary, with the
// counterpart's public identity attached for display.
type ConversationResponse struct {
	ID           string                        `json:"id"`
	Participants [2]string                     `json:"participants"`
	Counterpart  identityModel.PublicIdentity  `json:"counterpart"`
	LastActiveAt time.Time                     `json:"last_active_at"`
	UnreadCount  int                           `json:"unread_count"`
}
