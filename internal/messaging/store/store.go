package store

import (
	"context"

	"bizlink/internal/messaging/models"
	dErrors "bizlink/pkg/domain-errors"
)

// ErrConversationNotFound keeps store-level 404s consistent across the
// in-memory and Postgres implementations.
var ErrConversationNotFound = dErrors.New(dErrors.CodeNotFound, "conversation not found")

// Store owns all durable messaging state. The realtime gateway never persists
// anything; a missed event is recoverable by re-fetching through this
// interface.
type Store interface {
	// FindOrCreateConversation returns the conversation for the unordered
	// pair {a,b}, creating it if absent, and reports whether this call
	// created it. Concurrent calls for the same pair converge on a single
	// conversation.
	FindOrCreateConversation(ctx context.Context, a, b string) (*models.Conversation, bool, error)

	// GetConversation loads a conversation by id.
	GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error)

	// AppendMessage inserts a message with a store-assigned sequence and
	// bumps the conversation's last_active_at atomically.
	AppendMessage(ctx context.Context, conversationID, senderID, receiverID, content string) (*models.Message, error)

	// ListMessages returns all messages in creation order (sequence
	// ascending).
	ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error)

	// MarkRead transitions every unread message addressed to receiverID in
	// the conversation to read and returns the number modified. Idempotent.
	MarkRead(ctx context.Context, conversationID, receiverID string) (int, error)

	// ListConversationsFor returns identityID's conversations annotated with
	// unread counts, most recently active first.
	ListConversationsFor(ctx context.Context, identityID string) ([]*models.ConversationSummary, error)
}
