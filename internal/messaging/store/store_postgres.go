package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bizlink/internal/messaging/models"
)

// PostgresStore persists conversations and messages via pgx. The uniqueness
// constraint on the canonical participant pair is what makes find-or-create
// safe across concurrent service instances; there is no client-side locking.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema applies the messaging tables. Safe to call at every startup.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS conversations (
			id               UUID PRIMARY KEY,
			participant_low  TEXT NOT NULL,
			participant_high TEXT NOT NULL,
			last_active_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (participant_low, participant_high)
		);
		CREATE TABLE IF NOT EXISTS messages (
			id              UUID PRIMARY KEY,
			seq             BIGSERIAL,
			conversation_id UUID NOT NULL REFERENCES conversations(id),
			sender_id       TEXT NOT NULL,
			receiver_id     TEXT NOT NULL,
			content         TEXT NOT NULL,
			read            BOOLEAN NOT NULL DEFAULT FALSE,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_messages_conversation_seq ON messages (conversation_id, seq);
		CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages (conversation_id, receiver_id) WHERE NOT read;
	`)
	if err != nil {
		return fmt.Errorf("ensure messaging schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindOrCreateConversation(ctx context.Context, a, b string) (*models.Conversation, bool, error) {
	low, high := models.ParticipantPair(a, b)

	// Reject-and-retry-as-lookup: the insert loses cleanly on conflict and
	// the follow-up select finds whichever row won the race.
	var conv models.Conversation
	err := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, participant_low, participant_high)
		VALUES (gen_random_uuid(), $1, $2)
		ON CONFLICT (participant_low, participant_high) DO NOTHING
		RETURNING id::text, participant_low, participant_high, last_active_at
	`, low, high).Scan(&conv.ID, &conv.ParticipantLow, &conv.ParticipantHigh, &conv.LastActiveAt)
	if err == nil {
		return &conv, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("create conversation: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT id::text, participant_low, participant_high, last_active_at
		FROM conversations
		WHERE participant_low = $1 AND participant_high = $2
	`, low, high).Scan(&conv.ID, &conv.ParticipantLow, &conv.ParticipantHigh, &conv.LastActiveAt)
	if err != nil {
		return nil, false, fmt.Errorf("load conversation after conflict: %w", err)
	}
	return &conv, false, nil
}

func (s *PostgresStore) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, participant_low, participant_high, last_active_at
		FROM conversations
		WHERE id = $1::uuid
	`, conversationID).Scan(&conv.ID, &conv.ParticipantLow, &conv.ParticipantHigh, &conv.LastActiveAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return &conv, nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, conversationID, senderID, receiverID, content string) (*models.Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin append tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var msg models.Message
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, receiver_id, content)
		VALUES (gen_random_uuid(), $1::uuid, $2, $3, $4)
		RETURNING id::text, seq, conversation_id::text, sender_id, receiver_id, content, read, created_at
	`, conversationID, senderID, receiverID, content).Scan(
		&msg.ID, &msg.Seq, &msg.ConversationID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &msg.Read, &msg.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("insert message: %w", err)
	}

	ct, err := tx.Exec(ctx, `
		UPDATE conversations SET last_active_at = $2 WHERE id = $1::uuid
	`, conversationID, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("bump conversation activity: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrConversationNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit append tx: %w", err)
	}
	return &msg, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id::text, seq, conversation_id::text, sender_id, receiver_id, content, read, created_at
		FROM messages
		WHERE conversation_id = $1::uuid
		ORDER BY seq ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []*models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.Seq, &msg.ConversationID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &msg.Read, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, &msg)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate messages: %w", rows.Err())
	}
	return msgs, nil
}

func (s *PostgresStore) MarkRead(ctx context.Context, conversationID, receiverID string) (int, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return 0, err
	}

	ct, err := s.pool.Exec(ctx, `
		UPDATE messages
		SET read = TRUE
		WHERE conversation_id = $1::uuid AND receiver_id = $2 AND NOT read
	`, conversationID, receiverID)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	return int(ct.RowsAffected()), nil
}

func (s *PostgresStore) ListConversationsFor(ctx context.Context, identityID string) ([]*models.ConversationSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id::text, c.participant_low, c.participant_high, c.last_active_at,
		       COUNT(m.id) FILTER (WHERE m.receiver_id = $1 AND NOT m.read) AS unread
		FROM conversations c
		LEFT JOIN messages m ON m.conversation_id = c.id
		WHERE c.participant_low = $1 OR c.participant_high = $1
		GROUP BY c.id
		ORDER BY c.last_active_at DESC
	`, identityID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var summaries []*models.ConversationSummary
	for rows.Next() {
		var conv models.Conversation
		var unread int
		if err := rows.Scan(&conv.ID, &conv.ParticipantLow, &conv.ParticipantHigh, &conv.LastActiveAt, &unread); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		summaries = append(summaries, &models.ConversationSummary{
			Conversation: &conv,
			UnreadCount:  unread,
		})
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate conversations: %w", rows.Err())
	}
	return summaries, nil
}

func isForeignKeyViolation(err error) bool {
	type sqlState interface{ SQLState() string }
	var st sqlState
	if errors.As(err, &st) {
		return st.SQLState() == "23503" // foreign_key_violation
	}
	return false
}
