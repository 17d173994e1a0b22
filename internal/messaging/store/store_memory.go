package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"bizlink/internal/messaging/models"
)

// MemoryStore is the in-memory Store used in dev mode and unit tests. A
// single mutex arbitrates find-or-create, which gives the at-most-one-
// creation guarantee the Postgres store gets from its unique index.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation   // id -> conversation
	byPair        map[[2]string]string              // (low, high) -> conversation id
	messages      map[string][]*models.Message      // conversation id -> messages in seq order
	nextSeq       int64
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*models.Conversation),
		byPair:        make(map[[2]string]string),
		messages:      make(map[string][]*models.Message),
	}
}

func (s *MemoryStore) FindOrCreateConversation(ctx context.Context, a, b string) (*models.Conversation, bool, error) {
	low, high := models.ParticipantPair(a, b)
	key := [2]string{low, high}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byPair[key]; ok {
		cp := *s.conversations[id]
		return &cp, false, nil
	}

	conv := &models.Conversation{
		ID:              uuid.NewString(),
		ParticipantLow:  low,
		ParticipantHigh: high,
		LastActiveAt:    time.Now(),
	}
	s.conversations[conv.ID] = conv
	s.byPair[key] = conv.ID

	cp := *conv
	return &cp, true, nil
}

func (s *MemoryStore) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	cp := *conv
	return &cp, nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, conversationID, senderID, receiverID, content string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}

	s.nextSeq++
	msg := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		Read:           false,
		Seq:            s.nextSeq,
		CreatedAt:      time.Now(),
	}
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	conv.LastActiveAt = msg.CreatedAt

	cp := *msg
	return &cp, nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, ErrConversationNotFound
	}

	msgs := s.messages[conversationID]
	out := make([]*models.Message, len(msgs))
	for i, msg := range msgs {
		cp := *msg
		out[i] = &cp
	}
	return out, nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, conversationID, receiverID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return 0, ErrConversationNotFound
	}

	modified := 0
	for _, msg := range s.messages[conversationID] {
		if msg.ReceiverID == receiverID && !msg.Read {
			msg.Read = true
			modified++
		}
	}
	return modified, nil
}

func (s *MemoryStore) ListConversationsFor(ctx context.Context, identityID string) ([]*models.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var summaries []*models.ConversationSummary
	for _, conv := range s.conversations {
		if !conv.HasParticipant(identityID) {
			continue
		}
		unread := 0
		for _, msg := range s.messages[conv.ID] {
			if msg.ReceiverID == identityID && !msg.Read {
				unread++
			}
		}
		cp := *conv
		summaries = append(summaries, &models.ConversationSummary{
			Conversation: &cp,
			UnreadCount:  unread,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Conversation.LastActiveAt.After(summaries[j].Conversation.LastActiveAt)
	})
	return summaries, nil
}
