package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"bizlink/internal/audit"
	identityModel "bizlink/internal/identity/models"
	"bizlink/internal/messaging/metrics"
	"bizlink/internal/messaging/models"
	"bizlink/internal/messaging/policy"
	"bizlink/internal/messaging/store"
	"bizlink/internal/realtime"
	dErrors "bizlink/pkg/domain-errors"
)

// IdentityResolver resolves identity ids to identities. Implemented by the
// identity service.
type IdentityResolver interface {
	Resolve(ctx context.Context, id string) (*identityModel.Identity, error)
}

// EventPublisher fans an event out to everyone in a room. Implemented by the
// realtime gateway directly, or by the Redis bridge when the core runs as
// multiple instances. Delivery is best effort; durable state lives in the
// store only.
type EventPublisher interface {
	PublishEvent(ctx context.Context, room string, event realtime.Event)
}

// AuditEmitter records messaging actions on the audit trail.
type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service is the messaging orchestrator: the only component with business
// logic, and the single write path for messages.
type Service struct {
	store    store.Store
	identity IdentityResolver
	events   EventPublisher
	audit    AuditEmitter
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

func New(
	st store.Store,
	identity IdentityResolver,
	events EventPublisher,
	auditor AuditEmitter,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		store:    st,
		identity: identity,
		events:   events,
		audit:    auditor,
		logger:   logger,
		metrics:  m,
		tracer:   otel.Tracer("bizlink/messaging"),
	}
}

// Send validates input, runs the new-recipient gate, finds or creates the
// pair's conversation, appends the message, and notifies the receiver's
// identity room. Returns the created message with the sender's public
// identity attached.
func (s *Service) Send(ctx context.Context, callerID, receiverID, content string) (*models.MessageResponse, error) {
	ctx, span := s.tracer.Start(ctx, "messaging.Send")
	defer span.End()
	start := time.Now()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, s.rejectSend(dErrors.New(dErrors.CodeInvalidArgument, "message content must not be empty"))
	}
	if receiverID == "" || receiverID == callerID {
		return nil, s.rejectSend(dErrors.New(dErrors.CodeInvalidArgument, "receiver must be another account"))
	}

	caller, err := s.identity.Resolve(ctx, callerID)
	if err != nil {
		return nil, s.rejectSend(s.asTaxonomy(err, "failed to resolve caller"))
	}
	receiver, err := s.identity.Resolve(ctx, receiverID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, s.rejectSend(dErrors.New(dErrors.CodeInvalidArgument, "receiver does not exist"))
		}
		return nil, s.rejectSend(s.asTaxonomy(err, "failed to resolve receiver"))
	}

	if err := policy.CanInitiate(caller.Role, receiver.Role); err != nil {
		return nil, s.rejectSend(err)
	}

	conv, created, err := s.store.FindOrCreateConversation(ctx, callerID, receiverID)
	if err != nil {
		return nil, s.asTaxonomy(err, "failed to resolve conversation")
	}
	if created {
		s.metrics.ConversationsCreated.Inc()
	}

	msg, err := s.store.AppendMessage(ctx, conv.ID, callerID, receiverID, content)
	if err != nil {
		return nil, s.asTaxonomy(err, "failed to append message")
	}

	s.metrics.MessagesSent.Inc()
	s.metrics.ObserveSend(start)

	resp := &models.MessageResponse{Message: *msg, Sender: caller.Public()}
	s.events.PublishEvent(ctx, receiverID, realtime.NewMessageEvent(conv.ID, resp))
	s.audit.Emit(ctx, audit.Event{
		ActorID:        callerID,
		Action:         audit.ActionMessageSent,
		ConversationID: conv.ID,
		Detail:         msg.ID,
	})
	return resp, nil
}

// ListConversations returns the caller's conversations with unread counts
// and the counterpart's public identity attached.
func (s *Service) ListConversations(ctx context.Context, callerID string) ([]models.ConversationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "messaging.ListConversations")
	defer span.End()

	summaries, err := s.store.ListConversationsFor(ctx, callerID)
	if err != nil {
		return nil, s.asTaxonomy(err, "failed to list conversations")
	}

	responses := make([]models.ConversationResponse, 0, len(summaries))
	for _, summary := range summaries {
		conv := summary.Conversation
		counterpart := identityModel.PublicIdentity{ID: conv.Other(callerID)}
		if other, err := s.identity.Resolve(ctx, counterpart.ID); err == nil {
			counterpart = other.Public()
		} else {
			// A counterpart that no longer resolves still leaves the
			// conversation listable; display falls back to the bare id.
			s.logger.WarnContext(ctx, "counterpart did not resolve",
				"conversation_id", conv.ID,
				"counterpart_id", counterpart.ID,
				"error", err,
			)
		}
		responses = append(responses, models.ConversationResponse{
			ID:           conv.ID,
			Participants: conv.Participants(),
			Counterpart:  counterpart,
			LastActiveAt: conv.LastActiveAt,
			UnreadCount:  summary.UnreadCount,
		})
	}
	return responses, nil
}

// ListMessages runs the participant and interaction-type gates, then returns
// the conversation's messages in creation order.
func (s *Service) ListMessages(ctx context.Context, callerID, conversationID string) ([]*models.Message, error) {
	ctx, span := s.tracer.Start(ctx, "messaging.ListMessages")
	defer span.End()

	conv, err := s.loadConversationForCaller(ctx, callerID, conversationID)
	if err != nil {
		return nil, err
	}

	if err := s.requireAllowedInteraction(ctx, conv); err != nil {
		return nil, err
	}

	msgs, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, s.asTaxonomy(err, "failed to list messages")
	}
	return msgs, nil
}

// MarkRead runs the participant gate, transitions the caller's unread
// messages, and notifies the other participant when anything changed.
func (s *Service) MarkRead(ctx context.Context, callerID, conversationID string) (*models.MarkReadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "messaging.MarkRead")
	defer span.End()

	conv, err := s.loadConversationForCaller(ctx, callerID, conversationID)
	if err != nil {
		return nil, err
	}

	modified, err := s.store.MarkRead(ctx, conversationID, callerID)
	if err != nil {
		return nil, s.asTaxonomy(err, "failed to mark messages read")
	}

	if modified > 0 {
		s.metrics.MessagesMarkedRead.Add(float64(modified))
		s.events.PublishEvent(ctx, conv.Other(callerID), realtime.MessagesReadEvent(conv.ID, callerID))
		s.audit.Emit(ctx, audit.Event{
			ActorID:        callerID,
			Action:         audit.ActionMessagesRead,
			ConversationID: conv.ID,
		})
	}
	return &models.MarkReadResponse{ModifiedCount: modified}, nil
}

func (s *Service) loadConversationForCaller(ctx context.Context, callerID, conversationID string) (*models.Conversation, error) {
	if _, err := uuid.Parse(conversationID); err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "malformed conversation id")
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, s.asTaxonomy(err, "failed to load conversation")
	}
	if err := policy.RequireParticipant(conv, callerID); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *Service) requireAllowedInteraction(ctx context.Context, conv *models.Conversation) error {
	roles := make([]identityModel.Role, 0, 2)
	for _, participantID := range conv.Participants() {
		identity, err := s.identity.Resolve(ctx, participantID)
		if err != nil {
			return s.asTaxonomy(err, "failed to resolve participant")
		}
		roles = append(roles, identity.Role)
	}
	return policy.RequireInteraction(roles[0], roles[1])
}

// asTaxonomy converts lower-layer failures into the stable taxonomy. Errors
// already carrying a code pass through; anything else is a retryable
// Unavailable.
func (s *Service) asTaxonomy(err error, message string) error {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, message)
	default:
		return err
	}
}

func (s *Service) rejectSend(err error) error {
	s.metrics.SendRejected.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
	return err
}
