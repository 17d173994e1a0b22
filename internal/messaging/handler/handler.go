package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bizlink/internal/messaging/models"
	"bizlink/internal/platform/middleware"
	"bizlink/internal/transport/http/shared"
	dErrors "bizlink/pkg/domain-errors"
)

// Service defines the interface for messaging operations.
type Service interface {
	Send(ctx context.Context, callerID, receiverID, content string) (*models.MessageResponse, error)
	ListConversations(ctx context.Context, callerID string) ([]models.ConversationResponse, error)
	ListMessages(ctx context.Context, callerID, conversationID string) ([]*models.Message, error)
	MarkRead(ctx context.Context, callerID, conversationID string) (*models.MarkReadResponse, error)
}

// Handler is the thin REST layer over the messaging service. Authorization
// decisions live in the service; this layer only decodes, delegates, and
// translates errors.
type Handler struct {
	logger       *slog.Logger
	messaging    Service
	jwtValidator middleware.TokenValidator
}

func New(messaging Service, logger *slog.Logger, jwtValidator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:       logger,
		messaging:    messaging,
		jwtValidator: jwtValidator,
	}
}

// Register registers the messaging routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/api/messages", h.handleSend)
		r.Get("/api/conversations", h.handleListConversations)
		r.Get("/api/conversations/{conversationID}/messages", h.handleListMessages)
		r.Patch("/api/conversations/{conversationID}/read", h.handleMarkRead)
	})
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := middleware.GetIdentityID(ctx)

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidArgument, "invalid request body"))
		return
	}

	msg, err := h.messaging.Send(ctx, callerID, req.ReceiverID, req.Content)
	if err != nil {
		h.logWarnOrError(ctx, "send failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, msg)
}

func (h *Handler) handleListConversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := middleware.GetIdentityID(ctx)

	conversations, err := h.messaging.ListConversations(ctx, callerID)
	if err != nil {
		h.logWarnOrError(ctx, "list conversations failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, conversations)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := middleware.GetIdentityID(ctx)
	conversationID := chi.URLParam(r, "conversationID")

	messages, err := h.messaging.ListMessages(ctx, callerID, conversationID)
	if err != nil {
		h.logWarnOrError(ctx, "list messages failed", err)
		shared.WriteError(w, err)
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	shared.WriteJSON(w, http.StatusOK, messages)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := middleware.GetIdentityID(ctx)
	conversationID := chi.URLParam(r, "conversationID")

	resp, err := h.messaging.MarkRead(ctx, callerID, conversationID)
	if err != nil {
		h.logWarnOrError(ctx, "mark read failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

// logWarnOrError keeps caller mistakes at warn and infrastructure failures
// at error so on-call noise tracks actionability.
func (h *Handler) logWarnOrError(ctx context.Context, msg string, err error) {
	attrs := []any{
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeUnavailable, dErrors.CodeInternal:
		h.logger.ErrorContext(ctx, msg, attrs...)
	default:
		h.logger.WarnContext(ctx, msg, attrs...)
	}
}
