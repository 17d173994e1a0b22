package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	identityModel "bizlink/internal/identity/models"
	"bizlink/internal/platform/middleware"
	"bizlink/internal/transport/http/shared"
	dErrors "bizlink/pkg/domain-errors"
)

// Service defines the identity operations the handler needs.
type Service interface {
	Register(ctx context.Context, email, password string, role identityModel.Role, displayName string) (*identityModel.Identity, error)
	Login(ctx context.Context, email, password string) (*identityModel.LoginResponse, error)
	Search(ctx context.Context, callerID, query string, limit int) ([]identityModel.PublicIdentity, error)
}

// Handler exposes account and discovery endpoints.
type Handler struct {
	logger       *slog.Logger
	identity     Service
	jwtValidator middleware.TokenValidator
}

func New(identity Service, logger *slog.Logger, jwtValidator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:       logger,
		identity:     identity,
		jwtValidator: jwtValidator,
	}
}

// Register registers the identity routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/auth/register", h.handleRegister)
	r.Post("/api/auth/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Get("/api/users/search", h.handleSearch)
	})
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidArgument, "invalid request body"))
		return
	}

	identity, err := h.identity.Register(ctx, req.Email, req.Password, identityModel.Role(req.Role), req.DisplayName)
	if err != nil {
		h.logger.WarnContext(ctx, "register failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, identity.Public())
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req identityModel.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidArgument, "invalid request body"))
		return
	}

	resp, err := h.identity.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := middleware.GetIdentityID(ctx)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidArgument, "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	results, err := h.identity.Search(ctx, callerID, r.URL.Query().Get("query"), limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "identity search failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, results)
}
