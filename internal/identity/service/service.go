package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bizlink/internal/identity/models"
	"bizlink/internal/identity/store"
	jwttoken "bizlink/internal/jwt_token"
	dErrors "bizlink/pkg/domain-errors"
)

const maxSearchLimit = 50

// Service is the identity provider: it registers accounts, exchanges
// credentials for tokens, resolves ids for the messaging core, and powers
// recipient discovery.
type Service struct {
	store    store.Store
	tokens   *jwttoken.JWTService
	tokenTTL time.Duration
}

func New(st store.Store, tokens *jwttoken.JWTService, tokenTTL time.Duration) *Service {
	return &Service{store: st, tokens: tokens, tokenTTL: tokenTTL}
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, email, password string, role models.Role, displayName string) (*models.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "valid email is required")
	}
	if len(password) < 8 {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "password must be at least 8 characters")
	}
	if !role.Valid() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "invalid role: "+string(role))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	identity := &models.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		Role:         role,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.store.Create(ctx, identity); err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to create identity")
	}
	return identity, nil
}

// Login verifies credentials and returns a signed access token.
func (s *Service) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	identity, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load identity")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid credentials")
	}

	token, err := s.tokens.GenerateAccessToken(identity.ID, string(identity.Role), s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return &models.LoginResponse{
		AccessToken: token,
		Identity:    identity.Public(),
	}, nil
}

// Resolve returns the identity for id, or CodeNotFound.
func (s *Service) Resolve(ctx context.Context, id string) (*models.Identity, error) {
	identity, err := s.store.FindByID(ctx, id)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load identity")
	}
	return identity, nil
}

// Search finds messageable identities. The caller is excluded so a user
// cannot discover themselves as a recipient.
func (s *Service) Search(ctx context.Context, callerID, query string, limit int) ([]models.PublicIdentity, error) {
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	identities, err := s.store.Search(ctx, query, limit+1)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to search identities")
	}

	results := make([]models.PublicIdentity, 0, len(identities))
	for _, identity := range identities {
		if identity.ID == callerID {
			continue
		}
		results = append(results, identity.Public())
		if len(results) == limit {
			break
		}
	}
	return results, nil
}
