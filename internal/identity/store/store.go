package store

import (
	"context"

	"bizlink/internal/identity/models"
	dErrors "bizlink/pkg/domain-errors"
)

// ErrNotFound keeps identity lookups consistent across the in-memory and
// Postgres implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "identity not found")

// Store is interface-driven so the service layer stays testable and the
// backing persistence can be swapped without rewiring business code.
type Store interface {
	Create(ctx context.Context, identity *models.Identity) error
	FindByID(ctx context.Context, id string) (*models.Identity, error)
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)
	// Search matches query case-insensitively against email and display name.
	// Admin identities are never returned; they have no messaging surface.
	Search(ctx context.Context, query string, limit int) ([]*models.Identity, error)
}
