package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"bizlink/internal/identity/models"
	dErrors "bizlink/pkg/domain-errors"
)

// PostgresStore persists identities in PostgreSQL via database/sql.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema applies the identity table. Safe to call at every startup.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS identities (
			id            UUID PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			role          TEXT NOT NULL,
			display_name  TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure identities schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, identity *models.Identity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (id, email, role, display_name, password_hash, created_at)
		VALUES ($1, lower($2), $3, $4, $5, $6)
	`, identity.ID, identity.Email, identity.Role, identity.DisplayName, identity.PasswordHash, identity.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, email, role, display_name, password_hash, created_at
		FROM identities WHERE id = $1
	`, id))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, email, role, display_name, password_hash, created_at
		FROM identities WHERE email = lower($1)
	`, email))
}

func (s *PostgresStore) Search(ctx context.Context, query string, limit int) ([]*models.Identity, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, role, display_name, password_hash, created_at
		FROM identities
		WHERE role <> 'admin'
		  AND ($1 = '' OR email ILIKE '%' || $1 || '%' OR display_name ILIKE '%' || $1 || '%')
		ORDER BY display_name
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search identities: %w", err)
	}
	defer rows.Close()

	var identities []*models.Identity
	for rows.Next() {
		var identity models.Identity
		if err := rows.Scan(&identity.ID, &identity.Email, &identity.Role, &identity.DisplayName, &identity.PasswordHash, &identity.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, &identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

func (s *PostgresStore) scanOne(row *sql.Row) (*models.Identity, error) {
	var identity models.Identity
	err := row.Scan(&identity.ID, &identity.Email, &identity.Role, &identity.DisplayName, &identity.PasswordHash, &identity.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan identity: %w", err)
	}
	return &identity, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}
	return false
}
