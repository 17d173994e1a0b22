package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"bizlink/internal/identity/models"
	dErrors "bizlink/pkg/domain-errors"
)

// MemoryStore is the in-memory Store used in dev mode and unit tests.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*models.Identity
	byEmail map[string]*models.Identity
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*models.Identity),
		byEmail: make(map[string]*models.Identity),
	}
}

func (s *MemoryStore) Create(ctx context.Context, identity *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(identity.Email)
	if _, exists := s.byEmail[email]; exists {
		return dErrors.New(dErrors.CodeConflict, "email already registered")
	}
	cp := *identity
	s.byID[identity.ID] = &cp
	s.byEmail[email] = &cp
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *identity
	return &cp, nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *identity
	return &cp, nil
}

func (s *MemoryStore) Search(ctx context.Context, query string, limit int) ([]*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	var matches []*models.Identity
	for _, identity := range s.byID {
		if identity.Role == models.RoleAdmin {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(identity.Email), needle) &&
			!strings.Contains(strings.ToLower(identity.DisplayName), needle) {
			continue
		}
		cp := *identity
		matches = append(matches, &cp)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].DisplayName < matches[j].DisplayName
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
