package store

import (
	"context"
	"fmt"
	"sync"

	"technovit/internal/user/models"
	"technovit/pkg/domain"
	"technovit/pkg/platform/sentinel"
)

// Error Contract:
// - ErrNotFound when the requested user does not exist
// - ErrConflict when an email is already taken
// InMemory stores users for tests and local development.
type InMemory struct {
	mu      sync.RWMutex
	users   map[domain.UserID]*models.User
	byEmail map[string]domain.UserID
}

// NewInMemory constructs an empty in-memory user store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:   make(map[domain.UserID]*models.User),
		byEmail: make(map[string]domain.UserID),
	}
}

func (s *InMemory) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := models.NormalizeEmail(user.Email)
	if _, taken := s.byEmail[email]; taken {
		return fmt.Errorf("email %s: %w", email, sentinel.ErrConflict)
	}
	stored := *user
	stored.Email = email
	s.users[user.ID] = &stored
	s.byEmail[email] = user.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byEmail[models.NormalizeEmail(email)]; ok {
		clone := *s.users[id]
		return &clone, nil
	}
	return nil, fmt.Errorf("user with email %s: %w", email, sentinel.ErrNotFound)
}

// FindByIDs returns the users that exist among ids; unknown ids are skipped.
func (s *InMemory) FindByIDs(_ context.Context, ids []domain.UserID) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(ids))
	seen := make(map[domain.UserID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if u, ok := s.users[id]; ok {
			clone := *u
			out = append(out, &clone)
		}
	}
	return out, nil
}

// CountVITians splits the distinct known ids by the isVITian flag; unknown ids are not counted.
func (s *InMemory) CountVITians(_ context.Context, ids []domain.UserID) (vitians, others int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[domain.UserID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		u, ok := s.users[id]
		if !ok {
			continue
		}
		if u.IsVITian {
			vitians++
		} else {
			others++
		}
	}
	return vitians, others, nil
}
