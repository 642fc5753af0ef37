package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"technovit/internal/event/models"
	"technovit/pkg/domain"
	"technovit/pkg/platform/sentinel"
)

// Error Contract:
// - ErrNotFound when the event does not exist
// - ErrConflict when inserting an id that is already present
// InMemory keeps events in insertion order for tests and local development.
type InMemory struct {
	mu     sync.RWMutex
	events map[domain.EventID]*models.Event
	order  []domain.EventID
}

func NewInMemory() *InMemory {
	return &InMemory{events: make(map[domain.EventID]*models.Event)}
}

func (s *InMemory) Insert(_ context.Context, ev *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[ev.ID]; exists {
		return fmt.Errorf("event %s: %w", ev.ID, sentinel.ErrConflict)
	}
	s.events[ev.ID] = ev.Clone()
	s.order = append(s.order, ev.ID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.EventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, sentinel.ErrNotFound)
	}
	return ev.Clone(), nil
}

// List returns events pinned first, otherwise in insertion order.
func (s *InMemory) List(_ context.Context, includeHidden bool) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Event, 0, len(s.order))
	for _, id := range s.order {
		ev := s.events[id]
		if ev.IsHidden && !includeHidden {
			continue
		}
		out = append(out, ev.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].IsPinned && !out[j].IsPinned })
	return out, nil
}

// FindByIDs returns the known events among ids in insertion order.
func (s *InMemory) FindByIDs(_ context.Context, ids []domain.EventID) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[domain.EventID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]*models.Event, 0, len(ids))
	for _, id := range s.order {
		if _, ok := want[id]; ok {
			out = append(out, s.events[id].Clone())
		}
	}
	return out, nil
}

func (s *InMemory) FindIDsByCoordinator(_ context.Context, userID domain.UserID) ([]domain.EventID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.EventID
	for _, id := range s.order {
		if s.events[id].HasCoordinator(userID) {
			out = append(out, id)
		}
	}
	return out, nil
}

// UpdateFields applies the update under the write lock and returns the new state.
func (s *InMemory) UpdateFields(_ context.Context, id domain.EventID, update models.Update) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, sentinel.ErrNotFound)
	}
	next := ev.Apply(update)
	s.events[id] = next
	return next.Clone(), nil
}
