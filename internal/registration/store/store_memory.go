package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"technovit/internal/registration/models"
	"technovit/pkg/domain"
	"technovit/pkg/platform/sentinel"
)

// Error Contract:
// - ErrNotFound when the registration (or the caller's invitation in it) does not exist
// - ErrConflict when a payment is confirmed on a registration that is already paid
// InMemory keeps registrations in insertion order. Each mutation holds the
// write lock for its whole read-modify-write, matching the single-document
// atomicity of the mongo store.
type InMemory struct {
	mu    sync.RWMutex
	regs  map[domain.RegistrationID]*models.Registration
	order []domain.RegistrationID
}

func NewInMemory() *InMemory {
	return &InMemory{regs: make(map[domain.RegistrationID]*models.Registration)}
}

func (s *InMemory) Insert(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.regs[reg.ID]; exists {
		return fmt.Errorf("registration %s: %w", reg.ID, sentinel.ErrConflict)
	}
	s.regs[reg.ID] = reg.Clone()
	s.order = append(s.order, reg.ID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.RegistrationID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.regs[id]
	if !ok {
		return nil, fmt.Errorf("registration %s: %w", id, sentinel.ErrNotFound)
	}
	return reg.Clone(), nil
}

func (s *InMemory) ListVisibleTo(_ context.Context, userID domain.UserID) ([]*models.Registration, error) {
	return s.filter(func(r *models.Registration) bool { return r.Involves(userID) }), nil
}

func (s *InMemory) ListAll(_ context.Context) ([]*models.Registration, error) {
	return s.filter(func(*models.Registration) bool { return true }), nil
}

// ListByEvents returns registrations for the given events; nil means every event.
func (s *InMemory) ListByEvents(_ context.Context, eventIDs []domain.EventID) ([]*models.Registration, error) {
	if eventIDs == nil {
		return s.filter(func(*models.Registration) bool { return true }), nil
	}
	want := make(map[domain.EventID]struct{}, len(eventIDs))
	for _, id := range eventIDs {
		want[id] = struct{}{}
	}
	return s.filter(func(r *models.Registration) bool {
		_, ok := want[r.Event]
		return ok
	}), nil
}

func (s *InMemory) filter(keep func(*models.Registration) bool) []*models.Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Registration, 0, len(s.order))
	for _, id := range s.order {
		if reg := s.regs[id]; keep(reg) {
			out = append(out, reg.Clone())
		}
	}
	return out
}

// SetInvitationStatus updates the caller's invitation record only. Records
// whose token expired at now do not match.
func (s *InMemory) SetInvitationStatus(_ context.Context, id domain.RegistrationID, userID domain.UserID, status models.InvitationStatus, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[id]
	if !ok {
		return fmt.Errorf("registration %s: %w", id, sentinel.ErrNotFound)
	}
	for i := range reg.InvitationStatus {
		inv := &reg.InvitationStatus[i]
		if inv.UserID == userID && !inv.Expired(now) {
			inv.Status = status
			return nil
		}
	}
	return fmt.Errorf("invitation for %s in %s: %w", userID, id, sentinel.ErrNotFound)
}

func (s *InMemory) Delete(_ context.Context, id domain.RegistrationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.regs[id]; !ok {
		return fmt.Errorf("registration %s: %w", id, sentinel.ErrNotFound)
	}
	delete(s.regs, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemory) RemoveMember(_ context.Context, id domain.RegistrationID, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[id]
	if !ok {
		return fmt.Errorf("registration %s: %w", id, sentinel.ErrNotFound)
	}
	s.regs[id] = reg.WithoutMember(userID)
	return nil
}

func (s *InMemory) MarkPaid(_ context.Context, id domain.RegistrationID, paymentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[id]
	if !ok {
		return fmt.Errorf("registration %s: %w", id, sentinel.ErrNotFound)
	}
	if reg.PaymentStatus == models.PaymentPaid {
		return fmt.Errorf("registration %s already paid: %w", id, sentinel.ErrConflict)
	}
	reg.PaymentStatus = models.PaymentPaid
	reg.PaymentID = &paymentID
	return nil
}
