package store

import (
	"context"

	"technovit/internal/analytics/models"
	eventmodels "technovit/internal/event/models"
	regmodels "technovit/internal/registration/models"
	"technovit/pkg/domain"
)

type registrationLister interface {
	ListByEvents(ctx context.Context, eventIDs []domain.EventID) ([]*regmodels.Registration, error)
}

type eventLookup interface {
	FindByIDs(ctx context.Context, ids []domain.EventID) ([]*eventmodels.Event, error)
}

// InMemory computes stats over the in-memory registration and event stores
// with the same semantics as the mongo pipeline: paid registrations whose
// event no longer exists contribute no revenue.
type InMemory struct {
	registrations registrationLister
	events        eventLookup
}

func NewInMemory(registrations registrationLister, events eventLookup) *InMemory {
	return &InMemory{registrations: registrations, events: events}
}

func (s *InMemory) Stats(ctx context.Context, eventIDs []domain.EventID) (*models.Stats, error) {
	regs, err := s.registrations.ListByEvents(ctx, eventIDs)
	if err != nil {
		return nil, err
	}
	stats := &models.Stats{TotalRegistrations: len(regs)}
	var paidEvents []domain.EventID
	paidPerEvent := make(map[domain.EventID]int)
	for _, r := range regs {
		switch r.PaymentStatus {
		case regmodels.PaymentPaid:
			stats.PaidCount++
			if paidPerEvent[r.Event] == 0 {
				paidEvents = append(paidEvents, r.Event)
			}
			paidPerEvent[r.Event]++
		case regmodels.PaymentPending:
			stats.UnpaidCount++
		}
	}
	if len(paidEvents) == 0 {
		return stats, nil
	}
	events, err := s.events.FindByIDs(ctx, paidEvents)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		stats.TotalRevenue += float64(paidPerEvent[ev.ID]) * ev.Fee
	}
	return stats, nil
}
