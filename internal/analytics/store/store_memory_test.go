package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"technovit/internal/analytics/models"
	eventmodels "technovit/internal/event/models"
	eventstore "technovit/internal/event/store"
	regmodels "technovit/internal/registration/models"
	regstore "technovit/internal/registration/store"
	"technovit/pkg/domain"
)

func TestInMemoryStats(t *testing.T) {
	ctx := context.Background()
	events := eventstore.NewInMemory()
	regs := regstore.NewInMemory()

	paid := &eventmodels.Event{ID: domain.NewEventID(), Name: "Paid", Fee: 300, GroupSizeMin: 1, GroupSizeMax: 4}
	other := &eventmodels.Event{ID: domain.NewEventID(), Name: "Other", Fee: 100, GroupSizeMin: 1, GroupSizeMax: 4}
	require.NoError(t, events.Insert(ctx, paid))
	require.NoError(t, events.Insert(ctx, other))

	add := func(ev domain.EventID, status regmodels.PaymentStatus, team int) {
		members := make([]domain.UserID, team)
		for i := range members {
			members[i] = domain.NewUserID()
		}
		require.NoError(t, regs.Insert(ctx, &regmodels.Registration{
			ID: domain.NewRegistrationID(), Event: ev, Creator: members[0], TeamMembers: members, PaymentStatus: status,
		}))
	}
	add(paid.ID, regmodels.PaymentPaid, 3)
	add(paid.ID, regmodels.PaymentPaid, 1)
	add(paid.ID, regmodels.PaymentPending, 2)
	add(other.ID, regmodels.PaymentPaid, 1)
	add(domain.NewEventID(), regmodels.PaymentPaid, 1)

	agg := NewInMemory(regs, events)

	t.Run("unrestricted counts every registration", func(t *testing.T) {
		stats, err := agg.Stats(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, models.Stats{TotalRevenue: 700, TotalRegistrations: 5, PaidCount: 4, UnpaidCount: 1}, *stats)
	})

	t.Run("flat fee per registration regardless of team size", func(t *testing.T) {
		stats, err := agg.Stats(ctx, []domain.EventID{paid.ID})
		require.NoError(t, err)
		assert.Equal(t, models.Stats{TotalRevenue: 600, TotalRegistrations: 3, PaidCount: 2, UnpaidCount: 1}, *stats)
	})

	t.Run("empty scope is all zeros", func(t *testing.T) {
		stats, err := agg.Stats(ctx, []domain.EventID{})
		require.NoError(t, err)
		assert.Equal(t, models.Stats{}, *stats)
	})
}
