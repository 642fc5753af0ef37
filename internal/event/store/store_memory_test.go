package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"technovit/internal/event/models"
	"technovit/pkg/domain"
	"technovit/pkg/platform/sentinel"
)

func TestInMemory_ListOrdersPinnedFirstAndHidesHidden(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	a := &models.Event{ID: domain.NewEventID(), Name: "a"}
	b := &models.Event{ID: domain.NewEventID(), Name: "b", IsHidden: true}
	c := &models.Event{ID: domain.NewEventID(), Name: "c", IsPinned: true}
	for _, ev := range []*models.Event{a, b, c} {
		require.NoError(t, s.Insert(ctx, ev))
	}

	visible, err := s.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, "c", visible[0].Name)
	assert.Equal(t, "a", visible[1].Name)

	all, err := s.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestInMemory_UpdateFields(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	ev := &models.Event{ID: domain.NewEventID(), Name: "Hack", Fee: 10, GroupSizeMin: 1, GroupSizeMax: 2}
	require.NoError(t, s.Insert(ctx, ev))

	updated, err := s.UpdateFields(ctx, ev.ID, models.Update{models.FieldFee: 20.0, models.FieldGroupSizeMax: 4})
	require.NoError(t, err)
	assert.Equal(t, 20.0, updated.Fee)
	assert.Equal(t, 4, updated.GroupSizeMax)
	assert.Equal(t, "Hack", updated.Name)

	_, err = s.UpdateFields(ctx, domain.NewEventID(), models.Update{models.FieldFee: 1.0})
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemory_FindIDsByCoordinator(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	coord := domain.NewUserID()
	mine := &models.Event{ID: domain.NewEventID(), FacultyCoordinators: []models.Coordinator{{ID: coord}}}
	other := &models.Event{ID: domain.NewEventID()}
	require.NoError(t, s.Insert(ctx, mine))
	require.NoError(t, s.Insert(ctx, other))

	ids, err := s.FindIDsByCoordinator(ctx, coord)
	require.NoError(t, err)
	assert.Equal(t, []domain.EventID{mine.ID}, ids)
}

func TestInMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	ev := &models.Event{ID: domain.NewEventID(), StudentCoordinators: []models.Coordinator{{Name: "x"}}}
	require.NoError(t, s.Insert(ctx, ev))

	got, err := s.FindByID(ctx, ev.ID)
	require.NoError(t, err)
	got.StudentCoordinators[0].Name = "mutated"

	again, err := s.FindByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", again.StudentCoordinators[0].Name)
}
