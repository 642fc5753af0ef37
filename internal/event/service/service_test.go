package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"technovit/internal/event/metrics"
	"technovit/internal/event/models"
	"technovit/internal/event/store"
	"technovit/pkg/domain"
	dErrors "technovit/pkg/domain-errors"
	"technovit/pkg/platform/audit"
	"technovit/pkg/platform/audit/publisher"
	auditmemory "technovit/pkg/platform/audit/store/memory"
	"technovit/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	store   *store.InMemory
	audits  *auditmemory.InMemoryStore
	metrics *metrics.Metrics
	service *Service

	event       *models.Event
	coordinator domain.UserID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.audits = auditmemory.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = New(s.store, WithAuditPublisher(publisher.NewPublisher(s.audits)), WithMetrics(s.metrics))

	s.coordinator = domain.NewUserID()
	s.event = &models.Event{
		ID:                  domain.NewEventID(),
		Name:                "CTF",
		Fee:                 100,
		GroupSizeMin:        1,
		GroupSizeMax:        3,
		RegistrationsOpen:   true,
		StudentCoordinators: []models.Coordinator{{ID: s.coordinator, Name: "Ravi"}},
	}
	s.Require().NoError(s.store.Insert(context.Background(), s.event))
}

func (s *ServiceSuite) as(role domain.Role, id domain.UserID) context.Context {
	return requestcontext.WithPrincipal(context.Background(), requestcontext.Caller{UserID: id, Role: role})
}

func raw(fields map[string]any) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		b, _ := json.Marshal(v)
		out[k] = b
	}
	return out
}

func (s *ServiceSuite) actions() []string {
	events, err := s.audits.ListRecent(context.Background(), 100)
	s.Require().NoError(err)
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func (s *ServiceSuite) TestPatch_AssignedCoordinator() {
	ctx := s.as(domain.RoleCoordinator, s.coordinator)

	updated, err := s.service.Patch(ctx, s.event.ID, raw(map[string]any{"fee": 150, "registrationsOpen": false}))
	s.Require().NoError(err)
	s.Equal(150.0, updated.Fee)
	s.False(updated.RegistrationsOpen)
	s.Contains(s.actions(), string(audit.EventEventPatched))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Patches.WithLabelValues("applied")))
}

func (s *ServiceSuite) TestPatch_UnassignedCoordinatorAlwaysForbidden() {
	ctx := s.as(domain.RoleCoordinator, domain.NewUserID())

	for _, body := range []map[string]any{{"fee": 1}, {"name": "x"}, {}} {
		_, err := s.service.Patch(ctx, s.event.ID, raw(body))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	}
	stored, err := s.store.FindByID(context.Background(), s.event.ID)
	s.Require().NoError(err)
	s.Equal(100.0, stored.Fee)
	s.Contains(s.actions(), string(audit.EventPatchDenied))
}

func (s *ServiceSuite) TestPatch_PinIsAllOrNothing() {
	ctx := s.as(domain.RoleCoordinator, s.coordinator)

	_, err := s.service.Patch(ctx, s.event.ID, raw(map[string]any{"isPinned": true, "fee": 999}))
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	stored, err := s.store.FindByID(context.Background(), s.event.ID)
	s.Require().NoError(err)
	s.Equal(100.0, stored.Fee)
	s.False(stored.IsPinned)
	s.Contains(s.actions(), string(audit.EventPinDenied))
}

func (s *ServiceSuite) TestPatch_AdminMayPin() {
	ctx := s.as(domain.RoleSuperCoordinator, domain.NewUserID())

	updated, err := s.service.Patch(ctx, s.event.ID, raw(map[string]any{"isPinned": true}))
	s.Require().NoError(err)
	s.True(updated.IsPinned)
}

func (s *ServiceSuite) TestPatch_EmptyUpdateIsInvalidState() {
	ctx := s.as(domain.RoleAdmin, domain.NewUserID())

	_, err := s.service.Patch(ctx, s.event.ID, raw(map[string]any{"clubs": []string{"a"}}))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ServiceSuite) TestPatch_UnknownEvent() {
	ctx := s.as(domain.RoleAdmin, domain.NewUserID())

	_, err := s.service.Patch(ctx, domain.NewEventID(), raw(map[string]any{"fee": 1}))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestListAndGet_HiddenVisibility() {
	hidden := &models.Event{ID: domain.NewEventID(), Name: "secret", GroupSizeMin: 1, GroupSizeMax: 1, IsHidden: true}
	s.Require().NoError(s.store.Insert(context.Background(), hidden))

	anon, err := s.service.List(context.Background())
	s.Require().NoError(err)
	s.Len(anon, 1)

	admin, err := s.service.List(s.as(domain.RoleAdmin, domain.NewUserID()))
	s.Require().NoError(err)
	s.Len(admin, 2)

	_, err = s.service.Get(context.Background(), hidden.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestCreate() {
	s.Run("requires owning role", func() {
		_, err := s.service.Create(s.as(domain.RoleCoordinator, domain.NewUserID()), &models.CreateEventRequest{Name: "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("validates bounds", func() {
		_, err := s.service.Create(s.as(domain.RoleAdmin, domain.NewUserID()), &models.CreateEventRequest{
			Name: "x", GroupSizeMin: 4, GroupSizeMax: 2,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("defaults to open single-person event", func() {
		ev, err := s.service.Create(s.as(domain.RoleAdmin, domain.NewUserID()), &models.CreateEventRequest{
			Name:                "Quiz",
			StudentCoordinators: []models.CoordinatorRequest{{ID: s.coordinator.String(), Name: "Ravi"}},
		})
		s.Require().NoError(err)
		s.True(ev.RegistrationsOpen)
		s.Equal(1, ev.GroupSizeMin)
		s.Equal(1, ev.GroupSizeMax)
		s.True(ev.HasCoordinator(s.coordinator))
	})
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls++
	return nil
}

func (s *ServiceSuite) TestPatch_InvalidatesCachedStats() {
	stats := &countingInvalidator{}
	s.service = New(s.store, WithStatsInvalidator(stats))
	admin := s.as(domain.RoleAdmin, domain.NewUserID())

	_, err := s.service.Patch(admin, s.event.ID, raw(map[string]any{"fee": 300}))
	s.Require().NoError(err)
	s.Equal(1, stats.calls)

	_, err = s.service.Patch(admin, s.event.ID, raw(map[string]any{"fee": -5}))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	s.Equal(1, stats.calls)
}
