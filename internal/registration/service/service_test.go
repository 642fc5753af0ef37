package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks RegistrationStore,EventStore,UserStore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	eventmodels "technovit/internal/event/models"
	eventstore "technovit/internal/event/store"
	"technovit/internal/registration/metrics"
	"technovit/internal/registration/models"
	"technovit/internal/registration/store"
	usermodels "technovit/internal/user/models"
	userstore "technovit/internal/user/store"
	"technovit/pkg/domain"
	dErrors "technovit/pkg/domain-errors"
	"technovit/pkg/requestcontext"
)

// LifecycleSuite drives the service against the in-memory stores.
type LifecycleSuite struct {
	suite.Suite
	regs    *store.InMemory
	events  *eventstore.InMemory
	users   *userstore.InMemory
	service *Service

	creator *usermodels.User
	alice   *usermodels.User
	bob     *usermodels.User
	paid    *eventmodels.Event
	free    *eventmodels.Event
	closed  *eventmodels.Event
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	ctx := context.Background()
	s.regs = store.NewInMemory()
	s.events = eventstore.NewInMemory()
	s.users = userstore.NewInMemory()
	s.service = New(s.regs, s.events, s.users, WithMetrics(metrics.New(prometheus.NewRegistry())))

	s.creator = s.addUser("creator@vit.ac.in", "Creator", domain.RoleStudent)
	s.alice = s.addUser("alice@vit.ac.in", "Alice", domain.RoleStudent)
	s.bob = s.addUser("bob@gmail.com", "Bob", domain.RoleStudent)

	s.paid = &eventmodels.Event{ID: domain.NewEventID(), Name: "Hackathon", Fee: 500, GroupSizeMin: 1, GroupSizeMax: 4, RegistrationsOpen: true}
	s.free = &eventmodels.Event{ID: domain.NewEventID(), Name: "Talk", Fee: 0, GroupSizeMin: 1, GroupSizeMax: 4, RegistrationsOpen: true}
	s.closed = &eventmodels.Event{ID: domain.NewEventID(), Name: "Closed", Fee: 0, GroupSizeMin: 1, GroupSizeMax: 4}
	for _, ev := range []*eventmodels.Event{s.paid, s.free, s.closed} {
		s.Require().NoError(s.events.Insert(ctx, ev))
	}
}

func (s *LifecycleSuite) addUser(email, name string, role domain.Role) *usermodels.User {
	u := &usermodels.User{ID: domain.NewUserID(), Email: email, Name: name, Role: role}
	s.Require().NoError(s.users.Create(context.Background(), u))
	return u
}

func (s *LifecycleSuite) as(u *usermodels.User) context.Context {
	return requestcontext.WithPrincipal(context.Background(), requestcontext.Caller{UserID: u.ID, Role: u.Role, Email: u.Email})
}

func (s *LifecycleSuite) create(ev *eventmodels.Event, emails ...string) *models.View {
	view, err := s.service.Create(s.as(s.creator), models.CreateRequest{Event: ev.ID.String(), TeamEmails: emails})
	s.Require().NoError(err)
	return view
}

func (s *LifecycleSuite) stored(id domain.RegistrationID) *models.Registration {
	reg, err := s.regs.FindByID(context.Background(), id)
	s.Require().NoError(err)
	return reg
}

func (s *LifecycleSuite) TestCreate_FreeEventIsPaid() {
	view := s.create(s.free, s.alice.Email)

	s.Equal(models.PaymentPaid, view.PaymentStatus)
	s.Require().NotNil(view.PaymentID)
	s.Equal(models.FreePaymentID, *view.PaymentID)
}

func (s *LifecycleSuite) TestCreate_FeeEventIsPending() {
	view := s.create(s.paid)

	s.Equal(models.PaymentPending, view.PaymentStatus)
	s.Nil(view.PaymentID)
}

func (s *LifecycleSuite) TestCreate_TeamShape() {
	view := s.create(s.paid, s.alice.Email, "ALICE@vit.ac.in", s.creator.Email, s.bob.Email)
	reg := s.stored(view.ID)

	s.Equal([]domain.UserID{s.creator.ID, s.alice.ID, s.bob.ID}, reg.TeamMembers)
	s.Require().Len(reg.InvitationStatus, 3)
	for i, inv := range reg.InvitationStatus {
		s.Equal(reg.TeamMembers[i], inv.UserID)
		s.Equal(models.InvitationAccepted, inv.Status)
	}
}

func (s *LifecycleSuite) TestCreate_ReturnsPopulatedView() {
	view := s.create(s.paid, s.alice.Email)

	s.Require().NotNil(view.Event.Summary)
	s.Equal("Hackathon", view.Event.Summary.Name)
	s.Require().NotNil(view.Creator.Summary)
	s.Equal(s.creator.Email, view.Creator.Summary.Email)
	s.Require().Len(view.TeamMembers, 2)
	s.Equal("Alice", view.TeamMembers[1].Summary.Name)
}

func (s *LifecycleSuite) TestCreate_UnknownEmailNamesItAndInsertsNothing() {
	_, err := s.service.Create(s.as(s.creator), models.CreateRequest{
		Event: s.paid.ID.String(), TeamEmails: []string{s.alice.Email, "ghost@vit.ac.in"},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Contains(dErrors.Message(err), "ghost@vit.ac.in")

	all, err := s.regs.ListAll(context.Background())
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *LifecycleSuite) TestCreate_ClosedEvent() {
	_, err := s.service.Create(s.as(s.creator), models.CreateRequest{Event: s.closed.ID.String()})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	all, err := s.regs.ListAll(context.Background())
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *LifecycleSuite) TestCreate_UnknownEvent() {
	_, err := s.service.Create(s.as(s.creator), models.CreateRequest{Event: domain.NewEventID().String()})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *LifecycleSuite) TestCreate_TeamSizeBounds() {
	duo := &eventmodels.Event{ID: domain.NewEventID(), Fee: 100, GroupSizeMin: 2, GroupSizeMax: 2, RegistrationsOpen: true}
	s.Require().NoError(s.events.Insert(context.Background(), duo))

	_, err := s.service.Create(s.as(s.creator), models.CreateRequest{Event: duo.ID.String()})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	_, err = s.service.Create(s.as(s.creator), models.CreateRequest{Event: duo.ID.String(), TeamEmails: []string{s.alice.Email, s.bob.Email}})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	_, err = s.service.Create(s.as(s.creator), models.CreateRequest{Event: duo.ID.String(), TeamEmails: []string{s.alice.Email}})
	s.NoError(err)
}

func (s *LifecycleSuite) TestList_ScopedForParticipants() {
	mine := s.create(s.paid, s.alice.Email)
	other, err := s.service.Create(s.as(s.bob), models.CreateRequest{Event: s.free.ID.String()})
	s.Require().NoError(err)

	aliceView, err := s.service.List(s.as(s.alice))
	s.Require().NoError(err)
	s.Require().Len(aliceView, 1)
	s.Equal(mine.ID, aliceView[0].ID)

	admin := s.addUser("admin@vit.ac.in", "Admin", domain.RoleAdmin)
	all, err := s.service.List(s.as(admin))
	s.Require().NoError(err)
	s.Len(all, 2)

	regCoord := s.addUser("rc@vit.ac.in", "RC", domain.RoleRegistrationCoordinator)
	all, err = s.service.List(s.as(regCoord))
	s.Require().NoError(err)
	s.Len(all, 2)
	_ = other
}

func (s *LifecycleSuite) TestList_DanglingReferencesStayUnexpanded() {
	ghost := domain.NewUserID()
	reg := &models.Registration{
		ID:               domain.NewRegistrationID(),
		Event:            domain.NewEventID(),
		Creator:          s.alice.ID,
		TeamMembers:      []domain.UserID{s.alice.ID, ghost},
		InvitationStatus: []models.Invitation{{UserID: s.alice.ID, Status: models.InvitationAccepted}, {UserID: ghost, Status: models.InvitationAccepted}},
		PaymentStatus:    models.PaymentPending,
	}
	s.Require().NoError(s.regs.Insert(context.Background(), reg))

	views, err := s.service.List(s.as(s.alice))
	s.Require().NoError(err)
	s.Require().Len(views, 1)
	s.Nil(views[0].Event.Summary)
	s.NotNil(views[0].TeamMembers[0].Summary)
	s.Nil(views[0].TeamMembers[1].Summary)

	raw, err := json.Marshal(views[0])
	s.Require().NoError(err)
	var decoded map[string]any
	s.Require().NoError(json.Unmarshal(raw, &decoded))
	s.Equal(reg.Event.String(), decoded["event"])
	members := decoded["teamMembers"].([]any)
	s.Equal(ghost.String(), members[1])
	s.Equal("Alice", members[0].(map[string]any)["name"])
}

func (s *LifecycleSuite) TestRespond_ChangesOnlyCallersRecord() {
	view := s.create(s.paid, s.alice.Email, s.bob.Email)

	err := s.service.Respond(s.as(s.alice), models.RespondRequest{RegistrationID: view.ID.String(), Action: models.ActionDecline})
	s.Require().NoError(err)

	reg := s.stored(view.ID)
	s.Equal(models.InvitationAccepted, reg.InvitationStatus[0].Status)
	s.Equal(models.InvitationDeclined, reg.InvitationStatus[1].Status)
	s.Equal(models.InvitationAccepted, reg.InvitationStatus[2].Status)
}

func (s *LifecycleSuite) TestRespond_NoInvitationIsNotFound() {
	view := s.create(s.paid)

	err := s.service.Respond(s.as(s.bob), models.RespondRequest{RegistrationID: view.ID.String(), Action: models.ActionAccept})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	err = s.service.Respond(s.as(s.bob), models.RespondRequest{RegistrationID: domain.NewRegistrationID().String(), Action: models.ActionAccept})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *LifecycleSuite) TestRespond_RejectsUnknownAction() {
	view := s.create(s.paid, s.alice.Email)

	err := s.service.Respond(s.as(s.alice), models.RespondRequest{RegistrationID: view.ID.String(), Action: "maybe"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *LifecycleSuite) TestDelete_CreatorRemovesWholeRegistration() {
	view := s.create(s.paid, s.alice.Email)

	s.Require().NoError(s.service.DeleteOrWithdraw(s.as(s.creator), view.ID))

	for _, u := range []*usermodels.User{s.creator, s.alice} {
		views, err := s.service.List(s.as(u))
		s.Require().NoError(err)
		s.Empty(views)
	}
}

func (s *LifecycleSuite) TestWithdraw_MemberLeavesOthersIntact() {
	view := s.create(s.paid, s.alice.Email, s.bob.Email)

	s.Require().NoError(s.service.DeleteOrWithdraw(s.as(s.alice), view.ID))

	reg := s.stored(view.ID)
	s.Equal([]domain.UserID{s.creator.ID, s.bob.ID}, reg.TeamMembers)
	s.Len(reg.InvitationStatus, 2)
}

// Withdrawal is permitted even when it drops the team below groupSizeMin.
func (s *LifecycleSuite) TestWithdraw_NoTeamSizeFloor() {
	trio := &eventmodels.Event{ID: domain.NewEventID(), Fee: 10, GroupSizeMin: 3, GroupSizeMax: 3, RegistrationsOpen: true}
	s.Require().NoError(s.events.Insert(context.Background(), trio))
	view := s.create(trio, s.alice.Email, s.bob.Email)

	s.Require().NoError(s.service.DeleteOrWithdraw(s.as(s.alice), view.ID))
	s.Require().NoError(s.service.DeleteOrWithdraw(s.as(s.bob), view.ID))

	reg := s.stored(view.ID)
	s.Equal([]domain.UserID{s.creator.ID}, reg.TeamMembers)
}

func (s *LifecycleSuite) TestDelete_OutsiderIsForbidden() {
	view := s.create(s.paid, s.alice.Email)

	err := s.service.DeleteOrWithdraw(s.as(s.bob), view.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	err = s.service.DeleteOrWithdraw(s.as(s.bob), domain.NewRegistrationID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *LifecycleSuite) TestConfirmPayment() {
	view := s.create(s.paid)
	admin := s.addUser("pay@vit.ac.in", "Pay", domain.RoleRegistrationCoordinator)

	err := s.service.ConfirmPayment(s.as(s.creator), view.ID, models.PaymentRequest{PaymentID: "pi_1"})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	s.Require().NoError(s.service.ConfirmPayment(s.as(admin), view.ID, models.PaymentRequest{PaymentID: "pi_1"}))
	s.Equal(models.PaymentPaid, s.stored(view.ID).PaymentStatus)

	err = s.service.ConfirmPayment(s.as(admin), view.ID, models.PaymentRequest{PaymentID: "pi_2"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls++
	return nil
}

func (s *LifecycleSuite) TestWritesInvalidateCachedStats() {
	stats := &countingInvalidator{}
	s.service = New(s.regs, s.events, s.users, WithStatsInvalidator(stats))
	cashier := s.addUser("cashier@vit.ac.in", "Cashier", domain.RoleRegistrationCoordinator)

	view := s.create(s.paid, s.alice.Email, s.bob.Email)
	s.Equal(1, stats.calls)

	s.Require().NoError(s.service.Respond(s.as(s.alice), models.RespondRequest{RegistrationID: view.ID.String(), Action: models.ActionDecline}))
	s.Equal(1, stats.calls, "responding does not change totals")

	s.Require().NoError(s.service.ConfirmPayment(s.as(cashier), view.ID, models.PaymentRequest{PaymentID: "pi_1"}))
	s.Equal(2, stats.calls)

	s.Require().NoError(s.service.DeleteOrWithdraw(s.as(s.bob), view.ID))
	s.Equal(3, stats.calls)

	s.Require().NoError(s.service.DeleteOrWithdraw(s.as(s.creator), view.ID))
	s.Equal(4, stats.calls)

	err := s.service.DeleteOrWithdraw(s.as(s.creator), view.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Equal(4, stats.calls, "failed writes leave the cache alone")
}

// A stored reference that failed to decode arrives as the nil ID; it stays
// unexpanded and the rest of the registration still populates.
func (s *LifecycleSuite) TestList_NilReferenceDegradesOnlyThatMember() {
	reg := &models.Registration{
		ID:          domain.NewRegistrationID(),
		Event:       s.paid.ID,
		Creator:     s.creator.ID,
		TeamMembers: []domain.UserID{s.creator.ID, {}},
		InvitationStatus: []models.Invitation{
			{UserID: s.creator.ID, Status: models.InvitationAccepted},
			{Status: models.InvitationAccepted},
		},
		PaymentStatus: models.PaymentPending,
	}
	s.Require().NoError(s.regs.Insert(context.Background(), reg))

	views, err := s.service.List(s.as(s.creator))
	s.Require().NoError(err)
	s.Require().Len(views, 1)
	s.Require().Len(views[0].TeamMembers, 2)
	s.Require().NotNil(views[0].TeamMembers[0].Summary)
	s.Equal(s.creator.Email, views[0].TeamMembers[0].Summary.Email)
	s.Nil(views[0].TeamMembers[1].Summary)
}
