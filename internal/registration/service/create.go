package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	eventmodels "technovit/internal/event/models"
	"technovit/internal/platform/tracing"
	"technovit/internal/registration/models"
	usermodels "technovit/internal/user/models"
	"technovit/pkg/domain"
	dErrors "technovit/pkg/domain-errors"
	"technovit/pkg/platform/audit"
	"technovit/pkg/platform/sentinel"
	"technovit/pkg/platform/textutil"
	"technovit/pkg/requestcontext"
)

// Create registers the caller's team for an event. Every member is recorded
// as accepted; nothing is persisted unless every team email resolves.
func (s *Service) Create(ctx context.Context, req models.CreateRequest) (view *models.View, err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "registration.Create", "event_id", req.Event)
	defer func() { tracing.End(span, err) }()

	caller, ok := requestcontext.Principal(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	eventID, err := domain.ParseEventID(req.Event)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
	}

	ev, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	if !ev.RegistrationsOpen {
		return nil, dErrors.New(dErrors.CodeInvalidState, "registrations for this event are currently closed")
	}

	members, err := s.resolveTeam(ctx, caller, req.TeamEmails)
	if err != nil {
		return nil, err
	}
	if n := len(members); n < ev.GroupSizeMin || n > ev.GroupSizeMax {
		return nil, dErrors.Newf(dErrors.CodeInvalidState,
			"team size %d is outside the allowed range %d-%d", n, ev.GroupSizeMin, ev.GroupSizeMax)
	}

	reg := newRegistration(ev, caller.UserID, members, requestcontext.Now(ctx))
	if err := s.registrations.Insert(ctx, reg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create registration")
	}
	s.invalidateStats(ctx)

	if s.metrics != nil {
		s.metrics.IncrementCreated(string(reg.PaymentStatus))
		s.metrics.ObserveCreate(start)
	}
	s.logAudit(ctx, audit.EventRegistrationCreated, reg.ID.String(),
		"event_id", ev.ID.String(),
		"team_size", strconv.Itoa(len(members)),
	)
	return s.populate(ctx, []*models.Registration{reg})[0], nil
}

// resolveTeam returns the member ids, creator first, deduplicated. The
// caller's own email is skipped; unknown emails fail the whole request.
func (s *Service) resolveTeam(ctx context.Context, caller requestcontext.Caller, emails []string) ([]domain.UserID, error) {
	members := []domain.UserID{caller.UserID}
	seen := map[domain.UserID]struct{}{caller.UserID: {}}
	self := usermodels.NormalizeEmail(caller.Email)

	for _, email := range textutil.DedupeBy(emails, usermodels.NormalizeEmail) {
		if email == self {
			continue
		}
		u, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Newf(dErrors.CodeNotFound,
					"user with email %s not found; they must register first", email)
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve team member")
		}
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		members = append(members, u.ID)
	}
	return members, nil
}

func newRegistration(ev *eventmodels.Event, creator domain.UserID, members []domain.UserID, now time.Time) *models.Registration {
	invitations := make([]models.Invitation, len(members))
	for i, id := range members {
		invitations[i] = models.Invitation{UserID: id, Status: models.InvitationAccepted}
	}
	reg := &models.Registration{
		ID:               domain.NewRegistrationID(),
		Event:            ev.ID,
		Creator:          creator,
		TeamMembers:      members,
		InvitationStatus: invitations,
		PaymentStatus:    models.PaymentPending,
		CreatedAt:        now,
	}
	if ev.IsFree() {
		free := models.FreePaymentID
		reg.PaymentStatus = models.PaymentPaid
		reg.PaymentID = &free
	}
	return reg
}
