package service

import (
	"context"
	"errors"

	"technovit/internal/platform/tracing"
	"technovit/internal/registration/models"
	"technovit/pkg/domain"
	dErrors "technovit/pkg/domain-errors"
	"technovit/pkg/platform/audit"
	"technovit/pkg/platform/sentinel"
	"technovit/pkg/requestcontext"
)

// participantRoles only see registrations they take part in.
var participantRoles = []domain.Role{domain.RoleStudent, domain.RoleCoordinator, domain.RoleSuperCoordinator}

// List returns populated registrations visible to the caller.
func (s *Service) List(ctx context.Context) (views []*models.View, err error) {
	ctx, span := tracing.Start(ctx, "registration.List")
	defer func() { tracing.End(span, err) }()

	caller, ok := requestcontext.Principal(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	var regs []*models.Registration
	if caller.Role.In(participantRoles...) {
		regs, err = s.registrations.ListVisibleTo(ctx, caller.UserID)
	} else {
		regs, err = s.registrations.ListAll(ctx)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return s.populate(ctx, regs), nil
}

// Respond sets the caller's own invitation record to accepted or declined.
func (s *Service) Respond(ctx context.Context, req models.RespondRequest) (err error) {
	ctx, span := tracing.Start(ctx, "registration.Respond", "registration_id", req.RegistrationID, "action", req.Action)
	defer func() { tracing.End(span, err) }()

	caller, ok := requestcontext.Principal(ctx)
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	id, err := domain.ParseRegistrationID(req.RegistrationID)
	if err != nil {
		return dErrors.New(dErrors.CodeNotFound, "registration or invitation not found")
	}
	status := models.InvitationDeclined
	if req.Action == models.ActionAccept {
		status = models.InvitationAccepted
	}

	if err := s.registrations.SetInvitationStatus(ctx, id, caller.UserID, status, requestcontext.Now(ctx)); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "registration or invitation not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update invitation")
	}
	if s.metrics != nil {
		s.metrics.IncrementResponse(req.Action)
	}
	s.logAudit(ctx, audit.EventInvitationResponded, id.String(), "action", req.Action)
	return nil
}

// DeleteOrWithdraw deletes the registration when the caller created it and
// otherwise removes only the caller's membership. No team-size floor applies.
func (s *Service) DeleteOrWithdraw(ctx context.Context, id domain.RegistrationID) (err error) {
	ctx, span := tracing.Start(ctx, "registration.DeleteOrWithdraw", "registration_id", id.String())
	defer func() { tracing.End(span, err) }()

	caller, ok := requestcontext.Principal(ctx)
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	reg, err := s.registrations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}

	switch {
	case reg.IsCreator(caller.UserID):
		if err := s.registrations.Delete(ctx, id); err != nil {
			return s.storeError(err, "failed to delete registration")
		}
		s.recordRemoval("deleted")
		s.logAudit(ctx, audit.EventRegistrationDeleted, id.String(), "event_id", reg.Event.String())
	case reg.IsMember(caller.UserID):
		if err := s.registrations.RemoveMember(ctx, id, caller.UserID); err != nil {
			return s.storeError(err, "failed to withdraw from registration")
		}
		s.recordRemoval("withdrawn")
		s.logAudit(ctx, audit.EventMemberWithdrew, id.String(), "event_id", reg.Event.String())
	default:
		return dErrors.New(dErrors.CodeForbidden, "not a member of this registration")
	}
	s.invalidateStats(ctx)
	return nil
}

// ConfirmPayment marks a pending registration paid. It is the hook the
// payment collaborator (or an admin) uses once a payment has settled.
func (s *Service) ConfirmPayment(ctx context.Context, id domain.RegistrationID, req models.PaymentRequest) (err error) {
	ctx, span := tracing.Start(ctx, "registration.ConfirmPayment", "registration_id", id.String())
	defer func() { tracing.End(span, err) }()

	caller, ok := requestcontext.Principal(ctx)
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !caller.Role.In(domain.RoleAdmin, domain.RoleRegistrationCoordinator) {
		return dErrors.New(dErrors.CodeForbidden, "not authorized to confirm payments")
	}
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	if err := s.registrations.MarkPaid(ctx, id, req.PaymentID); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeInvalidState, "registration is already paid")
		}
		return s.storeError(err, "failed to confirm payment")
	}
	s.invalidateStats(ctx)
	if s.metrics != nil {
		s.metrics.IncrementPayment()
	}
	s.logAudit(ctx, audit.EventPaymentConfirmed, id.String(), "payment_id", req.PaymentID)
	return nil
}

func (s *Service) storeError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "registration not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) recordRemoval(kind string) {
	if s.metrics != nil {
		s.metrics.IncrementRemoval(kind)
	}
}
