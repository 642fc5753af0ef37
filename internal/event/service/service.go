package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"technovit/internal/authz"
	"technovit/internal/event/metrics"
	"technovit/internal/event/models"
	"technovit/internal/platform/tracing"
	"technovit/pkg/domain"
	dErrors "technovit/pkg/domain-errors"
	"technovit/pkg/platform/audit"
	"technovit/pkg/platform/sentinel"
	"technovit/pkg/platform/validation"
	"technovit/pkg/requestcontext"
)

// EventStore is the persistence the event service needs.
type EventStore interface {
	Insert(ctx context.Context, ev *models.Event) error
	FindByID(ctx context.Context, id domain.EventID) (*models.Event, error)
	List(ctx context.Context, includeHidden bool) ([]*models.Event, error)
	UpdateFields(ctx context.Context, id domain.EventID, update models.Update) (*models.Event, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// StatsInvalidator drops cached dashboard totals; a fee change moves revenue.
type StatsInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service exposes the event read surface, creation and field-gated patching.
type Service struct {
	events         EventStore
	validator      *validation.Validator
	auditPublisher AuditPublisher
	stats          StatsInvalidator
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithStatsInvalidator(stats StatsInvalidator) Option {
	return func(s *Service) {
		s.stats = stats
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(events EventStore, opts ...Option) *Service {
	s := &Service{events: events, validator: validation.New(), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// canSeeHidden reports whether the (optional) caller may list hidden events.
func canSeeHidden(ctx context.Context) bool {
	caller, ok := requestcontext.Principal(ctx)
	return ok && caller.Role.In(domain.RoleAdmin, domain.RoleSuperCoordinator)
}

// List returns events with pinned ones first. Hidden events are only
// included for admin and super_coordinator callers.
func (s *Service) List(ctx context.Context) ([]*models.Event, error) {
	events, err := s.events.List(ctx, canSeeHidden(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return events, nil
}

func (s *Service) Get(ctx context.Context, id domain.EventID) (*models.Event, error) {
	ev, err := s.events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	if ev.IsHidden && !canSeeHidden(ctx) {
		return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
	}
	return ev, nil
}

// Create stores a new event. Only admin and super_coordinator may create.
func (s *Service) Create(ctx context.Context, req *models.CreateEventRequest) (*models.Event, error) {
	caller, ok := requestcontext.Principal(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !caller.Role.In(domain.RoleAdmin, domain.RoleSuperCoordinator) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized")
	}
	req.Normalize()
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	ev := req.ToEvent(domain.NewEventID())
	if err := s.events.Insert(ctx, ev); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create event")
	}
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	s.logger.InfoContext(ctx, "event created",
		"event_id", ev.ID.String(),
		"user_id", caller.UserID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return ev, nil
}

// Patch applies a field-gated partial update. Authorization is decided
// against the stored event; the update is a single atomic multi-field set.
func (s *Service) Patch(ctx context.Context, id domain.EventID, requested map[string]json.RawMessage) (ev *models.Event, err error) {
	ctx, span := tracing.Start(ctx, "event.Patch", "event_id", id.String())
	defer func() { tracing.End(span, err) }()

	caller, ok := requestcontext.Principal(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	existing, err := s.events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}

	allowed, err := authz.AuthorizePatch(caller.Role, caller.UserID, existing)
	if err != nil {
		s.observePatch("denied")
		s.logAudit(ctx, audit.EventPatchDenied, id.String(), dErrors.Message(err), "role", caller.Role.String())
		return nil, err
	}

	update, err := authz.BuildUpdate(existing, requested, allowed)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeForbidden) {
			s.observePatch("pin_denied")
			s.logAudit(ctx, audit.EventPinDenied, id.String(), dErrors.Message(err), "role", caller.Role.String())
		} else {
			s.observePatch("rejected")
		}
		return nil, err
	}

	updated, err := s.events.UpdateFields(ctx, id, update)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update event")
	}
	s.observePatch("applied")
	if s.stats != nil {
		if err := s.stats.Invalidate(ctx); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate cached stats", "error", err, "request_id", requestcontext.RequestID(ctx))
		}
	}
	s.logAudit(ctx, audit.EventEventPatched, id.String(), "", "fields", strings.Join(update.Fields(), ","))
	return updated, nil
}

func (s *Service) observePatch(outcome string) {
	if s.metrics != nil {
		s.metrics.ObservePatch(outcome)
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, subject, reason string, attributes ...any) {
	userID := requestcontext.UserID(ctx)
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "user_id", userID.String(), "subject", subject, "log_type", "audit")
	if reason != "" {
		args = append(args, "reason", reason)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		UserID:  userID,
		Subject: subject,
		Action:  string(event),
		Reason:  reason,
	})
}
