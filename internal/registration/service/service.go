package service

import (
	"context"
	"log/slog"
	"time"

	eventmodels "technovit/internal/event/models"
	"technovit/internal/registration/metrics"
	"technovit/internal/registration/models"
	usermodels "technovit/internal/user/models"
	"technovit/pkg/domain"
	"technovit/pkg/platform/audit"
	"technovit/pkg/platform/validation"
	"technovit/pkg/requestcontext"
)

// RegistrationStore persists registrations. Mutations are single-document
// and atomic; the service never rewrites a whole registration.
type RegistrationStore interface {
	Insert(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, id domain.RegistrationID) (*models.Registration, error)
	ListVisibleTo(ctx context.Context, userID domain.UserID) ([]*models.Registration, error)
	ListAll(ctx context.Context) ([]*models.Registration, error)
	SetInvitationStatus(ctx context.Context, id domain.RegistrationID, userID domain.UserID, status models.InvitationStatus, now time.Time) error
	Delete(ctx context.Context, id domain.RegistrationID) error
	RemoveMember(ctx context.Context, id domain.RegistrationID, userID domain.UserID) error
	MarkPaid(ctx context.Context, id domain.RegistrationID, paymentID string) error
}

type EventStore interface {
	FindByID(ctx context.Context, id domain.EventID) (*eventmodels.Event, error)
	FindByIDs(ctx context.Context, ids []domain.EventID) ([]*eventmodels.Event, error)
}

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*usermodels.User, error)
	FindByIDs(ctx context.Context, ids []domain.UserID) ([]*usermodels.User, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// StatsInvalidator drops cached dashboard totals after a write that changes them.
type StatsInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service owns the registration and invitation lifecycle.
type Service struct {
	registrations  RegistrationStore
	events         EventStore
	users          UserStore
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

func New(registrations RegistrationStore, events EventStore, users UserStore, opts ...Option) *Service {
	s := &Service{
		registrations: registrations,
		events:        events,
		users:         users,
		validator:     validation.New(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// populate expands event and user references with two batched lookups.
// A failed lookup leaves the affected references unexpanded.
func (s *Service) populate(ctx context.Context, regs []*models.Registration) []*models.View {
	eventIDs := make([]domain.EventID, 0, len(regs))
	userIDs := make([]domain.UserID, 0, len(regs)*2)
	for _, r := range regs {
		eventIDs = append(eventIDs, r.Event)
		userIDs = append(userIDs, r.Creator)
		userIDs = append(userIDs, r.TeamMembers...)
		for _, inv := range r.InvitationStatus {
			userIDs = append(userIDs, inv.UserID)
		}
	}

	resolvable := domain.ResolvableUserIDs(userIDs)
	if dropped := len(userIDs) - len(resolvable); dropped > 0 {
		s.logger.WarnContext(ctx, "registrations hold unresolvable user references",
			"count", dropped, "request_id", requestcontext.RequestID(ctx))
	}
	userIDs = resolvable

	events := make(map[domain.EventID]*eventmodels.Event)
	if found, err := s.events.FindByIDs(ctx, eventIDs); err != nil {
		s.logger.WarnContext(ctx, "event population failed", "error", err, "request_id", requestcontext.RequestID(ctx))
	} else {
		for _, ev := range found {
			events[ev.ID] = ev
		}
	}
	users := make(map[domain.UserID]*usermodels.User)
	if found, err := s.users.FindByIDs(ctx, userIDs); err != nil {
		s.logger.WarnContext(ctx, "user population failed", "error", err, "request_id", requestcontext.RequestID(ctx))
	} else {
		for _, u := range found {
			users[u.ID] = u
		}
	}

	views := make([]*models.View, len(regs))
	for i, r := range regs {
		views[i] = models.Populate(r, events, users)
	}
	return views
}

// invalidateStats runs after a committed write. A failure leaves stale totals
// until the cache TTL, so it is logged and not returned.
func (s *Service) invalidateStats(ctx context.Context) {
	if s.stats == nil {
		return
	}
	if err := s.stats.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate cached stats", "error", err, "request_id", requestcontext.RequestID(ctx))
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, subject string, attributes ...any) {
	userID := requestcontext.UserID(ctx)
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "user_id", userID.String(), "subject", subject, "log_type", "audit")
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
	})
}
