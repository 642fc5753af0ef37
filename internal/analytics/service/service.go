package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"technovit/internal/analytics/metrics"
	"technovit/internal/analytics/models"
	eventmodels "technovit/internal/event/models"
	"technovit/internal/platform/tracing"
	regmodels "technovit/internal/registration/models"
	usermodels "technovit/internal/user/models"
	"technovit/pkg/domain"
	dErrors "technovit/pkg/domain-errors"
	"technovit/pkg/platform/audit"
	"technovit/pkg/platform/sentinel"
	"technovit/pkg/requestcontext"
)

type EventReader interface {
	FindByID(ctx context.Context, id domain.EventID) (*eventmodels.Event, error)
	FindByIDs(ctx context.Context, ids []domain.EventID) ([]*eventmodels.Event, error)
	List(ctx context.Context, includeHidden bool) ([]*eventmodels.Event, error)
	FindIDsByCoordinator(ctx context.Context, userID domain.UserID) ([]domain.EventID, error)
}

type RegistrationReader interface {
	ListByEvents(ctx context.Context, eventIDs []domain.EventID) ([]*regmodels.Registration, error)
}

type UserReader interface {
	FindByIDs(ctx context.Context, ids []domain.UserID) ([]*usermodels.User, error)
	CountVITians(ctx context.Context, ids []domain.UserID) (vitians, others int, err error)
}

// Aggregator computes the dashboard totals over an event filter (nil = all).
type Aggregator interface {
	Stats(ctx context.Context, eventIDs []domain.EventID) (*models.Stats, error)
}

type StatsCache interface {
	Get(ctx context.Context, scopeKey string) (*models.Stats, bool, error)
	Set(ctx context.Context, scopeKey string, stats *models.Stats) error
	Invalidate(ctx context.Context) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// adminRoles may enter the analytics surface at all.
var adminRoles = []domain.Role{domain.RoleAdmin, domain.RoleSuperCoordinator, domain.RoleCoordinator}

const defaultBreakdownConcurrency = 8

// Service computes role-scoped dashboard data. Reads are not transactional
// across documents; counts may lag concurrent writes.
type Service struct {
	events         EventReader
	registrations  RegistrationReader
	users          UserReader
	aggregator     Aggregator
	cache          StatsCache
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	logger         *slog.Logger
	concurrency    int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithStatsCache(cache StatsCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithBreakdownConcurrency bounds how many events are summarised at once.
func WithBreakdownConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func New(events EventReader, registrations RegistrationReader, users UserReader, aggregator Aggregator, opts ...Option) *Service {
	s := &Service{
		events:        events,
		registrations: registrations,
		users:         users,
		aggregator:    aggregator,
		logger:        slog.Default(),
		concurrency:   defaultBreakdownConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scope resolves the events the caller may aggregate over. Coordinator
// scope is looked up on every call, never held in memory.
func (s *Service) Scope(ctx context.Context) (models.Scope, error) {
	caller, ok := requestcontext.Principal(ctx)
	if !ok {
		return models.Scope{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	switch caller.Role {
	case domain.RoleAdmin, domain.RoleSuperCoordinator:
		return models.Scope{Unrestricted: true}, nil
	case domain.RoleCoordinator:
		ids, err := s.events.FindIDsByCoordinator(ctx, caller.UserID)
		if err != nil {
			return models.Scope{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve coordinator events")
		}
		return models.Scope{EventIDs: ids}, nil
	default:
		s.logAudit(ctx, audit.EventAnalyticsDenied, "analytics", "role", caller.Role.String())
		return models.Scope{}, dErrors.New(dErrors.CodeForbidden, "not authorized")
	}
}

// Stats returns totals for the caller's scope, served from cache when fresh.
func (s *Service) Stats(ctx context.Context) (stats *models.Stats, err error) {
	ctx, span := tracing.Start(ctx, "analytics.Stats")
	defer func() { tracing.End(span, err) }()

	scope, err := s.Scope(ctx)
	if err != nil {
		return nil, err
	}
	key := scope.Key()
	if cached, ok := s.cachedStats(ctx, key); ok {
		return cached, nil
	}

	stats, err = s.aggregator.Stats(ctx, scope.Filter())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute stats")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, stats); err != nil {
			s.logger.WarnContext(ctx, "failed to cache stats", "error", err, "request_id", requestcontext.RequestID(ctx))
		}
	}
	return stats, nil
}

// cachedStats treats cache failures as misses.
func (s *Service) cachedStats(ctx context.Context, key string) (*models.Stats, bool) {
	if s.cache == nil {
		return nil, false
	}
	stats, hit, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.observeCache("error")
		s.logger.WarnContext(ctx, "stats cache lookup failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		return nil, false
	case hit:
		s.observeCache("hit")
		return stats, true
	default:
		s.observeCache("miss")
		return nil, false
	}
}

// EventBreakdown summarises every in-scope event, sorted by amount collected
// descending. Ties keep the store's event order.
func (s *Service) EventBreakdown(ctx context.Context) (rows []models.EventSummary, err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "analytics.EventBreakdown")
	defer func() { tracing.End(span, err) }()

	scope, err := s.Scope(ctx)
	if err != nil {
		return nil, err
	}
	var events []*eventmodels.Event
	if scope.Unrestricted {
		events, err = s.events.List(ctx, true)
	} else {
		events, err = s.events.FindByIDs(ctx, scope.Filter())
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load events")
	}

	rows = make([]models.EventSummary, len(events))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, ev := range events {
		g.Go(func() error {
			row, err := s.summarise(gctx, ev)
			if err != nil {
				return err
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to summarise events")
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].AmountCollected > rows[j].AmountCollected })
	if s.metrics != nil {
		s.metrics.ObserveBreakdown(start)
	}
	return rows, nil
}

func (s *Service) summarise(ctx context.Context, ev *eventmodels.Event) (models.EventSummary, error) {
	regs, err := s.registrations.ListByEvents(ctx, []domain.EventID{ev.ID})
	if err != nil {
		return models.EventSummary{}, err
	}
	paid := 0
	var members []domain.UserID
	for _, r := range regs {
		if r.PaymentStatus == regmodels.PaymentPaid {
			paid++
		}
		members = append(members, r.TeamMembers...)
	}
	vitians, others, err := s.users.CountVITians(ctx, domain.ResolvableUserIDs(members))
	if err != nil {
		return models.EventSummary{}, err
	}
	return models.EventSummary{
		ID:              ev.ID,
		Name:            ev.Name,
		Registered:      len(regs),
		Paid:            paid,
		Unpaid:          len(regs) - paid,
		AmountCollected: float64(paid) * ev.Fee,
		Vitians:         vitians,
		NonVitians:      others,
	}, nil
}

// Participants lists one row per registration member of an event. Any
// admin-class caller may read any event; coordinator scope is not applied.
func (s *Service) Participants(ctx context.Context, eventID domain.EventID) (out *models.Participants, err error) {
	ctx, span := tracing.Start(ctx, "analytics.Participants", "event_id", eventID.String())
	defer func() { tracing.End(span, err) }()

	caller, ok := requestcontext.Principal(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !caller.Role.In(adminRoles...) {
		s.logAudit(ctx, audit.EventAnalyticsDenied, eventID.String(), "role", caller.Role.String())
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized")
	}

	ev, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	regs, err := s.registrations.ListByEvents(ctx, []domain.EventID{eventID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registrations")
	}

	var ids []domain.UserID
	for _, r := range regs {
		ids = append(ids, r.TeamMembers...)
	}
	if resolvable := domain.ResolvableUserIDs(ids); len(resolvable) < len(ids) {
		s.logger.WarnContext(ctx, "participants include unresolvable user references",
			"event_id", eventID.String(), "count", len(ids)-len(resolvable))
		ids = resolvable
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load participants")
	}
	byID := make(map[domain.UserID]*usermodels.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	rows := make([]models.ParticipantRow, 0, len(ids))
	for _, r := range regs {
		for _, id := range r.TeamMembers {
			u, ok := byID[id]
			if !ok {
				continue
			}
			rows = append(rows, participantRow(r, u))
		}
	}
	return &models.Participants{Event: models.EventRef{ID: ev.ID, Name: ev.Name}, Rows: rows}, nil
}

func participantRow(r *regmodels.Registration, u *usermodels.User) models.ParticipantRow {
	status := string(r.PaymentStatus)
	if status == "" {
		status = string(regmodels.PaymentPending)
	}
	return models.ParticipantRow{
		RegistrationID: r.ID,
		PaymentStatus:  status,
		UserID:         u.ID,
		Name:           orNA(u.Name),
		Email:          orNA(u.Email),
		RegNo:          orNA(u.RegistrationNumber),
		Phone:          orNA(u.PhoneNumber),
		IsVITian:       u.IsVITian,
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func (s *Service) observeCache(result string) {
	if s.metrics != nil {
		s.metrics.ObserveCacheLookup(result)
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
