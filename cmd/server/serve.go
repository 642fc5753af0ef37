package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	analyticscache "technovit/internal/analytics/cache"
	analyticshandler "technovit/internal/analytics/handler"
	analyticsmetrics "technovit/internal/analytics/metrics"
	analyticsservice "technovit/internal/analytics/service"
	eventhandler "technovit/internal/event/handler"
	eventmetrics "technovit/internal/event/metrics"
	eventservice "technovit/internal/event/service"
	jwttoken "technovit/internal/jwt_token"
	"technovit/internal/platform/config"
	"technovit/internal/platform/httpserver"
	"technovit/internal/platform/kafka"
	"technovit/internal/platform/logger"
	"technovit/internal/platform/metrics"
	"technovit/internal/platform/ratelimit"
	platformredis "technovit/internal/platform/redis"
	"technovit/internal/platform/revocation"
	"technovit/internal/platform/tracing"
	registrationhandler "technovit/internal/registration/handler"
	registrationmetrics "technovit/internal/registration/metrics"
	registrationservice "technovit/internal/registration/service"
	httptransport "technovit/internal/transport/http"
	userhandler "technovit/internal/user/handler"
	userservice "technovit/internal/user/service"
	"technovit/pkg/platform/audit"
	"technovit/pkg/platform/audit/publisher"
	auditmemory "technovit/pkg/platform/audit/store/memory"
	auditpostgres "technovit/pkg/platform/audit/store/postgres"
	"technovit/pkg/platform/audit/worker"
	authmw "technovit/pkg/platform/middleware/auth"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger.New(cfg.Environment, cfg.LogLevel))
		},
	}
}

// serve wires dependencies, then blocks until ctx is cancelled or a
// background component fails.
func serve(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	st, err := openStores(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.close(context.Background()) }()

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var (
		revocations authmw.TokenRevocationChecker = revocation.NewInMemory()
		statsCache  analyticsservice.StatsCache   = analyticscache.NewInMemoryStats(cfg.Analytics.StatsCacheTTL)
	)
	if redisClient != nil {
		defer redisClient.Close()
		revocations = revocation.NewRedisList(redisClient.Client)
		statsCache = analyticscache.NewRedisStats(redisClient.Client, cfg.Analytics.StatsCacheTTL)
		log.Info("redis enabled for token revocation and stats cache")
	}

	g, ctx := errgroup.WithContext(ctx)

	auditStore, relay, cleanup, err := openAudit(ctx, cfg.Audit, log)
	if err != nil {
		return err
	}
	defer cleanup()
	auditPublisher := publisher.NewPublisher(auditStore, publisher.WithLogger(log), publisher.WithAsyncBuffer(256))
	defer auditPublisher.Close()
	if relay != nil {
		g.Go(func() error { return ignoreCanceled(relay.Run(ctx)) })
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	jwt := jwttoken.NewJWTService(cfg.SecretKey, cfg.JWTIssuer)
	users := userservice.New(st.users, userservice.WithLogger(log))
	events := eventservice.New(st.events,
		eventservice.WithLogger(log),
		eventservice.WithAuditPublisher(auditPublisher),
		eventservice.WithStatsInvalidator(statsCache),
		eventservice.WithMetrics(eventmetrics.New(reg)),
	)
	registrations := registrationservice.New(st.registrations, st.events, st.users,
		registrationservice.WithLogger(log),
		registrationservice.WithAuditPublisher(auditPublisher),
		registrationservice.WithStatsInvalidator(statsCache),
		registrationservice.WithMetrics(registrationmetrics.New(reg)),
	)
	analytics := analyticsservice.New(st.events, st.registrations, st.users, st.aggregator,
		analyticsservice.WithLogger(log),
		analyticsservice.WithStatsCache(statsCache),
		analyticsservice.WithAuditPublisher(auditPublisher),
		analyticsservice.WithMetrics(analyticsmetrics.New(reg)),
		analyticsservice.WithBreakdownConcurrency(cfg.Analytics.BreakdownJobs),
	)

	deps := httptransport.Deps{
		Logger:         log,
		Users:          userhandler.New(users, jwt, cfg.TokenTTL, log),
		Events:         eventhandler.New(events, log),
		Registrations:  registrationhandler.New(registrations, log),
		Analytics:      analyticshandler.New(analytics, log),
		Tokens:         jwttoken.NewJWTServiceAdapter(jwt),
		Principals:     users,
		Revocations:    revocations,
		Metrics:        metrics.NewHTTP(reg),
		Gatherer:       reg,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Ready:          st.ping,
	}
	if cfg.HTTP.RateLimitPerMinute > 0 {
		limiter := ratelimit.New(cfg.HTTP.RateLimitPerMinute)
		deps.RateLimiter = limiter
		g.Go(func() error { return sweep(ctx, limiter, log) })
	}

	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(deps))
	g.Go(func() error { return httpserver.Run(ctx, srv, log) })

	log.Info("technovit started", "addr", cfg.Addr, "store", cfg.Store.Driver, "env", cfg.Environment)
	return g.Wait()
}

// openAudit selects the postgres outbox when configured and, with brokers
// present, a relay forwarding it to Kafka.
func openAudit(ctx context.Context, cfg config.Audit, log *slog.Logger) (audit.Store, *worker.Relay, func(), error) {
	noop := func() {}
	if cfg.DatabaseURL == "" {
		return auditmemory.NewInMemoryStore(), nil, noop, nil
	}

	db, err := auditpostgres.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, noop, err
	}
	outbox := auditpostgres.New(db)
	if err := outbox.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, noop, err
	}
	if len(cfg.KafkaBrokers) == 0 {
		log.Info("audit outbox enabled without relay")
		return outbox, nil, func() { _ = db.Close() }, nil
	}

	producer, err := kafka.NewProducer(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		_ = db.Close()
		return nil, nil, noop, err
	}
	if err := producer.EnsureTopic(ctx, 3, 1); err != nil {
		log.Warn("could not ensure audit topic", "topic", cfg.KafkaTopic, "error", err)
	}
	relay := worker.NewRelay(outbox, producer, log, cfg.RelayInterval, cfg.RelayBatch)
	log.Info("audit relay enabled", "topic", cfg.KafkaTopic)
	return outbox, relay, func() {
		producer.Close()
		_ = db.Close()
	}, nil
}

func sweep(ctx context.Context, limiter *ratelimit.KeyedRateLimiter, log *slog.Logger) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := limiter.Sweep(); n > 0 {
				log.Debug("rate limit buckets swept", "removed", n)
			}
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
