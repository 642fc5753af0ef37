package main

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/mongo"

	analyticsservice "technovit/internal/analytics/service"
	analyticsstore "technovit/internal/analytics/store"
	eventservice "technovit/internal/event/service"
	eventstore "technovit/internal/event/store"
	"technovit/internal/platform/config"
	registrationservice "technovit/internal/registration/service"
	registrationstore "technovit/internal/registration/store"
	storage "technovit/internal/storage/mongo"
	userservice "technovit/internal/user/service"
	userstore "technovit/internal/user/store"
)

type userBackend interface {
	userservice.UserStore
	registrationservice.UserStore
	analyticsservice.UserReader
}

type eventBackend interface {
	eventservice.EventStore
	registrationservice.EventStore
	analyticsservice.EventReader
}

type registrationBackend interface {
	registrationservice.RegistrationStore
	analyticsservice.RegistrationReader
}

// stores bundles one backend per collection plus the store lifecycle hooks.
type stores struct {
	users         userBackend
	events        eventBackend
	registrations registrationBackend
	aggregator    analyticsservice.Aggregator

	db    *mongo.Database
	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

func openStores(ctx context.Context, cfg config.Store, logger *slog.Logger) (*stores, error) {
	if cfg.Driver == config.StoreMemory {
		logger.Warn("using in-memory stores; data is lost on restart")
		users := userstore.NewInMemory()
		events := eventstore.NewInMemory()
		regs := registrationstore.NewInMemory()
		return &stores{
			users:         users,
			events:        events,
			registrations: regs,
			aggregator:    analyticsstore.NewInMemory(regs, events),
			ping:          func(context.Context) error { return nil },
			close:         func(context.Context) error { return nil },
		}, nil
	}

	client, db, err := storage.Connect(ctx, cfg.MongoURL, cfg.Database, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	if err := storage.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	logger.Info("connected to mongo", "database", cfg.Database)
	return &stores{
		users:         userstore.NewMongo(db),
		events:        eventstore.NewMongo(db),
		registrations: registrationstore.NewMongo(db),
		aggregator:    analyticsstore.NewMongo(db),
		db:            db,
		ping:          func(ctx context.Context) error { return client.Ping(ctx, nil) },
		close:         client.Disconnect,
	}, nil
}
