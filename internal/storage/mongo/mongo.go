// Package mongo owns the MongoDB connection, collection names and indexes
// shared by the per-domain stores.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"technovit/pkg/platform/sentinel"
)

const (
	CollectionUsers         = "users"
	CollectionEvents        = "events"
	CollectionRegistrations = "registrations"
)

// Connect dials MongoDB and verifies the primary is reachable.
func Connect(ctx context.Context, uri, database string, timeout time.Duration) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout).
		SetTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, client.Database(database), nil
}

// EnsureIndexes creates the indexes the stores rely on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		CollectionUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CollectionEvents: {
			{Keys: bson.D{{Key: "studentCoordinators._id", Value: 1}}},
			{Keys: bson.D{{Key: "facultyCoordinators._id", Value: 1}}},
		},
		CollectionRegistrations: {
			{Keys: bson.D{{Key: "event", Value: 1}, {Key: "paymentStatus", Value: 1}}},
			{Keys: bson.D{{Key: "teamMembers", Value: 1}}},
			{Keys: bson.D{{Key: "invitationStatus.userId", Value: 1}}},
		},
	}
	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// Translate maps driver errors onto store sentinels.
func Translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("document not found: %w", sentinel.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("duplicate key: %w", sentinel.ErrConflict)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	default:
		return err
	}
}
