// Package worker relays audit outbox entries to Kafka.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"technovit/internal/platform/kafka"
	"technovit/pkg/platform/audit/store/postgres"
)

// Outbox is the durable source of unpublished audit entries.
type Outbox interface {
	FetchUnpublished(ctx context.Context, limit int) ([]postgres.Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Sink receives relayed entries.
type Sink interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// Relay polls the outbox and forwards entries to the sink in batches.
// Delivery is at-least-once: a crash between publish and mark re-sends the batch.
type Relay struct {
	outbox   Outbox
	sink     Sink
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

func NewRelay(outbox Outbox, sink Sink, logger *slog.Logger, interval time.Duration, batch int) *Relay {
	if batch <= 0 {
		batch = 100
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Relay{outbox: outbox, sink: sink, logger: logger, interval: interval, batch: batch}
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				n, err := r.RelayOnce(ctx)
				if err != nil {
					r.logger.ErrorContext(ctx, "audit relay failed", "error", err)
					break
				}
				if n < r.batch {
					break
				}
			}
		}
	}
}

// RelayOnce forwards a single batch and returns how many entries were relayed.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	entries, err := r.outbox.FetchUnpublished(ctx, r.batch)
	if err != nil || len(entries) == 0 {
		return 0, err
	}

	msgs := make([]kafka.Message, len(entries))
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		msgs[i] = kafka.Message{Key: e.AggregateID, Value: e.Payload, Type: e.EventType}
		ids[i] = e.ID
	}
	if err := r.sink.Publish(ctx, msgs...); err != nil {
		return 0, err
	}
	if err := r.outbox.MarkPublished(ctx, ids); err != nil {
		return 0, err
	}
	r.logger.DebugContext(ctx, "audit entries relayed", "count", len(entries))
	return len(entries), nil
}
