//go:build integration

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"technovit/pkg/testutil/containers"
)

func TestProducer_PublishesKeyedRecords(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	broker := containers.NewRedpandaContainer(t).Broker

	producer, err := NewProducer(ctx, []string{broker}, "technovit.audit.test")
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, producer.EnsureTopic(ctx, 1, 1))
	require.NoError(t, producer.EnsureTopic(ctx, 1, 1), "existing topic is not an error")

	require.NoError(t, producer.Publish(ctx,
		Message{Key: "user-1", Value: []byte(`{"action":"payment_confirmed"}`), Type: "payment_confirmed"},
		Message{Key: "user-2", Value: []byte(`{"action":"registration_created"}`)},
	))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics("technovit.audit.test"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	var records []*kgo.Record
	for len(records) < 2 {
		fetches := consumer.PollFetches(ctx)
		require.NoError(t, fetches.Err())
		records = append(records, fetches.Records()...)
	}

	assert.Equal(t, "user-1", string(records[0].Key))
	require.Len(t, records[0].Headers, 1)
	assert.Equal(t, "event_type", records[0].Headers[0].Key)
	assert.Equal(t, "payment_confirmed", string(records[0].Headers[0].Value))
	assert.Empty(t, records[1].Headers)
}
