//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"bizlink/internal/audit"
	"bizlink/pkg/testutil/containers"
)

func TestKafkaStore_AppendProducesConsumableRecords(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	redpanda := containers.NewRedpandaContainer(t)
	defer func() { _ = redpanda.Container.Terminate(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const topic = "bizlink.messaging.audit.test"
	store, err := audit.NewKafkaStore(ctx, []string{redpanda.Broker}, topic)
	require.NoError(t, err)
	defer store.Close()

	sent := audit.Event{
		Timestamp:      time.Now().UTC().Truncate(time.Millisecond),
		ActorID:        "user-1",
		Action:         audit.ActionMessageSent,
		ConversationID: "conv-1",
		Detail:         "msg-1",
	}
	require.NoError(t, store.Append(ctx, sent))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, "user-1", string(records[0].Key), "records are keyed by actor")

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, sent.Action, got.Action)
	require.Equal(t, sent.ConversationID, got.ConversationID)
	require.Equal(t, sent.Detail, got.Detail)
}

// Creating the store twice against the same broker must tolerate the topic
// already existing.
func TestKafkaStore_TopicCreationIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	redpanda := containers.NewRedpandaContainer(t)
	defer func() { _ = redpanda.Container.Terminate(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const topic = "bizlink.messaging.audit.test"
	first, err := audit.NewKafkaStore(ctx, []string{redpanda.Broker}, topic)
	require.NoError(t, err)
	first.Close()

	second, err := audit.NewKafkaStore(ctx, []string{redpanda.Broker}, topic)
	require.NoError(t, err)
	second.Close()
}
