//go:build integration

package outbox_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"immersion/internal/outbox"
	id "immersion/pkg/domain"
	"immersion/pkg/testutil/containers"
)

func TestKafkaSinkAgainstRedpanda(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	rp := containers.GetManager().GetRedpanda(t)

	const topic = "immersion.domain-events.test"
	sink, err := outbox.NewKafkaSink(ctx, []string{rp.Broker}, topic)
	require.NoError(t, err)
	defer sink.Close()

	ev := outbox.Event{
		ID:         id.NewEventID(),
		Topic:      "convention.status_changed",
		OccurredAt: time.Now().UTC(),
		Payload:    json.RawMessage(`{"to":"ACCEPTED_BY_VALIDATOR"}`),
		Status:     outbox.StatusPending,
	}
	require.NoError(t, sink.Deliver(ctx, ev))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, ev.ID.String(), string(records[0].Key))
	require.JSONEq(t, string(ev.Payload), string(records[0].Value))

	var domainTopic string
	for _, h := range records[0].Headers {
		if h.Key == "topic" {
			domainTopic = string(h.Value)
		}
	}
	require.Equal(t, ev.Topic, domainTopic)
}
