//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"ordergate/internal/audit"
	"ordergate/pkg/testutil/containers"
)

func TestKafkaPublisher_PublishesRecords(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	broker := containers.NewRedpandaContainer(t)
	const topic = "ordergate.audit.test"

	publisher, err := audit.NewKafkaPublisher([]string{broker.Broker}, topic, nil)
	require.NoError(t, err)

	record := audit.Record{
		ID:        uuid.NewString(),
		SessionID: "sess-1",
		UserID:    "user-1001",
		Action:    audit.ActionOrderCancelled,
		OrderID:   "ORD-2024-001",
		Result:    audit.ResultSuccess,
		Severity:  audit.SeverityInfo,
		Timestamp: time.Now(),
	}
	publisher.Publish(context.Background(), record)
	publisher.Close()

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, "user-1001", string(records[0].Key))

	var got audit.Record
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, record.ID, got.ID)
	require.Equal(t, audit.ActionOrderCancelled, got.Action)
}
