// Package publisher sends relayed activity events to Kafka.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"dealflow/internal/activity/models"
)

// Kafka publishes outbox records keyed by transaction id, so every event of
// one transaction lands on the same partition in commit order.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func NewKafka(client *kgo.Client, topic string, logger *slog.Logger) *Kafka {
	return &Kafka{client: client, topic: topic, logger: logger}
}

// Publish produces the batch synchronously and fails if any record fails.
func (k *Kafka) Publish(ctx context.Context, batch []models.OutboxRecord) error {
	records := make([]*kgo.Record, 0, len(batch))
	for _, r := range batch {
		records = append(records, &kgo.Record{
			Topic: k.topic,
			Key:   []byte(r.AggregateID),
			Value: r.Payload,
			Headers: []kgo.RecordHeader{
				{Key: "event_type", Value: []byte(r.EventType)},
				{Key: "outbox_id", Value: []byte(r.ID.String())},
			},
			Timestamp: r.CreatedAt,
		})
	}
	if err := k.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce activity events: %w", err)
	}
	return nil
}

// EnsureTopic creates the activity topic when it does not exist yet.
func (k *Kafka) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	admin := kadm.NewClient(k.client)
	resp, err := admin.CreateTopic(ctx, partitions, replicationFactor, nil, k.topic)
	if err == nil {
		err = resp.Err
	}
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", k.topic, err)
	}
	if k.logger != nil && err == nil {
		k.logger.InfoContext(ctx, "activity topic created", "topic", k.topic, "partitions", partitions)
	}
	return nil
}
