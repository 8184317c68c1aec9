package kafka_client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/spacesedan/photobot/internal/models"
)

// PostEventProducer publishes one PostEvent per recorded cycle.
type PostEventProducer struct {
	producer *kafka.Producer
	topic    string
}

func NewPostEventProducer(cfg KafkaConfig) (*PostEventProducer, error) {
	slog.Info("[KafkaClient] Initializing Kafka Producer...",
		slog.String("broker", cfg.Broker),
		slog.String("topic", cfg.Topic))

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":                     cfg.Broker,
		"security.protocol":                     "PLAINTEXT",
		"api.version.request":                   "true",
		"enable.idempotence":                    true,
		"acks":                                  "all",
		"max.in.flight.requests.per.connection": 1,
		"client.id":                             PRODUCER_CLIENT_ID,
	})
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] Failed to create producer: %w", err)
	}

	go logDeliveryFailures(p)

	slog.Info("[KafkaClient] Kafka Producer initialized successfully")
	return &PostEventProducer{producer: p, topic: cfg.Topic}, nil
}

func logDeliveryFailures(p *kafka.Producer) {
	for e := range p.Events() {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			slog.Warn("[KafkaClient] Delivery failed",
				slog.String("error", m.TopicPartition.Error.Error()))
		}
	}
}

// Publish enqueues the event keyed by cycle ID. Delivery is asynchronous.
func (p *PostEventProducer) Publish(ctx context.Context, event models.PostEvent) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("[KafkaClient] failed to marshal post event: %w", err)
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.CycleID),
		Value:          jsonData,
		Timestamp:      event.RecordedAt,
	}

	for attempt := 1; attempt <= PRODUCE_RETRIES; attempt++ {
		err = p.producer.Produce(msg, nil)
		if err == nil {
			break
		}
		slog.Warn("[KafkaClient] Failed to produce message, retrying...",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(RETRY_DELAY):
		}
	}
	if err != nil {
		return fmt.Errorf("[KafkaClient] failed to produce post event: %w", err)
	}

	slog.Debug("[KafkaClient] Published post event",
		slog.String("topic", p.topic),
		slog.String("cycle_id", event.CycleID))
	return nil
}

func (p *PostEventProducer) Close() {
	slog.Info("[KafkaClient] Shutting down Kafka producer...")
	if remaining := p.producer.Flush(5000); remaining > 0 {
		slog.Warn("[KafkaClient] Not all messages were delivered before shutdown",
			slog.Int("remaining", remaining))
	}
	p.producer.Close()
	slog.Info("[KafkaClient] Kafka producer shut down")
}
