package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const kafkaWriteTimeout = 5 * time.Second

// KafkaPublisher writes events asynchronously; delivery failures are logged, never returned to requests.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaPublisher builds a writer for the supplied brokers. Topics are chosen per message.
func NewKafkaPublisher(brokers []string, logger *zap.Logger) (*KafkaPublisher, error) {
	sanitized := make([]string, 0, len(brokers))
	for _, broker := range brokers {
		if trimmed := strings.TrimSpace(broker); trimmed != "" {
			sanitized = append(sanitized, trimmed)
		}
	}
	if len(sanitized) == 0 {
		return nil, errors.New("events.kafka.new: at least one broker is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(sanitized...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		AllowAutoTopicCreation: true,
		WriteTimeout:           kafkaWriteTimeout,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warn("kafka delivery failed",
					zap.String("code", "events.kafka.delivery_failed"),
					zap.Int("messages", len(messages)),
					zap.Error(err))
			}
		},
	}
	return &KafkaPublisher{writer: writer, logger: logger}, nil
}

// Publish encodes the event as JSON and hands it to the async writer.
func (publisher *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if strings.TrimSpace(event.Topic) == "" {
		return errors.New("events.kafka.publish: topic is required")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events.kafka.publish: %w", err)
	}
	message := kafka.Message{
		Topic: event.Topic,
		Key:   []byte(event.Key),
		Value: payload,
		Time:  event.OccurredAt,
	}
	if err := publisher.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("events.kafka.publish: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (publisher *KafkaPublisher) Close() error {
	return publisher.writer.Close()
}
