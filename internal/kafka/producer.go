package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"membership-service/internal/notification"

	"github.com/IBM/sarama"
)

// Producer publishes notices to a Kafka topic keyed by subject.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

func NewProducer(brokers []string, topic string, logger *slog.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.ClientID = "membership-service"
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	logger.Info("kafka producer initialized", "brokers", brokers, "topic", topic)

	return NewWithSyncProducer(producer, topic, logger), nil
}

// NewWithSyncProducer wraps an existing producer (useful for testing)
func NewWithSyncProducer(producer sarama.SyncProducer, topic string, logger *slog.Logger) *Producer {
	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

func (p *Producer) Publish(ctx context.Context, notice notification.Notice) error {
	valueBytes, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to marshal notice: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(notice.Key()),
		Value: sarama.ByteEncoder(valueBytes),
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte(notice.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send notice to kafka: %w", err)
	}

	p.logger.DebugContext(ctx, "notice sent to kafka", "topic", p.topic, "partition", partition, "offset", offset, "type", notice.Type)
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
