package messaging

import (
	"context"
	"fmt"
	"time"

	"feedbackai/feedback-service/internal/app/feedback/infrastructure"
	"feedbackai/pkg/metrics"

	"github.com/segmentio/kafka-go"
)

const (
	serviceName = "feedback-service"

	maxAttempts  = 2
	writeTimeout = 2 * time.Second
)

// KafkaProducer отправляет события FEEDBACK_CREATED
type KafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

var _ infrastructure.MessagePublisher = (*KafkaProducer)(nil)

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
		// Отправка синхронная внутри HTTP запроса, поэтому батч не копим
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  maxAttempts,
		WriteTimeout: writeTimeout,
	}

	return &KafkaProducer{writer: writer, topic: topic}
}

func (p *KafkaProducer) PublishMessage(ctx context.Context, key string, value []byte) error {
	timer := metrics.NewKafkaProduceTimer(serviceName, p.topic)

	message := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		timer.Error()
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	timer.Success()
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// NoopPublisher используется, когда Kafka отключена (KAFKA_ENABLED=false)
type NoopPublisher struct{}

var _ infrastructure.MessagePublisher = NoopPublisher{}

func (NoopPublisher) PublishMessage(context.Context, string, []byte) error { return nil }

func (NoopPublisher) Close() error { return nil }
