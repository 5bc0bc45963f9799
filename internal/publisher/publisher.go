package publisher

import (
	"context"
	"fmt"

	"github.com/fjod/go_cart/shop-api/internal/circuitbreaker"
	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher delivers outbox events to the outside world.
type Publisher interface {
	Publish(ctx context.Context, event domain.OutboxEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by aggregate id, so
// events of one order stay in partition order.
type KafkaPublisher struct {
	writer  messageWriter
	breaker *circuitbreaker.Breaker
}

func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, circuitbreaker.New(circuitbreaker.DefaultSettings("kafka"), log))
}

func newKafkaPublisher(w messageWriter, breaker *circuitbreaker.Breaker) *KafkaPublisher {
	return &KafkaPublisher{writer: w, breaker: breaker}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	err := p.breaker.Do(func() error {
		return p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("publish %s %s: %w", event.EventType, event.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher logs events instead of sending them. Used when no brokers are configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, event domain.OutboxEvent) error {
	p.log.Info("domain event",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.EventType),
		zap.String("aggregate_id", event.AggregateID),
		zap.ByteString("payload", event.Payload))
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
