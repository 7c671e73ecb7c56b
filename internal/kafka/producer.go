package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dholratri-tickets/internal/logger"
	"dholratri-tickets/internal/models"

	"github.com/segmentio/kafka-go"
)

// Publisher delivers lifecycle events. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishPurchaseEvent(ctx context.Context, evt models.PurchaseEvent) error
	PublishTicketEvent(ctx context.Context, evt models.TicketEvent) error
	Close() error
}

type Producer struct {
	Writer *kafka.Writer
	prefix string
	log    *logger.Logger
}

// NewProducer builds a writer without a fixed topic; each message names its own.
func NewProducer(brokers []string, prefix string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer, prefix: prefix, log: log}
}

// Topic maps an event type such as purchase.approved to its prefixed topic.
func (p *Producer) Topic(eventType string) string {
	return TopicName(p.prefix, eventType)
}

func (p *Producer) PublishPurchaseEvent(ctx context.Context, evt models.PurchaseEvent) error {
	return p.publish(ctx, p.Topic(evt.Type), evt.PurchaseID, evt)
}

func (p *Producer) PublishTicketEvent(ctx context.Context, evt models.TicketEvent) error {
	return p.publish(ctx, p.Topic(evt.Type), evt.TicketID, evt)
}

func (p *Producer) publish(ctx context.Context, topic, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	p.log.LogKafka("PUBLISH", topic, key)
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// LogPublisher only logs events. Used when KAFKA_MOCK_MODE is set.
type LogPublisher struct {
	prefix string
	log    *logger.Logger
}

func NewLogPublisher(prefix string, log *logger.Logger) *LogPublisher {
	return &LogPublisher{prefix: prefix, log: log}
}

func (p *LogPublisher) PublishPurchaseEvent(_ context.Context, evt models.PurchaseEvent) error {
	body, _ := json.Marshal(evt)
	p.log.LogKafka("MOCK", TopicName(p.prefix, evt.Type), string(body))
	return nil
}

func (p *LogPublisher) PublishTicketEvent(_ context.Context, evt models.TicketEvent) error {
	body, _ := json.Marshal(evt)
	p.log.LogKafka("MOCK", TopicName(p.prefix, evt.Type), string(body))
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) PublishPurchaseEvent(context.Context, models.PurchaseEvent) error { return nil }
func (NoopPublisher) PublishTicketEvent(context.Context, models.TicketEvent) error     { return nil }
func (NoopPublisher) Close() error                                                      { return nil }
