package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/GotWill/checkout-colmeia/internal/circuitbreaker"
	"github.com/GotWill/checkout-colmeia/internal/domain"
	"github.com/segmentio/kafka-go"
)

const (
	TopicCheckoutCompleted = "checkout-completed"
	EventCheckoutCompleted = "checkout.completed"
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer  MessageWriter
	breaker *circuitbreaker.Breaker
	timeout time.Duration
	logger  *slog.Logger
}

func NewKafkaWriter(brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicCheckoutCompleted,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	}
}

func NewKafkaPublisher(writer MessageWriter, breaker *circuitbreaker.Breaker, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  writer,
		breaker: breaker,
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

// Publish writes event keyed by checkout id so every event of a checkout
// lands on the same partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event domain.CheckoutCompleted) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.CheckoutID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventCheckoutCompleted)},
		},
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	err = p.breaker.Execute(func() error {
		return p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.CheckoutID, err)
	}

	p.logger.InfoContext(ctx, "checkout event published",
		slog.String("checkout_id", event.CheckoutID),
		slog.String("order_number", event.OrderNumber))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher records completions in the log when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event domain.CheckoutCompleted) error {
	p.logger.InfoContext(ctx, "checkout completed",
		slog.String("checkout_id", event.CheckoutID),
		slog.String("order_number", event.OrderNumber),
		slog.String("total", event.TotalAmount.StringFixed(2)),
		slog.String("currency", event.Currency))
	return nil
}
