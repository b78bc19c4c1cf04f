package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GotWill/checkout-colmeia/internal/domain"
	"github.com/GotWill/checkout-colmeia/internal/orders"
	"github.com/GotWill/checkout-colmeia/internal/publisher"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	defaultRetryBackoff    = 100 * time.Millisecond
	defaultMaxRetryBackoff = 5 * time.Second
	commitTimeout          = 5 * time.Second
)

// MessageReader is the part of *kafka.Reader the consumer uses. Offsets are
// committed explicitly once a message has been handled.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OrderWriter interface {
	CreateOrder(ctx context.Context, order *orders.Order) error
}

// OrdersConsumer turns checkout.completed events into orders. A message is
// committed only after its order is stored, was already stored, or the
// message can never be parsed; storage failures are retried with backoff.
type OrdersConsumer struct {
	repo   OrderWriter
	reader MessageReader
	logger *slog.Logger

	retryBackoff    time.Duration
	maxRetryBackoff time.Duration
}

func NewKafkaReader(brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    publisher.TopicCheckoutCompleted,
		GroupID:  "storefront-orders",
		MaxBytes: 10e6, // 10MB
	})
}

func NewOrdersConsumer(repo OrderWriter, reader MessageReader, logger *slog.Logger) *OrdersConsumer {
	return &OrdersConsumer{
		repo:            repo,
		reader:          reader,
		logger:          logger,
		retryBackoff:    defaultRetryBackoff,
		maxRetryBackoff: defaultMaxRetryBackoff,
	}
}

func (c *OrdersConsumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *OrdersConsumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("error closing kafka reader", slog.Any("error", err))
	}
}

func (c *OrdersConsumer) processMessage(ctx context.Context) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.logger.Error("error reading message", slog.Any("error", err))
		return
	}

	order, err := orderFromMessage(m.Value)
	if err != nil {
		c.logger.Error("skipping malformed checkout event",
			slog.Int64("offset", m.Offset),
			slog.Any("error", err))
		c.commit(ctx, m)
		return
	}

	switch err := c.createOrder(ctx, order); {
	case err == nil:
		c.logger.Info("order created",
			slog.String("order_id", order.ID.String()),
			slog.String("checkout_id", order.CheckoutID.String()),
			slog.String("order_number", order.OrderNumber))
	case errors.Is(err, orders.ErrDuplicateCheckout):
		c.logger.Info("order already recorded, skipping", slog.String("checkout_id", order.CheckoutID.String()))
	default:
		// left uncommitted; redelivered after restart or rebalance
		return
	}

	c.commit(ctx, m)
}

// createOrder stores order, retrying transient failures until ctx is done.
func (c *OrdersConsumer) createOrder(ctx context.Context, order *orders.Order) error {
	backoff := c.retryBackoff
	for {
		err := c.repo.CreateOrder(ctx, order)
		if err == nil || errors.Is(err, orders.ErrDuplicateCheckout) {
			return err
		}
		c.logger.Error("failed to create order",
			slog.String("checkout_id", order.CheckoutID.String()),
			slog.Duration("retry_in", backoff),
			slog.Any("error", err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, c.maxRetryBackoff)
	}
}

func (c *OrdersConsumer) commit(ctx context.Context, m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		c.logger.Error("failed to commit message",
			slog.Int64("offset", m.Offset),
			slog.Any("error", err))
	}
}

func orderFromMessage(value []byte) (*orders.Order, error) {
	var event domain.CheckoutCompleted
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	return orderFromEvent(event)
}

func orderFromEvent(event domain.CheckoutCompleted) (*orders.Order, error) {
	checkoutID, err := uuid.Parse(event.CheckoutID)
	if err != nil {
		return nil, fmt.Errorf("invalid checkout_id %q: %w", event.CheckoutID, err)
	}

	currency := event.Currency
	if currency == "" {
		currency = domain.Currency
	}

	items := make([]orders.OrderItem, len(event.Items))
	for i, item := range event.Items {
		items[i] = orders.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.UnitPrice,
		}
	}

	return &orders.Order{
		ID:            uuid.New(),
		CheckoutID:    checkoutID,
		ClientID:      event.ClientID,
		Email:         event.Email,
		OrderNumber:   event.OrderNumber,
		PaymentMethod: string(event.PaymentMethod),
		TotalAmount:   event.TotalAmount,
		Currency:      currency,
		Status:        orders.OrderStatusConfirmed,
		Items:         items,
	}, nil
}
