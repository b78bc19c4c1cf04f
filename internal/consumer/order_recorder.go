package consumer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/GotWill/checkout-colmeia/internal/domain"
	"github.com/GotWill/checkout-colmeia/internal/orders"
)

// OrderRecorder writes orders straight from completed checkouts. It stands in
// for the Kafka round trip when no broker is configured.
type OrderRecorder struct {
	repo   OrderWriter
	logger *slog.Logger
}

func NewOrderRecorder(repo OrderWriter, logger *slog.Logger) *OrderRecorder {
	return &OrderRecorder{repo: repo, logger: logger}
}

func (r *OrderRecorder) Publish(ctx context.Context, event domain.CheckoutCompleted) error {
	order, err := orderFromEvent(event)
	if err != nil {
		return err
	}

	if err := r.repo.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, orders.ErrDuplicateCheckout) {
			return nil
		}
		return err
	}

	r.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID.String()),
		slog.String("checkout_id", order.CheckoutID.String()),
		slog.String("order_number", order.OrderNumber))
	return nil
}
