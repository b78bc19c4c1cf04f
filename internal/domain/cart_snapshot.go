package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	Currency        = "BRL"
	MaxInstallments = 12
)

type CartSnapshotItem struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// CartSnapshot represents the full cart state at review/completion time
type CartSnapshot struct {
	Items       []CartSnapshotItem `json:"items"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	Currency    string             `json:"currency"`
	CapturedAt  time.Time          `json:"captured_at"`
}

func NewCartSnapshot(cart Cart, capturedAt time.Time) CartSnapshot {
	snapshot := CartSnapshot{
		Items:       make([]CartSnapshotItem, 0, len(cart.Items)),
		TotalAmount: cart.Total(),
		Currency:    Currency,
		CapturedAt:  capturedAt,
	}
	for _, item := range cart.Items {
		snapshot.Items = append(snapshot.Items, CartSnapshotItem{
			ProductID:   item.Product.ID,
			ProductName: item.Product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.Product.Price,
			Subtotal:    item.Subtotal(),
		})
	}
	return snapshot
}

type Installment struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Installments splits total into 1..MaxInstallments equal parts rounded to cents.
func Installments(total decimal.Decimal) []Installment {
	plan := make([]Installment, 0, MaxInstallments)
	for n := 1; n <= MaxInstallments; n++ {
		plan = append(plan, Installment{
			Count:  n,
			Amount: total.DivRound(decimal.NewFromInt(int64(n)), 2),
		})
	}
	return plan
}

// CheckoutCompleted is published once a successful checkout leaves the flow.
type CheckoutCompleted struct {
	CheckoutID    string             `json:"checkout_id"`
	ClientID      string             `json:"client_id"`
	Email         string             `json:"email"`
	OrderNumber   string             `json:"order_number"`
	PaymentMethod PaymentMethod      `json:"payment_method"`
	Items         []CartSnapshotItem `json:"items"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	Currency      string             `json:"currency"`
	CompletedAt   time.Time          `json:"completed_at"`
}
