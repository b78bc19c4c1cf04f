package checkout

import (
	"time"

	"github.com/GotWill/checkout-colmeia/internal/domain"
)

type View struct {
	ID            string                `json:"id"`
	Step          domain.CheckoutStep   `json:"step"`
	StepNumber    int                   `json:"step_number"`
	PaymentMethod domain.PaymentMethod  `json:"payment_method"`
	Installments  int                   `json:"installments,omitempty"`
	CardLast4     string                `json:"card_last4,omitempty"`
	Outcome       domain.PaymentOutcome `json:"outcome,omitempty"`
	Progress      int                   `json:"progress"`
	OrderNumber   string                `json:"order_number,omitempty"`
	CanRetry      bool                  `json:"can_retry"`
	StartedAt     time.Time             `json:"started_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	Summary       *Summary              `json:"summary,omitempty"`
}

type Shipping struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Summary is the order resume shown alongside every step.
type Summary struct {
	Cart     domain.CartSnapshot `json:"cart"`
	Shipping Shipping            `json:"shipping"`
	// Installments lists the credit card plan; empty for other methods.
	Installments []domain.Installment `json:"installments,omitempty"`
}

type ExitResult struct {
	CheckoutID  string                `json:"checkout_id"`
	Outcome     domain.PaymentOutcome `json:"outcome"`
	OrderNumber string                `json:"order_number,omitempty"`
	Redirect    string                `json:"redirect"`
}
