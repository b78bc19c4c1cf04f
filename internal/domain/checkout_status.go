package domain

import "fmt"

type CheckoutStep string

const (
	CheckoutStepPayment    CheckoutStep = "payment"
	CheckoutStepReview     CheckoutStep = "review"
	CheckoutStepProcessing CheckoutStep = "processing"
	CheckoutStepResult     CheckoutStep = "result"
)

// Number is the 1-based position of the step in the flow.
func (s CheckoutStep) Number() int {
	switch s {
	case CheckoutStepReview:
		return 2
	case CheckoutStepProcessing:
		return 3
	case CheckoutStepResult:
		return 4
	default:
		return 1
	}
}

// String representation (for logging)
func (s CheckoutStep) String() string {
	return string(s)
}

var transitions = map[CheckoutStep][]CheckoutStep{
	CheckoutStepPayment:    {CheckoutStepReview},
	CheckoutStepReview:     {CheckoutStepPayment, CheckoutStepProcessing},
	CheckoutStepProcessing: {CheckoutStepResult},
	CheckoutStepResult:     {CheckoutStepPayment},
}

// CanTransitionTo reports whether the flow allows moving from one step to another.
// result -> payment is further restricted to retryable outcomes by the session.
func CanTransitionTo(from, to CheckoutStep) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodPix        PaymentMethod = "pix"
	PaymentMethodCreditCard PaymentMethod = "credit-card"
	PaymentMethodBoleto     PaymentMethod = "boleto"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentMethodPix, PaymentMethodCreditCard, PaymentMethodBoleto:
		return m, nil
	default:
		return "", fmt.Errorf("unknown payment method %q", s)
	}
}

type PaymentOutcome string

const (
	PaymentOutcomeNone    PaymentOutcome = ""
	PaymentOutcomeSuccess PaymentOutcome = "success"
	PaymentOutcomeFailed  PaymentOutcome = "failed"
	PaymentOutcomeExpired PaymentOutcome = "expired"
)

// Retryable outcomes allow "try again" from the result step.
func (o PaymentOutcome) Retryable() bool {
	return o == PaymentOutcomeFailed || o == PaymentOutcomeExpired
}
