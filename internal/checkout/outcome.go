package checkout

import (
	"math/rand/v2"

	"github.com/GotWill/checkout-colmeia/internal/domain"
)

// OutcomeSource decides how a simulated payment ends.
type OutcomeSource interface {
	Outcome() domain.PaymentOutcome
}

// RandomOutcome draws from a uniform [0,1) source; rand.Float64 when Float is nil.
type RandomOutcome struct {
	Float func() float64
}

func (r RandomOutcome) Outcome() domain.PaymentOutcome {
	draw := rand.Float64
	if r.Float != nil {
		draw = r.Float
	}
	return outcomeFor(draw())
}

// outcomeFor maps a draw to an outcome: above 0.85 failed, above 0.70 expired,
// success otherwise.
func outcomeFor(draw float64) domain.PaymentOutcome {
	switch {
	case draw > 0.85:
		return domain.PaymentOutcomeFailed
	case draw > 0.70:
		return domain.PaymentOutcomeExpired
	default:
		return domain.PaymentOutcomeSuccess
	}
}

// orderNumber formats a random order reference such as ORD-04217.
func orderNumber() string {
	return formatOrderNumber(rand.IntN(100000))
}
