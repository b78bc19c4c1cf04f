package checkout

import (
	"errors"

	"github.com/GotWill/checkout-colmeia/internal/validation"
)

var (
	ErrNotAuthenticated  = errors.New("checkout requires an authenticated user")
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrNoSession         = errors.New("no checkout session")
	ErrIllegalTransition = errors.New("illegal transition of checkout step")
	ErrInvalidMethod     = errors.New("unknown payment method")
)

// ValidationError carries the field errors of a rejected payment form.
type ValidationError struct {
	Fields []validation.FieldError
}

func (e *ValidationError) Error() string {
	return "payment form validation failed"
}
