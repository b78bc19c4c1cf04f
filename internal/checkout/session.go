package checkout

import (
	"fmt"
	"sync"
	"time"

	"github.com/GotWill/checkout-colmeia/internal/domain"
	"github.com/google/uuid"
)

const (
	progressStep = 10
	progressDone = 100
)

// PaymentDetails is what the review step shows of the chosen method.
// Card numbers are never kept, only the last four digits.
type PaymentDetails struct {
	Method       domain.PaymentMethod
	Installments int
	CardLast4    string
}

// Session is one pass through payment -> review -> processing -> result.
type Session struct {
	mu sync.Mutex

	id          string
	clientID    string
	step        domain.CheckoutStep
	payment     PaymentDetails
	outcome     domain.PaymentOutcome
	progress    int
	orderNumber string
	// paid is the cart as confirmed; set from processing onwards.
	paid        *domain.CartSnapshot
	startedAt   time.Time
	updatedAt   time.Time
}

func NewSession(clientID string, now time.Time) *Session {
	return &Session{
		id:        uuid.NewString(),
		clientID:  clientID,
		step:      domain.CheckoutStepPayment,
		payment:   PaymentDetails{Method: domain.PaymentMethodPix},
		startedAt: now,
		updatedAt: now,
	}
}

func (s *Session) ID() string {
	return s.id
}

// SubmitPayment records the chosen method and moves payment -> review.
func (s *Session) SubmitPayment(details PaymentDetails, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.moveTo(domain.CheckoutStepReview, now); err != nil {
		return err
	}
	s.payment = details
	return nil
}

// Back moves review -> payment.
func (s *Session) Back(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != domain.CheckoutStepReview {
		return s.illegal(domain.CheckoutStepPayment)
	}
	return s.moveTo(domain.CheckoutStepPayment, now)
}

// Confirm moves review -> processing with progress reset and freezes the cart
// being paid for.
func (s *Session) Confirm(cart domain.CartSnapshot, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.moveTo(domain.CheckoutStepProcessing, now); err != nil {
		return err
	}
	s.paid = &cart
	s.progress = 0
	s.outcome = domain.PaymentOutcomeNone
	return nil
}

// Tick advances processing by one step. The tick that finds progress at 100
// draws the outcome and moves to result, reporting done.
func (s *Session) Tick(src OutcomeSource, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != domain.CheckoutStepProcessing {
		return false, s.illegal(domain.CheckoutStepProcessing)
	}

	if s.progress < progressDone {
		s.progress = min(s.progress+progressStep, progressDone)
		s.updatedAt = now
		return false, nil
	}

	s.outcome = src.Outcome()
	if s.outcome == domain.PaymentOutcomeSuccess {
		s.orderNumber = orderNumber()
	}
	return true, s.moveTo(domain.CheckoutStepResult, now)
}

// TryAgain moves a failed or expired result back to payment.
func (s *Session) TryAgain(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != domain.CheckoutStepResult || !s.outcome.Retryable() {
		return s.illegal(domain.CheckoutStepPayment)
	}
	if err := s.moveTo(domain.CheckoutStepPayment, now); err != nil {
		return err
	}
	s.progress = 0
	s.outcome = domain.PaymentOutcomeNone
	s.paid = nil
	return nil
}

// Paid returns the cart frozen at confirmation, if any.
func (s *Session) Paid() (domain.CartSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paid == nil {
		return domain.CartSnapshot{}, false
	}
	return *s.paid, true
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		ID:            s.id,
		Step:          s.step,
		StepNumber:    s.step.Number(),
		PaymentMethod: s.payment.Method,
		Installments:  s.payment.Installments,
		CardLast4:     s.payment.CardLast4,
		Outcome:       s.outcome,
		Progress:      s.progress,
		OrderNumber:   s.orderNumber,
		CanRetry:      s.step == domain.CheckoutStepResult && s.outcome.Retryable(),
		StartedAt:     s.startedAt,
		UpdatedAt:     s.updatedAt,
	}
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.updatedAt)
}

func (s *Session) moveTo(to domain.CheckoutStep, now time.Time) error {
	if !domain.CanTransitionTo(s.step, to) {
		return s.illegal(to)
	}
	s.step = to
	s.updatedAt = now
	return nil
}

func (s *Session) illegal(to domain.CheckoutStep) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.step, to)
}

func formatOrderNumber(n int) string {
	return fmt.Sprintf("ORD-%05d", n)
}
