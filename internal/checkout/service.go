package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/GotWill/checkout-colmeia/internal/domain"
	"github.com/GotWill/checkout-colmeia/internal/store"
	"github.com/GotWill/checkout-colmeia/internal/validation"
)

const (
	DefaultSessionTTL = 30 * time.Minute

	RedirectAuth    = "/auth?redirect=/checkout"
	RedirectCatalog = "/catalog"
)

// Workspaces resolves the stores of a client.
type Workspaces interface {
	Workspace(ctx context.Context, clientID string) (*store.Workspace, error)
}

// Publisher announces checkouts that completed successfully.
type Publisher interface {
	Publish(ctx context.Context, event domain.CheckoutCompleted) error
}

type Metrics interface {
	RecordTransition(step string)
	RecordOutcome(outcome string)
}

type Config struct {
	TickInterval time.Duration
	SessionTTL   time.Duration
}

// CardForm is the credit card form as submitted.
type CardForm struct {
	Number       string `json:"number"`
	Name         string `json:"name"`
	CVV          string `json:"cvv"`
	Installments int    `json:"installments"`
	Expiry       string `json:"expiry"`
}

func (c CardForm) Fields() validation.Fields {
	return validation.Fields{
		"number":       c.Number,
		"name":         c.Name,
		"cvv":          c.CVV,
		"installments": c.Installments,
		"expiry":       c.Expiry,
	}
}

type PaymentRequest struct {
	Method string    `json:"method"`
	Card   *CardForm `json:"card,omitempty"`
}

// Service owns the checkout session of every client.
type Service struct {
	workspaces Workspaces
	publisher  Publisher
	metrics    Metrics
	processor  *Processor
	config     Config
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session // clientID -> session
}

func NewService(workspaces Workspaces, publisher Publisher, metrics Metrics, outcomes OutcomeSource, config Config, logger *slog.Logger) *Service {
	if config.SessionTTL <= 0 {
		config.SessionTTL = DefaultSessionTTL
	}
	s := &Service{
		workspaces: workspaces,
		publisher:  publisher,
		metrics:    metrics,
		config:     config,
		logger:     logger,
		now:        time.Now,
		sessions:   make(map[string]*Session),
	}
	s.processor = NewProcessor(config.TickInterval, outcomes, s.onResult, logger)
	return s
}

// Start opens a fresh session for the client, replacing any previous one.
func (s *Service) Start(ctx context.Context, clientID string) (View, error) {
	ws, err := s.workspaces.Workspace(ctx, clientID)
	if err != nil {
		return View{}, err
	}
	if !ws.User.IsAuthenticated() {
		return View{}, ErrNotAuthenticated
	}
	if ws.Cart.Count() == 0 {
		return View{}, ErrEmptyCart
	}

	session := NewSession(clientID, s.now())

	s.mu.Lock()
	previous := s.sessions[clientID]
	s.sessions[clientID] = session
	s.mu.Unlock()

	if previous != nil {
		s.processor.Stop(previous.ID())
	}

	s.logger.InfoContext(ctx, "checkout started",
		slog.String("client_id", clientID),
		slog.String("checkout_id", session.ID()))
	s.metrics.RecordTransition(domain.CheckoutStepPayment.String())

	return s.view(session, ws), nil
}

// Get returns the current session. A session on the payment step with an
// empty cart is discarded and reported as ErrEmptyCart.
func (s *Service) Get(ctx context.Context, clientID string) (View, error) {
	session, ws, err := s.lookup(ctx, clientID)
	if err != nil {
		return View{}, err
	}
	return s.view(session, ws), nil
}

func (s *Service) SubmitPayment(ctx context.Context, clientID string, req PaymentRequest) (View, error) {
	session, ws, err := s.lookup(ctx, clientID)
	if err != nil {
		return View{}, err
	}

	method, err := domain.ParsePaymentMethod(req.Method)
	if err != nil {
		return View{}, ErrInvalidMethod
	}

	details := PaymentDetails{Method: method}
	if method == domain.PaymentMethodCreditCard {
		var card CardForm
		if req.Card != nil {
			card = *req.Card
		}
		if errs := validation.Validate(validation.CreditCardSchema, card.Fields()); len(errs) > 0 {
			return View{}, &ValidationError{Fields: errs}
		}
		number := strings.Join(strings.Fields(card.Number), "")
		details.Installments = card.Installments
		details.CardLast4 = number[len(number)-4:]
	}

	if err := session.SubmitPayment(details, s.now()); err != nil {
		return View{}, err
	}
	s.metrics.RecordTransition(domain.CheckoutStepReview.String())
	return s.view(session, ws), nil
}

func (s *Service) Back(ctx context.Context, clientID string) (View, error) {
	session, ws, err := s.lookup(ctx, clientID)
	if err != nil {
		return View{}, err
	}
	if err := session.Back(s.now()); err != nil {
		return View{}, err
	}
	s.metrics.RecordTransition(domain.CheckoutStepPayment.String())
	return s.view(session, ws), nil
}

// Confirm moves review -> processing and starts the processing ticker.
func (s *Service) Confirm(ctx context.Context, clientID string) (View, error) {
	session, ws, err := s.lookup(ctx, clientID)
	if err != nil {
		return View{}, err
	}
	if err := session.Confirm(domain.NewCartSnapshot(ws.Cart.Cart(), s.now()), s.now()); err != nil {
		return View{}, err
	}
	s.processor.Start(session)
	s.metrics.RecordTransition(domain.CheckoutStepProcessing.String())
	return s.view(session, ws), nil
}

func (s *Service) TryAgain(ctx context.Context, clientID string) (View, error) {
	session, ws, err := s.lookup(ctx, clientID)
	if err != nil {
		return View{}, err
	}
	if err := session.TryAgain(s.now()); err != nil {
		return View{}, err
	}
	s.metrics.RecordTransition(domain.CheckoutStepPayment.String())
	return s.view(session, ws), nil
}

// Exit leaves the result step back to the catalog. After a successful payment
// the cart is cleared and the completion is published. Only one caller can
// exit a given session; the others get ErrNoSession.
func (s *Service) Exit(ctx context.Context, clientID string) (ExitResult, error) {
	session, ws, err := s.lookup(ctx, clientID)
	if err != nil {
		return ExitResult{}, err
	}

	v := session.View()
	if v.Step != domain.CheckoutStepResult {
		return ExitResult{}, fmt.Errorf("%w: exit from %s", ErrIllegalTransition, v.Step)
	}

	if !s.claim(clientID, session) {
		return ExitResult{}, ErrNoSession
	}
	s.processor.Stop(session.ID())

	if v.Outcome == domain.PaymentOutcomeSuccess {
		s.complete(ctx, clientID, ws, session)
	}

	return ExitResult{
		CheckoutID:  v.ID,
		Outcome:     v.Outcome,
		OrderNumber: v.OrderNumber,
		Redirect:    RedirectCatalog,
	}, nil
}

// Abandon discards the client's session, wherever it is.
func (s *Service) Abandon(_ context.Context, clientID string) {
	s.mu.Lock()
	session := s.sessions[clientID]
	s.mu.Unlock()

	if session != nil {
		s.discard(clientID, session)
	}
}

// Sweep discards sessions idle for longer than the session TTL.
func (s *Service) Sweep(now time.Time) int {
	s.mu.Lock()
	var expired []*Session
	for clientID, session := range s.sessions {
		if session.idleSince(now) > s.config.SessionTTL {
			expired = append(expired, session)
			delete(s.sessions, clientID)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		s.processor.Stop(session.ID())
	}
	return len(expired)
}

// RunSweeper sweeps every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.Sweep(now); n > 0 {
				s.logger.Info("expired idle checkout sessions", slog.Int("count", n))
			}
		}
	}
}

// Close stops every processing ticker.
func (s *Service) Close() {
	s.processor.Close()
}

func (s *Service) lookup(ctx context.Context, clientID string) (*Session, *store.Workspace, error) {
	s.mu.Lock()
	session := s.sessions[clientID]
	s.mu.Unlock()
	if session == nil {
		return nil, nil, ErrNoSession
	}

	ws, err := s.workspaces.Workspace(ctx, clientID)
	if err != nil {
		return nil, nil, err
	}

	if session.View().Step == domain.CheckoutStepPayment && ws.Cart.Count() == 0 {
		s.discard(clientID, session)
		return nil, nil, ErrEmptyCart
	}
	return session, ws, nil
}

func (s *Service) discard(clientID string, session *Session) {
	s.claim(clientID, session)
	s.processor.Stop(session.ID())
}

// claim removes session from the client's slot, reporting whether this call
// was the one that removed it.
func (s *Service) claim(clientID string, session *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[clientID] != session {
		return false
	}
	delete(s.sessions, clientID)
	return true
}

func (s *Service) view(session *Session, ws *store.Workspace) View {
	v := session.View()
	cart, ok := session.Paid()
	if !ok {
		cart = domain.NewCartSnapshot(ws.Cart.Cart(), s.now())
	}
	user := ws.User.User()

	summary := &Summary{
		Cart:     cart,
		Shipping: Shipping{Name: user.Name, Email: user.Email},
	}
	if v.PaymentMethod == domain.PaymentMethodCreditCard {
		summary.Installments = domain.Installments(cart.TotalAmount)
	}
	v.Summary = summary
	return v
}

func (s *Service) onResult(session *Session) {
	v := session.View()
	s.metrics.RecordTransition(domain.CheckoutStepResult.String())
	s.metrics.RecordOutcome(string(v.Outcome))
	s.logger.Info("checkout processed",
		slog.String("checkout_id", v.ID),
		slog.String("outcome", string(v.Outcome)))
}

func (s *Service) complete(ctx context.Context, clientID string, ws *store.Workspace, session *Session) {
	v := session.View()
	user := ws.User.User()
	cart, ok := session.Paid()
	if !ok {
		cart = domain.NewCartSnapshot(ws.Cart.Cart(), s.now())
	}

	if err := ws.Cart.ClearCart(ctx); err != nil {
		s.logger.ErrorContext(ctx, "clear cart after checkout failed",
			slog.String("checkout_id", v.ID),
			slog.Any("error", err))
	}

	event := domain.CheckoutCompleted{
		CheckoutID:    v.ID,
		ClientID:      clientID,
		Email:         user.Email,
		OrderNumber:   v.OrderNumber,
		PaymentMethod: v.PaymentMethod,
		Items:         cart.Items,
		TotalAmount:   cart.TotalAmount,
		Currency:      cart.Currency,
		CompletedAt:   s.now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "publish checkout completed failed",
			slog.String("checkout_id", v.ID),
			slog.Any("error", err))
	}
}
