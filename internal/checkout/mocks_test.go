package checkout

import (
	"context"
	"sync"

	"github.com/GotWill/checkout-colmeia/internal/domain"
)

type fixedOutcome domain.PaymentOutcome

func (f fixedOutcome) Outcome() domain.PaymentOutcome {
	return domain.PaymentOutcome(f)
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.CheckoutCompleted
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, event domain.CheckoutCompleted) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func (m *mockPublisher) published() []domain.CheckoutCompleted {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CheckoutCompleted(nil), m.events...)
}

type mockMetrics struct {
	mu          sync.Mutex
	transitions []string
	outcomes    []string
}

func (m *mockMetrics) RecordTransition(step string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, step)
}

func (m *mockMetrics) RecordOutcome(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *mockMetrics) outcomeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.outcomes)
}

// blockingPublisher holds its first Publish until release is closed.
type blockingPublisher struct {
	mockPublisher
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newBlockingPublisher() *blockingPublisher {
	return &blockingPublisher{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *blockingPublisher) Publish(ctx context.Context, event domain.CheckoutCompleted) error {
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.entered)
		<-b.release
	}
	return b.mockPublisher.Publish(ctx, event)
}
