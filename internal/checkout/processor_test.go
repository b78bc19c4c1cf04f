package checkout

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/GotWill/checkout-colmeia/internal/domain"
	"github.com/GotWill/checkout-colmeia/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processingSession(t *testing.T) *Session {
	s := reviewSession(t)
	require.NoError(t, s.Confirm(domain.CartSnapshot{}, time.Now()))
	return s
}

func TestProcessor_RunsToResult(t *testing.T) {
	var results atomic.Int32
	p := NewProcessor(time.Millisecond, fixedOutcome(domain.PaymentOutcomeSuccess), func(*Session) {
		results.Add(1)
	}, logger.Discard())
	t.Cleanup(p.Close)

	s := processingSession(t)
	p.Start(s)

	require.Eventually(t, func() bool { return results.Load() == 1 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, domain.CheckoutStepResult, s.View().Step)
	assert.Eventually(t, func() bool { return !p.Running(s.ID()) }, time.Second, time.Millisecond)
}

func TestProcessor_StartTwiceKeepsOneTicker(t *testing.T) {
	var results atomic.Int32
	p := NewProcessor(time.Millisecond, fixedOutcome(domain.PaymentOutcomeFailed), func(*Session) {
		results.Add(1)
	}, logger.Discard())
	t.Cleanup(p.Close)

	s := processingSession(t)
	p.Start(s)
	p.Start(s)

	require.Eventually(t, func() bool { return s.View().Step == domain.CheckoutStepResult }, 2*time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), results.Load())
}

func TestProcessor_StopCancels(t *testing.T) {
	p := NewProcessor(time.Hour, fixedOutcome(domain.PaymentOutcomeSuccess), nil, logger.Discard())
	t.Cleanup(p.Close)

	s := processingSession(t)
	p.Start(s)
	require.True(t, p.Running(s.ID()))

	p.Stop(s.ID())

	assert.False(t, p.Running(s.ID()))
	assert.Equal(t, domain.CheckoutStepProcessing, s.View().Step)
	assert.Zero(t, s.View().Progress)
}

func TestProcessor_CloseStopsAll(t *testing.T) {
	p := NewProcessor(time.Hour, fixedOutcome(domain.PaymentOutcomeSuccess), nil, logger.Discard())

	a, b := processingSession(t), processingSession(t)
	p.Start(a)
	p.Start(b)

	p.Close()

	assert.False(t, p.Running(a.ID()))
	assert.False(t, p.Running(b.ID()))
}

func TestProcessor_DefaultInterval(t *testing.T) {
	p := NewProcessor(0, fixedOutcome(domain.PaymentOutcomeSuccess), nil, logger.Discard())
	assert.Equal(t, DefaultTickInterval, p.interval)
}
