package checkout

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const DefaultTickInterval = 300 * time.Millisecond

type run struct {
	cancel context.CancelFunc
}

// Processor drives sessions in the processing step with one ticker goroutine
// per session.
type Processor struct {
	interval time.Duration
	outcomes OutcomeSource
	onResult func(*Session)
	logger   *slog.Logger

	mu      sync.Mutex
	running map[string]*run
	wg      sync.WaitGroup
}

func NewProcessor(interval time.Duration, outcomes OutcomeSource, onResult func(*Session), logger *slog.Logger) *Processor {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Processor{
		interval: interval,
		outcomes: outcomes,
		onResult: onResult,
		logger:   logger,
		running:  make(map[string]*run),
	}
}

// Start begins ticking s. A session that is already ticking is left alone.
func (p *Processor) Start(s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.running[s.ID()]; ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{cancel: cancel}
	p.running[s.ID()] = r

	p.wg.Add(1)
	go p.loop(ctx, s, r)
}

// Stop cancels the ticker of the session, if any.
func (p *Processor) Stop(sessionID string) {
	p.mu.Lock()
	r, ok := p.running[sessionID]
	if ok {
		delete(p.running, sessionID)
	}
	p.mu.Unlock()

	if ok {
		r.cancel()
	}
}

func (p *Processor) Running(sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.running[sessionID]
	return ok
}

// Close cancels every ticker and waits for them to exit.
func (p *Processor) Close() {
	p.mu.Lock()
	for id, r := range p.running {
		r.cancel()
		delete(p.running, id)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Processor) loop(ctx context.Context, s *Session, r *run) {
	defer p.wg.Done()
	defer p.release(s.ID(), r)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			done, err := s.Tick(p.outcomes, now)
			if err != nil {
				// the session left processing through another path
				p.logger.Debug("processing stopped", slog.String("checkout_id", s.ID()), slog.Any("reason", err))
				return
			}
			if done {
				if p.onResult != nil {
					p.onResult(s)
				}
				return
			}
		}
	}
}

func (p *Processor) release(sessionID string, r *run) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running[sessionID] == r {
		delete(p.running, sessionID)
	}
	r.cancel()
}
