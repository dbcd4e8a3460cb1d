package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Base provides the shared machinery for periodic agents: a ticker loop
// with an immediate first tick, a quit channel driven by Stop, and
// restart-safe bookkeeping so a supervisor may invoke Run again after a
// failed cycle. Concrete agents embed Base and hand their tick function
// to Loop.
type Base struct {
	id       string
	synopsis string
	interval time.Duration
	log      *zap.SugaredLogger

	mu      sync.Mutex
	done    chan struct{}
	started bool

	quitOnce sync.Once
	quit     chan struct{}

	running       atomic.Bool
	stopRequested atomic.Bool
}

// NewBase builds the embedded agent state. A nil logger is replaced with a
// no-op logger.
func NewBase(id, synopsis string, interval time.Duration, log *zap.SugaredLogger) *Base {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Base{
		id:       id,
		synopsis: synopsis,
		interval: interval,
		log:      log,
		quit:     make(chan struct{}),
	}
}

func (b *Base) ID() string              { return b.id }
func (b *Base) Synopsis() string        { return b.synopsis }
func (b *Base) Interval() time.Duration { return b.interval }
func (b *Base) Running() bool           { return b.running.Load() }
func (b *Base) StopRequested() bool     { return b.stopRequested.Load() }
func (b *Base) Log() *zap.SugaredLogger { return b.log }

// Loop drives tick until Stop is called or the context is cancelled. It
// returns nil for either of those and a wrapped error when a tick fails.
// After an error return the loop may be entered again; after Stop it
// returns nil immediately.
func (b *Base) Loop(ctx context.Context, tick func(context.Context) error) error {
	b.mu.Lock()
	if b.stopRequested.Load() {
		b.mu.Unlock()
		return nil
	}
	done := make(chan struct{})
	b.done = done
	b.started = true
	b.mu.Unlock()

	b.running.Store(true)
	defer func() {
		b.running.Store(false)
		close(done)
	}()

	if err := tick(ctx); err != nil {
		return fmt.Errorf("%s: %w", b.id, err)
	}

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.quit:
			return nil
		case <-ticker.C:
			if err := tick(ctx); err != nil {
				return fmt.Errorf("%s: %w", b.id, err)
			}
		}
	}
}

// Stop requests shutdown and waits for the active loop to return. A worker
// whose loop never ran returns immediately.
func (b *Base) Stop(ctx context.Context) error {
	b.stopRequested.Store(true)
	b.quitOnce.Do(func() { close(b.quit) })

	b.mu.Lock()
	done := b.done
	started := b.started
	b.mu.Unlock()

	if !started {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: stop: %w", b.id, ctx.Err())
	}
}
