package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HyprPixl/signalfoundry/internal/platform/logger"
)

// DefaultTickRate is how often the ticker reconciles production.
const DefaultTickRate = 1 * time.Second

// Ticker drives the engine in real time. It only decides when to tick and
// when to autosave; all economy math stays in the engine.
type Ticker struct {
	engine   *Engine
	logger   *logger.Logger
	interval time.Duration
	autosave time.Duration

	ticks    atomic.Int64
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewTicker creates a ticker. An autosave interval of zero disables autosave.
func NewTicker(e *Engine, interval, autosave time.Duration) *Ticker {
	if interval <= 0 {
		interval = DefaultTickRate
	}
	return &Ticker{
		engine:   e,
		logger:   e.logger,
		interval: interval,
		autosave: autosave,
		stopChan: make(chan struct{}),
	}
}

// Start begins the loop. Call in a goroutine; it returns when ctx is
// cancelled or Stop is called.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Info("engine ticker started", "interval", t.interval.String(), "autosave", t.autosave.String())

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	var autosave <-chan time.Time
	if t.autosave > 0 {
		saveTicker := time.NewTicker(t.autosave)
		defer saveTicker.Stop()
		autosave = saveTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("engine ticker stopped by context")
			return
		case <-t.stopChan:
			t.logger.Info("engine ticker stopped manually")
			return
		case <-ticker.C:
			t.engine.Tick()
			t.ticks.Add(1)
		case <-autosave:
			if _, err := t.engine.Save(ctx); err != nil {
				t.logger.Warn("autosave failed", "error", err)
			}
		}
	}
}

// Stop gracefully stops the ticker. It is safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// Ticks is the number of ticks driven so far.
func (t *Ticker) Ticks() int64 {
	return t.ticks.Load()
}
