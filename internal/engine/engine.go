package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HyprPixl/signalfoundry/internal/domain/economy"
	"github.com/HyprPixl/signalfoundry/internal/domain/rules"
	"github.com/HyprPixl/signalfoundry/internal/domain/state"
	"github.com/HyprPixl/signalfoundry/internal/events"
	"github.com/HyprPixl/signalfoundry/internal/infra/storage"
	"github.com/HyprPixl/signalfoundry/internal/platform/clock"
	"github.com/HyprPixl/signalfoundry/internal/platform/logger"
	"github.com/HyprPixl/signalfoundry/internal/platform/metrics"
)

// DefaultActor names the single session owner in logs and events.
const DefaultActor = "player"

// Random is the uniform source used for venture outcomes.
// *rand.Rand from math/rand/v2 satisfies it.
type Random interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// IntN returns a value in [0, n).
	IntN(n int) int
}

// Engine owns one game session and serializes every operation on it.
type Engine struct {
	mu      sync.Mutex
	current atomic.Pointer[state.GameState]

	catalog  *economy.Catalog
	clock    clock.Clock
	rng      Random
	store    storage.SnapshotStore
	eventLog *events.EventLog
	logger   *logger.Logger
	metrics  *metrics.Collector
	actor    string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the real clock.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithRandom replaces the venture random source.
func WithRandom(r Random) Option {
	return func(e *Engine) { e.rng = r }
}

// WithSeed seeds the default PCG source for reproducible ventures.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithStore sets where Save, Load and Reset persist the session.
func WithStore(s storage.SnapshotStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithEventLog records economy events to the given log.
func WithEventLog(el *events.EventLog) Option {
	return func(e *Engine) { e.eventLog = el }
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithActor names the session owner recorded on events.
func WithActor(actor string) Option {
	return func(e *Engine) { e.actor = actor }
}

// NewEngine creates an engine holding a fresh run built from the catalog.
func NewEngine(catalog *economy.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		clock:   clock.RealClock{},
		logger:  logger.NewLogger(),
		metrics: metrics.Get(),
		actor:   DefaultActor,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if e.eventLog == nil {
		e.eventLog = events.NewEventLog(nil)
	}
	e.current.Store(state.New(catalog, e.clock.Now()))
	return e
}

// Catalog returns the static definitions of the session.
func (e *Engine) Catalog() *economy.Catalog {
	return e.catalog
}

// EventLog exposes the economy history.
func (e *Engine) EventLog() *events.EventLog {
	return e.eventLog
}

// State returns a deep copy of the current session.
func (e *Engine) State() *state.GameState {
	return e.current.Load().Clone()
}

// replace publishes a wholly new state, used by tests and loaders.
func (e *Engine) replace(st *state.GameState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current.Store(st)
}

// mutate runs fn on a private copy of the state. The copy is published only
// when fn succeeds; fn may also return a different state to swap in.
func (e *Engine) mutate(op string, fn func(st *state.GameState, now time.Time) (*state.GameState, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	work := e.current.Load().Clone()
	next, err := fn(work, e.clock.Now())
	e.metrics.RecordOperation(op, err)
	if err != nil {
		e.logger.Warn("operation rejected", "op", op, "error", err)
		return err
	}
	e.current.Store(next)
	return nil
}

// reconcile credits production since the last tick. It is a no-op when no
// time has elapsed.
func reconcile(st *state.GameState, now time.Time) float64 {
	elapsed := now.Sub(st.LastTick).Seconds()
	if elapsed <= 0 {
		return 0
	}
	gained := st.ProductionRate(now) * elapsed
	st.Credit(gained)
	st.LastTick = now
	return gained
}

// Tick reconciles passive production up to now.
func (e *Engine) Tick() float64 {
	start := time.Now()
	var produced float64
	e.mutate("tick", func(st *state.GameState, now time.Time) (*state.GameState, error) {
		produced = reconcile(st, now)
		return st, nil
	})
	e.metrics.RecordTick(time.Since(start), produced)
	return produced
}

// Ping gains amount × manualPower × globalMultiplier signal by hand.
func (e *Engine) Ping(amount int) (float64, error) {
	if amount < 1 {
		e.metrics.RecordOperation("ping", rules.ErrInvalidAmount)
		return 0, fmt.Errorf("%w: ping amount %d, must be at least 1", rules.ErrInvalidAmount, amount)
	}
	var gained float64
	err := e.mutate("ping", func(st *state.GameState, now time.Time) (*state.GameState, error) {
		reconcile(st, now)
		gained = float64(amount) * st.ManualPower * st.GlobalMultiplier(now)
		st.Credit(gained)
		return st, nil
	})
	if err != nil {
		return 0, err
	}
	e.record(events.EventTypePing, fmt.Sprintf("Pulsed the lattice for %s signal.", economy.FormatNumber(gained)),
		map[string]interface{}{"amount": amount, "gained": gained})
	return gained, nil
}

// record appends an economy event and logs it.
func (e *Engine) record(typ events.EventType, message string, payload map[string]interface{}) {
	e.logger.Event(string(typ), e.actor, message)
	_, err := e.eventLog.Append(events.GameEvent{
		Timestamp: e.clock.Wall(),
		Type:      typ,
		ActorID:   e.actor,
		Message:   message,
		Payload:   payload,
	})
	if err != nil {
		e.logger.Error("failed to persist event", "type", string(typ), "error", err)
	}
}

// persistenceError wraps a store failure unless it is already one.
func persistenceError(op string, err error) error {
	var pe *rules.PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &rules.PersistenceError{Op: op, Err: err}
}
