// Package momentum tracks transient production bonuses that expire at an
// absolute instant.
package momentum

import "time"

// Effect is a temporary production bonus.
type Effect struct {
	Bonus  float64
	Expiry time.Time
}

// ActiveAt reports whether the effect still applies at now.
func (e Effect) ActiveAt(now time.Time) bool {
	return e.Expiry.After(now)
}

// Ledger is the ordered list of momentum effects. Expired entries are
// removed lazily by Active.
type Ledger struct {
	effects []Effect
}

// NewLedger builds a ledger from existing effects, keeping their order.
func NewLedger(effects ...Effect) Ledger {
	return Ledger{effects: append([]Effect(nil), effects...)}
}

// Add appends an effect. Effects stack additively.
func (l *Ledger) Add(bonus float64, expiry time.Time) {
	l.effects = append(l.effects, Effect{Bonus: bonus, Expiry: expiry})
}

// Active prunes effects that have expired at now and returns the sum of the
// remaining bonuses.
func (l *Ledger) Active(now time.Time) float64 {
	kept := l.effects[:0]
	total := 0.0
	for _, e := range l.effects {
		if e.ActiveAt(now) {
			kept = append(kept, e)
			total += e.Bonus
		}
	}
	for i := len(kept); i < len(l.effects); i++ {
		l.effects[i] = Effect{}
	}
	l.effects = kept
	return total
}

// Effects returns a copy of the current entries, expired or not.
func (l Ledger) Effects() []Effect {
	if len(l.effects) == 0 {
		return nil
	}
	out := make([]Effect, len(l.effects))
	copy(out, l.effects)
	return out
}

// Len is the number of entries not yet pruned.
func (l Ledger) Len() int {
	return len(l.effects)
}

// Clear drops every effect.
func (l *Ledger) Clear() {
	l.effects = nil
}

// Clone returns a ledger that shares no storage with l.
func (l Ledger) Clone() Ledger {
	return Ledger{effects: l.Effects()}
}
