// Package storage provides the persistence layer for the foundry server.
// The engine depends on the interfaces declared here; the file and SQLite
// implementations live alongside them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrNoSnapshot is returned by Load when nothing has been saved yet.
	ErrNoSnapshot = errors.New("no snapshot saved")
	// ErrUnreadableSnapshot is returned when the snapshot exists but cannot be read.
	ErrUnreadableSnapshot = errors.New("snapshot unreadable")
	// ErrMalformedSnapshot is returned when the stored data does not decode
	// into a valid snapshot.
	ErrMalformedSnapshot = errors.New("snapshot malformed")
)

// Snapshot is the persisted form of a game session. Catalog fields are not
// stored; only run state keyed by generator and upgrade key.
type Snapshot struct {
	Signal           float64                    `json:"signal"`
	Intel            int                        `json:"intel"`
	Shards           int                        `json:"shards"`
	TotalGenerated   float64                    `json:"totalGenerated"`
	ManualPower      float64                    `json:"manualPower"`
	GlobalBonus      float64                    `json:"globalBonus"`
	SavedAtWallClock float64                    `json:"savedAtWallClock"`
	MomentumEffects  []MomentumRecord           `json:"momentumEffects"`
	Generators       map[string]GeneratorRecord `json:"generators"`
	Upgrades         map[string]UpgradeRecord   `json:"upgrades"`
}

// MomentumRecord stores a momentum effect with its expiry in wall-clock
// unix seconds.
type MomentumRecord struct {
	Bonus  float64 `json:"bonus"`
	Expiry float64 `json:"expiry"`
}

type GeneratorRecord struct {
	OwnedCount int     `json:"ownedCount"`
	Bonus      float64 `json:"bonus"`
}

type UpgradeRecord struct {
	Purchased bool `json:"purchased"`
}

// Validate reports values no save could have produced.
func (s *Snapshot) Validate() error {
	check := func(name string, v float64) error {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s is %v", ErrMalformedSnapshot, name, v)
		}
		return nil
	}
	for name, v := range map[string]float64{
		"signal":           s.Signal,
		"totalGenerated":   s.TotalGenerated,
		"manualPower":      s.ManualPower,
		"globalBonus":      s.GlobalBonus,
		"savedAtWallClock": s.SavedAtWallClock,
	} {
		if err := check(name, v); err != nil {
			return err
		}
	}
	// Manual power starts at 1 and only grows, so zero means the field is missing.
	if !(s.ManualPower > 0) {
		return fmt.Errorf("%w: manualPower is %v", ErrMalformedSnapshot, s.ManualPower)
	}
	if s.Intel < 0 || s.Shards < 0 {
		return fmt.Errorf("%w: negative intel or shards", ErrMalformedSnapshot)
	}
	for key, g := range s.Generators {
		if g.OwnedCount < 0 {
			return fmt.Errorf("%w: generator %s owned count %d", ErrMalformedSnapshot, key, g.OwnedCount)
		}
		if err := check("generator "+key+" bonus", g.Bonus); err != nil {
			return err
		}
	}
	for i, m := range s.MomentumEffects {
		if math.IsNaN(m.Bonus) || math.IsNaN(m.Expiry) {
			return fmt.Errorf("%w: momentum effect %d", ErrMalformedSnapshot, i)
		}
	}
	return nil
}

// Quarantiner is implemented by stores that can move an unloadable snapshot
// out of the way, so the next save does not overwrite it.
type Quarantiner interface {
	// Quarantine returns where the snapshot now lives.
	Quarantine(ctx context.Context) (string, error)
}

// ErrNoQuarantine is returned by SetAside for stores without quarantine.
var ErrNoQuarantine = errors.New("store cannot quarantine snapshots")

// SetAside quarantines the store's snapshot when the store supports it.
func SetAside(ctx context.Context, store SnapshotStore) (string, error) {
	q, ok := store.(Quarantiner)
	if !ok {
		return "", ErrNoQuarantine
	}
	return q.Quarantine(ctx)
}

// quarantineSuffix names a set-aside snapshot after the time it was moved.
func quarantineSuffix(now time.Time) string {
	return ".corrupt-" + now.UTC().Format("20060102T150405.000000000")
}

// SnapshotStore persists a single save slot.
type SnapshotStore interface {
	// Load returns ErrNoSnapshot when nothing is stored.
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	// Delete removes the stored snapshot; a missing one is not an error.
	Delete(ctx context.Context) error
}

// GameEvent mirrors the economy event structure for persistence.
// The events package does not import this; the server adapts between them.
type GameEvent struct {
	ID        string                 `json:"id" db:"id"`
	Seq       uint64                 `json:"seq" db:"seq"`
	SlotID    string                 `json:"slot_id" db:"slot_id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	EventType string                 `json:"event_type" db:"event_type"`
	ActorID   string                 `json:"actor_id" db:"actor_id"`
	Message   string                 `json:"message" db:"message"`
	Payload   map[string]interface{} `json:"payload" db:"payload"`
}

// EventRepository defines the interface for event history persistence.
type EventRepository interface {
	// Append adds a new event to the ledger.
	Append(ctx context.Context, event GameEvent) error

	// Recent retrieves up to limit of the newest events for a slot, oldest first.
	Recent(ctx context.Context, slotID string, limit int) ([]GameEvent, error)

	// ByType retrieves up to limit of the newest events of one type, oldest first.
	ByType(ctx context.Context, slotID, eventType string, limit int) ([]GameEvent, error)
}
