package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HyprPixl/signalfoundry/internal/domain/economy"
	"github.com/HyprPixl/signalfoundry/internal/domain/state"
	"github.com/HyprPixl/signalfoundry/internal/events"
	"github.com/HyprPixl/signalfoundry/internal/infra/storage"
)

var errNoStore = errors.New("no snapshot store configured")

// SaveReceipt is the result of a successful save.
type SaveReceipt struct {
	SavedAt time.Time `json:"saved_at"`
	Message string    `json:"message"`
}

// LoadReport describes how the session was restored.
type LoadReport struct {
	// Fresh is true when no usable snapshot existed and a new run started.
	Fresh           bool    `json:"fresh"`
	OfflineSeconds  float64 `json:"offline_seconds"`
	OfflineCredited float64 `json:"offline_credited"`
	Shards          int     `json:"shards"`
	Message         string  `json:"message"`
}

// unixSeconds converts a wall-clock time into fractional unix seconds.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// toSnapshot captures the run at the given instants. Momentum expiries move
// from the monotonic domain to wall-clock seconds; expired effects are dropped.
func toSnapshot(st *state.GameState, monoNow, wallNow time.Time) *storage.Snapshot {
	savedAt := unixSeconds(wallNow)
	snap := &storage.Snapshot{
		Signal:           st.Signal,
		Intel:            st.Intel,
		Shards:           st.Shards,
		TotalGenerated:   st.TotalGenerated,
		ManualPower:      st.ManualPower,
		GlobalBonus:      st.GlobalBonus,
		SavedAtWallClock: savedAt,
		MomentumEffects:  []storage.MomentumRecord{},
		Generators:       make(map[string]storage.GeneratorRecord, len(st.Generators)),
		Upgrades:         make(map[string]storage.UpgradeRecord, len(st.Upgrades)),
	}
	for _, m := range st.Momentum.Effects() {
		if !m.ActiveAt(monoNow) {
			continue
		}
		snap.MomentumEffects = append(snap.MomentumEffects, storage.MomentumRecord{
			Bonus:  m.Bonus,
			Expiry: savedAt + m.Expiry.Sub(monoNow).Seconds(),
		})
	}
	for key, g := range st.Generators {
		snap.Generators[key] = storage.GeneratorRecord{OwnedCount: g.Count, Bonus: g.Bonus}
	}
	for key, u := range st.Upgrades {
		snap.Upgrades[key] = storage.UpgradeRecord{Purchased: u.Purchased}
	}
	return snap
}

// fromSnapshot rebuilds a run and credits the time spent offline with the
// restored configuration. Keys the catalog does not know are ignored.
func fromSnapshot(snap *storage.Snapshot, catalog *economy.Catalog, monoNow, wallNow time.Time) (*state.GameState, float64, float64) {
	st := state.New(catalog, monoNow)
	st.Signal = snap.Signal
	st.Intel = snap.Intel
	st.Shards = snap.Shards
	st.TotalGenerated = snap.TotalGenerated
	st.ManualPower = snap.ManualPower
	st.GlobalBonus = snap.GlobalBonus

	for key, rec := range snap.Generators {
		if g, ok := st.Generators[key]; ok {
			g.Count = rec.OwnedCount
			g.Bonus = rec.Bonus
		}
	}
	for key, rec := range snap.Upgrades {
		if u, ok := st.Upgrades[key]; ok {
			u.Purchased = rec.Purchased
		}
	}

	wallSecs := unixSeconds(wallNow)
	for _, rec := range snap.MomentumEffects {
		if remaining := rec.Expiry - wallSecs; remaining > 0 {
			st.Momentum.Add(rec.Bonus, monoNow.Add(seconds(remaining)))
		}
	}

	offline := max(0, wallSecs-snap.SavedAtWallClock)
	st.LastTick = monoNow.Add(-seconds(offline))
	var credited float64
	if offline > 0 {
		credited = reconcile(st, monoNow)
	}
	return st, offline, credited
}

// Save reconciles production and writes the session to the store.
func (e *Engine) Save(ctx context.Context) (SaveReceipt, error) {
	start := time.Now()
	var receipt SaveReceipt
	err := e.mutate("save", func(st *state.GameState, now time.Time) (*state.GameState, error) {
		if e.store == nil {
			return nil, persistenceError("save", errNoStore)
		}
		reconcile(st, now)
		wall := e.clock.Wall()
		if err := e.store.Save(ctx, toSnapshot(st, now, wall)); err != nil {
			return nil, persistenceError("save", err)
		}
		receipt = SaveReceipt{SavedAt: wall, Message: "Progress saved. See you next drift."}
		return st, nil
	})
	e.metrics.RecordSave(time.Since(start), err)
	if err != nil {
		e.logger.Error("save failed", "error", err)
		return SaveReceipt{}, err
	}
	e.record(events.EventTypeSaved, receipt.Message, map[string]interface{}{
		"saved_at": unixSeconds(receipt.SavedAt),
	})
	return receipt, nil
}

// Load replaces the session with the stored snapshot, crediting offline
// production. A missing or unreadable snapshot starts a fresh run; a
// malformed one fails and leaves the session untouched.
func (e *Engine) Load(ctx context.Context) (LoadReport, error) {
	var report LoadReport
	err := e.mutate("load", func(_ *state.GameState, now time.Time) (*state.GameState, error) {
		if e.store == nil {
			return nil, persistenceError("load", errNoStore)
		}
		snap, err := e.store.Load(ctx)
		switch {
		case errors.Is(err, storage.ErrNoSnapshot):
			report = LoadReport{Fresh: true, Message: "No save found. A fresh beacon awaits."}
			return state.New(e.catalog, now), nil
		case errors.Is(err, storage.ErrUnreadableSnapshot):
			e.logger.Warn("snapshot unreadable, starting fresh", "error", err)
			report = LoadReport{Fresh: true, Message: "Save could not be read. A fresh beacon awaits."}
			return state.New(e.catalog, now), nil
		case err != nil:
			return nil, persistenceError("load", err)
		}

		st, offline, credited := fromSnapshot(snap, e.catalog, now, e.clock.Wall())
		report = LoadReport{
			OfflineSeconds:  offline,
			OfflineCredited: credited,
			Shards:          st.Shards,
			Message: fmt.Sprintf("Loaded save and recalculated offline gains: +%s signal over %s.",
				economy.FormatNumber(credited), seconds(offline).Round(time.Second)),
		}
		return st, nil
	})
	if err != nil {
		e.logger.Error("load failed", "error", err)
		return LoadReport{}, err
	}
	e.metrics.RecordLoad()
	e.record(events.EventTypeLoaded, report.Message, map[string]interface{}{
		"fresh": report.Fresh, "offline_seconds": report.OfflineSeconds, "offline_credited": report.OfflineCredited,
	})
	return report, nil
}

// Reset wipes the stored snapshot and starts a fresh run.
func (e *Engine) Reset(ctx context.Context) error {
	err := e.mutate("reset", func(_ *state.GameState, now time.Time) (*state.GameState, error) {
		if e.store != nil {
			if err := e.store.Delete(ctx); err != nil {
				return nil, persistenceError("reset", err)
			}
		}
		return state.New(e.catalog, now), nil
	})
	if err != nil {
		e.logger.Error("reset failed", "error", err)
		return err
	}
	e.record(events.EventTypeReset, "Save wiped. Fresh beacon awaits.", nil)
	return nil
}
