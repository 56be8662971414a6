package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/HyprPixl/signalfoundry/internal/domain/economy"
	"github.com/HyprPixl/signalfoundry/internal/domain/rules"
	"github.com/HyprPixl/signalfoundry/internal/domain/state"
	"github.com/HyprPixl/signalfoundry/internal/infra/storage"
	"github.com/HyprPixl/signalfoundry/internal/platform/clock"
	"github.com/HyprPixl/signalfoundry/internal/platform/logger"
	"github.com/HyprPixl/signalfoundry/internal/platform/metrics"
)

func restartEngine(store storage.SnapshotStore, clk clock.Clock) *Engine {
	return NewEngine(economy.DefaultCatalog(),
		WithClock(clk), WithStore(store), WithLogger(logger.Discard()), WithMetrics(metrics.NewCollector()))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewJSONFileStore(filepath.Join(t.TempDir(), "save.json"))
	e, clk := newTestEngine(t, WithStore(store))
	setState(e, func(st *state.GameState) {
		st.Signal = 812.5
		st.Intel = 4
		st.Shards = 3
		st.TotalGenerated = 9100
		st.ManualPower = 3
		st.GlobalBonus = 0.2
		st.Generators["drone"].Count = 9
		st.Generators["drone"].Bonus = 0.5
		st.Generators["array"].Count = 2
		st.Upgrades["focused-ping"].Purchased = true
		st.Upgrades["drone-synchrony"].Purchased = true
		st.Upgrades["signal-feedback"].Purchased = true
		st.Momentum.Add(0.35, clk.Now().Add(30*time.Second))
	})
	saved := e.State()

	receipt, err := e.Save(ctx)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !receipt.SavedAt.Equal(clk.Wall()) {
		t.Fatalf("expected save stamped with the wall clock")
	}

	restored := restartEngine(store, clk)
	report, err := restored.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if report.Fresh || report.OfflineSeconds != 0 || report.OfflineCredited != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	sameRunFields(t, saved, restored.State())

	effects := restored.State().Momentum.Effects()
	if len(effects) != 1 || effects[0].Bonus != 0.35 {
		t.Fatalf("momentum not restored: %+v", effects)
	}
	if d := effects[0].Expiry.Sub(clk.Now()); d < 30*time.Second-time.Millisecond || d > 30*time.Second+time.Millisecond {
		t.Fatalf("expected 30s of momentum left, got %v", d)
	}
}

func TestLoadReportsOfflineDuration(t *testing.T) {
	store := &memoryStore{}
	e, _ := newTestEngine(t, WithStore(store))
	if _, err := e.Save(context.Background()); err != nil {
		t.Fatal(err)
	}

	clk := clock.NewFake(epoch)
	clk.AdvanceWall(90 * time.Second)
	clk.SetMono(epoch.Add(5 * time.Hour))
	restored := restartEngine(store, clk)
	report, err := restored.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.OfflineSeconds != 90 || report.OfflineCredited != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	// The offline tick moves lastTick up to the monotonic now.
	if got := restored.State().LastTick; !got.Equal(clk.Now()) {
		t.Fatalf("expected lastTick at now, got %v before", clk.Now().Sub(got))
	}
}

func TestLoadIgnoresClockRollback(t *testing.T) {
	store := &memoryStore{}
	e, _ := newTestEngine(t, WithStore(store))
	setState(e, func(st *state.GameState) { st.Generators["drone"].Count = 1 })
	e.Save(context.Background())

	clk := clock.NewFake(epoch)
	clk.AdvanceWall(-time.Hour)
	restored := restartEngine(store, clk)
	report, err := restored.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.OfflineSeconds != 0 || restored.State().Signal != 0 {
		t.Fatalf("a wall clock behind the save must not credit anything: %+v", report)
	}
}

func TestMomentumAcrossSessions(t *testing.T) {
	tests := []struct {
		name    string
		offline time.Duration
		want    int
	}{
		{"still active", 20 * time.Second, 1},
		{"expired while offline", 60 * time.Second, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryStore{}
			rng := &scriptedRandom{floats: []float64{0.8}}
			e, _ := newTestEngine(t, WithStore(store), WithRandom(rng))
			setState(e, func(st *state.GameState) { st.Signal = 150 })
			if _, err := e.Venture(); err != nil {
				t.Fatal(err)
			}
			if _, err := e.Save(context.Background()); err != nil {
				t.Fatal(err)
			}

			clk := clock.NewFake(epoch.Add(-24 * time.Hour))
			clk.AdvanceWall(24*time.Hour + tt.offline)
			restored := restartEngine(store, clk)
			if _, err := restored.Load(context.Background()); err != nil {
				t.Fatal(err)
			}
			st := restored.State()
			if st.Momentum.Len() != tt.want {
				t.Fatalf("expected %d momentum effects, got %d", tt.want, st.Momentum.Len())
			}
			if tt.want > 0 {
				left := st.Momentum.Effects()[0].Expiry.Sub(clk.Now())
				if left < 24*time.Second || left > 26*time.Second {
					t.Fatalf("expected about 25s of momentum left, got %v", left)
				}
			}
		})
	}
}

func TestLoadWithoutSnapshotStartsFresh(t *testing.T) {
	store := &memoryStore{}
	e, _ := newTestEngine(t, WithStore(store))
	setState(e, func(st *state.GameState) { st.Signal = 500 })

	report, err := e.Load(context.Background())
	if err != nil {
		t.Fatalf("missing snapshot is not an error: %v", err)
	}
	if !report.Fresh || e.State().Signal != 0 {
		t.Fatalf("expected a fresh run, got %+v signal %v", report, e.State().Signal)
	}
}

func TestLoadUnreadableStartsFresh(t *testing.T) {
	store := &memoryStore{loadErr: storage.ErrUnreadableSnapshot}
	e, _ := newTestEngine(t, WithStore(store))
	setState(e, func(st *state.GameState) { st.Signal = 500 })

	report, err := e.Load(context.Background())
	if err != nil || !report.Fresh || e.State().Signal != 0 {
		t.Fatalf("expected fresh run, got %+v %v", report, err)
	}
}

func TestLoadMalformedSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.json")
	if err := os.WriteFile(path, []byte(`{"signal": "lots"`), 0644); err != nil {
		t.Fatal(err)
	}
	e, _ := newTestEngine(t, WithStore(storage.NewJSONFileStore(path)))
	setState(e, func(st *state.GameState) { st.Signal = 500 })
	before := e.State()

	_, err := e.Load(context.Background())
	var pe *rules.PersistenceError
	if !errors.As(err, &pe) || !errors.Is(err, rules.ErrPersistence) || !errors.Is(err, storage.ErrMalformedSnapshot) {
		t.Fatalf("expected PersistenceError wrapping malformed snapshot, got %v", err)
	}
	sameRunFields(t, before, e.State())
}

func TestLoadRejectsIncompleteSnapshots(t *testing.T) {
	for name, body := range map[string]string{
		"null":    `null`,
		"empty":   `{}`,
		"partial": `{"signal": 5}`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "save.json")
			if err := os.WriteFile(path, []byte(body), 0644); err != nil {
				t.Fatal(err)
			}
			e, _ := newTestEngine(t, WithStore(storage.NewJSONFileStore(path)))
			setState(e, func(st *state.GameState) { st.Signal = 42 })
			before := e.State()

			_, err := e.Load(context.Background())
			if !errors.Is(err, rules.ErrPersistence) || !errors.Is(err, storage.ErrMalformedSnapshot) {
				t.Fatalf("expected malformed snapshot error, got %v", err)
			}
			sameRunFields(t, before, e.State())
			if gained, _ := e.Ping(1); gained != 1 {
				t.Fatalf("manual ping should still yield 1, got %v", gained)
			}
		})
	}
}

func TestSaveFailure(t *testing.T) {
	store := &memoryStore{saveErr: errors.New("disk full")}
	m := metrics.NewCollector()
	e, clk := newTestEngine(t, WithStore(store), WithMetrics(m))
	setState(e, func(st *state.GameState) { st.Generators["drone"].Count = 1 })
	clk.Advance(5 * time.Second)
	before := e.State()

	if _, err := e.Save(context.Background()); !errors.Is(err, rules.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	sameRunFields(t, before, e.State())
	if m.SaveErrors != 1 {
		t.Fatalf("expected save error recorded")
	}
}

func TestSaveWithoutStore(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.Save(context.Background()); !errors.Is(err, rules.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if _, err := e.Load(context.Background()); !errors.Is(err, rules.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestSaveCreditsPendingProduction(t *testing.T) {
	store := &memoryStore{}
	e, clk := newTestEngine(t, WithStore(store))
	setState(e, func(st *state.GameState) { st.Generators["drone"].Count = 2 })
	clk.Advance(10 * time.Second)

	if _, err := e.Save(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !approx(store.snap.Signal, 20) {
		t.Fatalf("expected production up to the save, got %v", store.snap.Signal)
	}
}

func TestUnknownSnapshotKeysIgnored(t *testing.T) {
	store := &memoryStore{snap: &storage.Snapshot{
		Signal:           10,
		ManualPower:      1,
		SavedAtWallClock: unixSeconds(epoch),
		Generators: map[string]storage.GeneratorRecord{
			"drone":   {OwnedCount: 2},
			"reactor": {OwnedCount: 7},
		},
		Upgrades: map[string]storage.UpgradeRecord{"warp": {Purchased: true}},
	}}
	e, _ := newTestEngine(t, WithStore(store))
	if _, err := e.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	st := e.State()
	if _, ok := st.Generators["reactor"]; ok {
		t.Fatalf("unknown generator must be ignored")
	}
	if st.Generators["drone"].Count != 2 || st.Generators["array"].Count != 0 {
		t.Fatalf("unexpected generator counts")
	}
	if _, ok := st.Upgrades["warp"]; ok || st.Upgrades["focused-ping"].Purchased {
		t.Fatalf("unexpected upgrades after load")
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	e, _ := newTestEngine(t, WithStore(store))
	setState(e, func(st *state.GameState) { st.Shards = 4 })
	e.Save(ctx)

	if err := e.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if store.snap != nil || e.State().Shards != 0 {
		t.Fatalf("reset must wipe the save and the run")
	}
	if err := e.Reset(ctx); err != nil {
		t.Fatalf("reset without a save must succeed: %v", err)
	}

	store.delErr = errors.New("read-only filesystem")
	setState(e, func(st *state.GameState) { st.Shards = 1 })
	if err := e.Reset(ctx); !errors.Is(err, rules.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if e.State().Shards != 1 {
		t.Fatalf("failed reset must leave the run intact")
	}
}

func TestSQLiteStoreWithEngine(t *testing.T) {
	db, err := storage.InitSQLite(filepath.Join(t.TempDir(), "foundry.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	store := storage.NewSQLiteSnapshotStore(db, "default")

	e, clk := newTestEngine(t, WithStore(store))
	setState(e, func(st *state.GameState) {
		st.Shards = 2
		st.Generators["gate"].Count = 1
		st.Upgrades["gate-oversurge"].Purchased = true
	})
	saved := e.State()
	if _, err := e.Save(context.Background()); err != nil {
		t.Fatal(err)
	}

	restored := restartEngine(store, clk)
	if _, err := restored.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	sameRunFields(t, saved, restored.State())
}
