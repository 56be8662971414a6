package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		Signal:           1234.5,
		Intel:            7,
		Shards:           2,
		TotalGenerated:   9000,
		ManualPower:      2.5,
		GlobalBonus:      0.1,
		SavedAtWallClock: 1_700_000_000.25,
		MomentumEffects: []MomentumRecord{
			{Bonus: 0.35, Expiry: 1_700_000_030},
			{Bonus: 0.35, Expiry: 1_700_000_040},
		},
		Generators: map[string]GeneratorRecord{
			"drone": {OwnedCount: 12, Bonus: 0.25},
			"array": {OwnedCount: 3, Bonus: 0},
		},
		Upgrades: map[string]UpgradeRecord{
			"focused-ping":    {Purchased: true},
			"drone-synchrony": {Purchased: false},
		},
	}
}

func assertSnapshotEqual(t *testing.T, want, got *Snapshot) {
	t.Helper()
	if got.Signal != want.Signal || got.Intel != want.Intel || got.Shards != want.Shards ||
		got.TotalGenerated != want.TotalGenerated || got.ManualPower != want.ManualPower ||
		got.GlobalBonus != want.GlobalBonus || got.SavedAtWallClock != want.SavedAtWallClock {
		t.Fatalf("scalar mismatch: want %+v got %+v", want, got)
	}
	if len(got.MomentumEffects) != len(want.MomentumEffects) {
		t.Fatalf("momentum mismatch: want %+v got %+v", want.MomentumEffects, got.MomentumEffects)
	}
	for i := range want.MomentumEffects {
		if got.MomentumEffects[i] != want.MomentumEffects[i] {
			t.Fatalf("momentum %d: want %+v got %+v", i, want.MomentumEffects[i], got.MomentumEffects[i])
		}
	}
	if len(got.Generators) != len(want.Generators) || len(got.Upgrades) != len(want.Upgrades) {
		t.Fatalf("collection sizes differ: want %+v got %+v", want, got)
	}
	for k, g := range want.Generators {
		if got.Generators[k] != g {
			t.Fatalf("generator %s: want %+v got %+v", k, g, got.Generators[k])
		}
	}
	for k, u := range want.Upgrades {
		if got.Upgrades[k] != u {
			t.Fatalf("upgrade %s: want %+v got %+v", k, u, got.Upgrades[k])
		}
	}
}

func TestJSONFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "save.json")
	store := NewJSONFileStore(path)

	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}

	want := sampleSnapshot()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertSnapshotEqual(t, want, got)

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected only the save file, found %d entries", len(entries))
	}

	if err := store.Delete(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot after delete, got %v", err)
	}
}

func TestJSONFileStoreMalformed(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "save.json")

	cases := map[string]string{
		"garbage":        "{not json",
		"negative count": `{"signal":1,"manualPower":1,"generators":{"drone":{"ownedCount":-1}}}`,
		"negative intel": `{"intel":-4,"manualPower":1}`,
		"null document":  `null`,
		"empty object":   `{}`,
		"partial":        `{"signal":5}`,
		"zero power":     `{"signal":5,"manualPower":0,"savedAtWallClock":1700000000}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if err := os.WriteFile(path, []byte(body), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := NewJSONFileStore(path).Load(ctx)
			if !errors.Is(err, ErrMalformedSnapshot) {
				t.Fatalf("expected ErrMalformedSnapshot, got %v", err)
			}
		})
	}
}

func TestJSONFileStoreUnreadable(t *testing.T) {
	dir := t.TempDir()
	// A directory at the save path cannot be decoded as a file.
	_, err := NewJSONFileStore(dir).Load(context.Background())
	if !errors.Is(err, ErrUnreadableSnapshot) {
		t.Fatalf("expected ErrUnreadableSnapshot, got %v", err)
	}
}

func openTestDB(t *testing.T) *SQLiteSnapshotStore {
	t.Helper()
	db, err := InitSQLite(filepath.Join(t.TempDir(), "foundry.db"))
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteSnapshotStore(db, "default")
}

func TestSQLiteSnapshotStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)

	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}

	want := sampleSnapshot()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertSnapshotEqual(t, want, got)

	// A second save replaces children instead of merging them.
	want.Generators = map[string]GeneratorRecord{"gate": {OwnedCount: 1}}
	want.MomentumEffects = nil
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	assertSnapshotEqual(t, want, got)

	if err := store.Delete(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot after delete, got %v", err)
	}
}

func TestSQLiteSlotsAreIsolated(t *testing.T) {
	ctx := context.Background()
	a := openTestDB(t)
	b := NewSQLiteSnapshotStore(a.db, "other")

	if err := a.Save(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := b.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected other slot empty, got %v", err)
	}
}

func TestSQLiteSaveCancelledContext(t *testing.T) {
	store := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Save(ctx, sampleSnapshot()); err == nil {
		t.Fatalf("expected error on cancelled context")
	}
	if _, err := store.Load(context.Background()); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected nothing persisted, got %v", err)
	}
}

func TestSQLiteEventRepository(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)
	repo := NewSQLiteEventRepository(store.db)

	base := time.Unix(1_700_000_000, 0)
	types := []string{"PING", "VENTURE_RESOLVED", "PING"}
	for i, typ := range types {
		err := repo.Append(ctx, GameEvent{
			ID:        typ + string(rune('a'+i)),
			Seq:       uint64(i + 1),
			SlotID:    "default",
			Timestamp: base.Add(time.Duration(i) * time.Second),
			EventType: typ,
			ActorID:   "player",
			Message:   "msg",
			Payload:   map[string]interface{}{"amount": float64(i)},
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	recent, err := repo.Recent(ctx, "default", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Seq != 2 || recent[1].Seq != 3 {
		t.Fatalf("unexpected recent %+v", recent)
	}
	if recent[1].Payload["amount"] != float64(2) {
		t.Fatalf("payload not restored: %+v", recent[1].Payload)
	}
	if !recent[1].Timestamp.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("timestamp not restored: %v", recent[1].Timestamp)
	}

	pings, err := repo.ByType(ctx, "default", "PING", 0)
	if err != nil {
		t.Fatalf("by type: %v", err)
	}
	if len(pings) != 2 || pings[0].Seq != 1 {
		t.Fatalf("unexpected pings %+v", pings)
	}
}

func TestJSONFileStoreQuarantine(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "save.json")
	body := []byte(`{"signal":5}`)
	if err := os.WriteFile(path, body, 0644); err != nil {
		t.Fatal(err)
	}
	store := NewJSONFileStore(path)

	moved, err := SetAside(ctx, store)
	if err != nil {
		t.Fatalf("quarantine: %v", err)
	}
	kept, err := os.ReadFile(moved)
	if err != nil || string(kept) != string(body) {
		t.Fatalf("expected original bytes at %s, got %q %v", moved, kept, err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected slot emptied, got %v", err)
	}
	if _, err := SetAside(ctx, store); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot on second quarantine, got %v", err)
	}
}

func TestSQLiteSnapshotStoreQuarantine(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)
	want := sampleSnapshot()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	moved, err := SetAside(ctx, store)
	if err != nil {
		t.Fatalf("quarantine: %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected slot emptied, got %v", err)
	}
	got, err := NewSQLiteSnapshotStore(store.db, moved).Load(ctx)
	if err != nil {
		t.Fatalf("load quarantined slot %s: %v", moved, err)
	}
	assertSnapshotEqual(t, want, got)

	// The emptied slot accepts a fresh save.
	if err := store.Save(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("save after quarantine: %v", err)
	}
}

type plainStore struct{}

func (plainStore) Load(context.Context) (*Snapshot, error) { return nil, ErrNoSnapshot }
func (plainStore) Save(context.Context, *Snapshot) error   { return nil }
func (plainStore) Delete(context.Context) error            { return nil }

func TestSetAsideWithoutQuarantine(t *testing.T) {
	if _, err := SetAside(context.Background(), plainStore{}); !errors.Is(err, ErrNoQuarantine) {
		t.Fatalf("expected ErrNoQuarantine, got %v", err)
	}
}
