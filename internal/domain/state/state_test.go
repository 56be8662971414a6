package state

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/HyprPixl/signalfoundry/internal/domain/economy"
	"github.com/HyprPixl/signalfoundry/internal/domain/rules"
)

var start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestNewFreshState(t *testing.T) {
	st := New(economy.DefaultCatalog(), start)
	if st.Signal != 0 || st.Intel != 0 || st.Shards != 0 || st.TotalGenerated != 0 {
		t.Fatalf("expected zeroed currencies: %+v", st)
	}
	if st.ManualPower != 1.0 || st.GlobalBonus != 0.0 {
		t.Fatalf("unexpected modifiers %v %v", st.ManualPower, st.GlobalBonus)
	}
	if !st.LastTick.Equal(start) {
		t.Fatalf("expected LastTick %v got %v", start, st.LastTick)
	}
	if len(st.Generators) != 4 || len(st.Upgrades) != 6 {
		t.Fatalf("expected default catalog entries, got %d/%d", len(st.Generators), len(st.Upgrades))
	}
}

func TestCloneIsDeep(t *testing.T) {
	st := New(economy.DefaultCatalog(), start)
	st.Signal = 5
	st.Generators["drone"].Count = 3
	st.Momentum.Add(0.35, start.Add(time.Minute))

	c := st.Clone()
	c.Signal = 99
	c.Generators["drone"].Count = 42
	c.Upgrades["focused-ping"].Purchased = true
	c.Momentum.Clear()

	if st.Signal != 5 || st.Generators["drone"].Count != 3 {
		t.Fatalf("original mutated through clone")
	}
	if st.Upgrades["focused-ping"].Purchased {
		t.Fatalf("original upgrade mutated through clone")
	}
	if st.Momentum.Len() != 1 {
		t.Fatalf("original momentum mutated through clone")
	}
	if c.Catalog() != st.Catalog() {
		t.Fatalf("expected catalog shared")
	}
}

func TestGlobalMultiplier(t *testing.T) {
	st := New(economy.DefaultCatalog(), start)
	st.GlobalBonus = 0.2
	st.Shards = 2
	st.Intel = 4
	// (1 + 0.2 + 0.24 + 0.2) = 1.64
	if got := st.GlobalMultiplier(start); math.Abs(got-1.64) > 1e-12 {
		t.Fatalf("expected 1.64 got %v", got)
	}
	st.Momentum.Add(0.35, start.Add(45*time.Second))
	if got := st.GlobalMultiplier(start); math.Abs(got-1.64*1.35) > 1e-12 {
		t.Fatalf("expected momentum applied, got %v", got)
	}
}

func TestGlobalMultiplierDecaysAtExpiryBoundaries(t *testing.T) {
	st := New(economy.DefaultCatalog(), start)
	st.Momentum.Add(0.35, start.Add(10*time.Second))
	st.Momentum.Add(0.35, start.Add(20*time.Second))
	permanent := st.PermanentMultiplier()

	prev := st.GlobalMultiplier(start)
	for s := 1; s <= 30; s++ {
		now := start.Add(time.Duration(s) * time.Second)
		got := st.GlobalMultiplier(now)
		switch s {
		case 10, 20:
			if !(got < prev) {
				t.Fatalf("expected drop at %ds: %v -> %v", s, prev, got)
			}
		default:
			if got != prev {
				t.Fatalf("expected constant multiplier at %ds: %v -> %v", s, prev, got)
			}
		}
		prev = got
	}
	if prev != permanent {
		t.Fatalf("expected permanent-only value %v got %v", permanent, prev)
	}
}

func TestProductionRate(t *testing.T) {
	st := New(economy.DefaultCatalog(), start)
	st.Generators["drone"].Count = 3
	st.Generators["array"].Count = 1
	st.Generators["array"].Bonus = 0.5
	// 3*1 + 1*6*1.5 = 12
	if got := st.ProductionRate(start); math.Abs(got-12) > 1e-12 {
		t.Fatalf("expected 12 got %v", got)
	}
}

func TestApplyEffect(t *testing.T) {
	st := New(economy.DefaultCatalog(), start)
	if err := st.ApplyEffect(economy.ManualPowerBonus{Delta: 2}); err != nil {
		t.Fatal(err)
	}
	if err := st.ApplyEffect(economy.GlobalBonus{Delta: 0.2}); err != nil {
		t.Fatal(err)
	}
	if err := st.ApplyEffect(economy.GeneratorRateBonus{Generator: "drone", Delta: 0.5}); err != nil {
		t.Fatal(err)
	}
	if st.ManualPower != 3 || st.GlobalBonus != 0.2 || st.Generators["drone"].Bonus != 0.5 {
		t.Fatalf("unexpected state after effects: %+v drone=%+v", st, st.Generators["drone"])
	}

	err := st.ApplyEffect(economy.GeneratorRateBonus{Generator: "ghost", Delta: 1})
	if !errors.Is(err, rules.ErrUnknownGenerator) {
		t.Fatalf("expected ErrUnknownGenerator got %v", err)
	}
}

func TestOrderedGeneratorsFollowCatalog(t *testing.T) {
	st := New(economy.DefaultCatalog(), start)
	gens := st.OrderedGenerators()
	want := []string{"drone", "array", "archive", "gate"}
	for i, g := range gens {
		if g.Key != want[i] {
			t.Fatalf("position %d: expected %s got %s", i, want[i], g.Key)
		}
	}
	if len(st.OrderedUpgrades()) != 6 {
		t.Fatalf("expected 6 ordered upgrades")
	}
}
