package momentum

import (
	"math"
	"testing"
	"time"
)

func TestActivePrunesExpired(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var l Ledger
	l.Add(0.35, start.Add(45*time.Second))
	l.Add(0.35, start.Add(90*time.Second))

	if got := l.Active(start); math.Abs(got-0.70) > 1e-12 {
		t.Fatalf("expected stacked bonus 0.70 got %v", got)
	}
	if got := l.Active(start.Add(45 * time.Second)); math.Abs(got-0.35) > 1e-12 {
		t.Fatalf("expected effect expiring exactly now to be inactive, got %v", got)
	}
	if l.Len() != 1 {
		t.Fatalf("expected 1 effect after pruning got %d", l.Len())
	}
	if got := l.Active(start.Add(2 * time.Minute)); got != 0 {
		t.Fatalf("expected no bonus after expiry got %v", got)
	}
	if l.Len() != 0 {
		t.Fatalf("expected empty ledger got %d", l.Len())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLedger(Effect{Bonus: 0.35, Expiry: start.Add(time.Second)})
	c := l.Clone()
	c.Add(0.5, start.Add(time.Hour))
	c.Active(start.Add(2 * time.Second))

	if l.Len() != 1 {
		t.Fatalf("expected original untouched, got %d effects", l.Len())
	}
	if e := l.Effects()[0]; e.Bonus != 0.35 {
		t.Fatalf("expected original bonus 0.35 got %v", e.Bonus)
	}
}

func TestClear(t *testing.T) {
	l := NewLedger(Effect{Bonus: 1, Expiry: time.Now().Add(time.Hour)})
	l.Clear()
	if l.Len() != 0 || l.Effects() != nil {
		t.Fatalf("expected cleared ledger")
	}
}
