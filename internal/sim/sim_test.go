package sim

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestRunIsDeterministic(t *testing.T) {
	cfg := Config{Duration: 20 * time.Minute, Step: time.Second, PingsPerStep: 1, Seed: 99, VentureReserve: 3}
	a, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different sessions:\n%+v\n%+v", a, b)
	}
}

func TestRunMakesProgress(t *testing.T) {
	res, err := Run(context.Background(), Config{Duration: 30 * time.Minute, Step: time.Second, PingsPerStep: 1})
	if err != nil {
		t.Fatal(err)
	}
	if res.Steps != 1800 || res.Elapsed != 30*time.Minute {
		t.Fatalf("unexpected step accounting %d %v", res.Steps, res.Elapsed)
	}
	if res.Purchases == 0 || res.Owned["drone"] == 0 {
		t.Fatalf("greedy player bought nothing: %+v", res)
	}
	if res.TotalGenerated <= 1800 {
		t.Fatalf("expected production beyond manual pings, got %.1f", res.TotalGenerated)
	}
	if len(res.Milestones) == 0 || res.Milestones[0].Name != "unlock:drone" {
		t.Fatalf("expected drone unlock as first milestone, got %+v", res.Milestones)
	}
}

func TestRunIgnites(t *testing.T) {
	res, err := Run(context.Background(), Config{Duration: 3 * time.Hour, Step: 5 * time.Second, PingsPerStep: 5, IgniteAt: 1})
	if err != nil {
		t.Fatal(err)
	}
	if res.Ignitions == 0 || res.Shards == 0 {
		t.Fatalf("expected at least one ignition, got %+v", res)
	}
}

func TestRunWithoutIncomeStaysEmpty(t *testing.T) {
	res, err := Run(context.Background(), Config{Duration: time.Minute, Step: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if res.Signal != 0 || res.TotalGenerated != 0 || res.Purchases != 0 {
		t.Fatalf("expected an idle session, got %+v", res)
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	for _, cfg := range []Config{
		{Duration: 0, Step: time.Second},
		{Duration: time.Minute, Step: 0},
		{Duration: time.Minute, Step: time.Second, PingsPerStep: -1},
	} {
		if _, err := Run(context.Background(), cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, Config{Duration: time.Hour, Step: time.Second, PingsPerStep: 1}); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
