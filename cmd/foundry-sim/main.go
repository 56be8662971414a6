// Package main runs a headless greedy session against the catalog and
// reports how fast the economy progresses.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/HyprPixl/signalfoundry/internal/domain/economy"
	"github.com/HyprPixl/signalfoundry/internal/platform/config"
	"github.com/HyprPixl/signalfoundry/internal/platform/logger"
	"github.com/HyprPixl/signalfoundry/internal/sim"
)

func main() {
	duration := flag.Duration("duration", 2*time.Hour, "Simulated session length")
	step := flag.Duration("step", time.Second, "Simulated time per player turn")
	pings := flag.Int("pings", 1, "Manual ping amount per turn")
	igniteAt := flag.Int("ignite-at", 1, "Ignite once it would yield this many shards (0 never)")
	venture := flag.Float64("venture-reserve", 0, "Venture when signal exceeds this many venture costs (0 never)")
	asJSON := flag.Bool("json", false, "Print the result as JSON")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(os.Stderr, logger.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	catalog, err := cfg.LoadCatalog()
	if err != nil {
		log.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	res, err := sim.Run(ctx, sim.Config{
		Catalog:        catalog,
		Duration:       *duration,
		Step:           *step,
		Seed:           cfg.Seed,
		PingsPerStep:   *pings,
		IgniteAt:       *igniteAt,
		VentureReserve: *venture,
		Logger:         log,
	})
	if err != nil {
		log.Error("simulation failed", "error", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(res)
		return
	}

	fmt.Printf("simulated %v in %d turns\n", res.Elapsed, res.Steps)
	fmt.Printf("  signal %s  rate %s/s  lifetime %s\n",
		economy.FormatNumber(res.Signal), economy.FormatNumber(res.Rate), economy.FormatNumber(res.TotalGenerated))
	fmt.Printf("  intel %d  shards %d  ignitions %d\n", res.Intel, res.Shards, res.Ignitions)
	fmt.Printf("  purchases %d  upgrades %d  ventures %d\n", res.Purchases, res.Upgrades, res.Ventures)
	fmt.Println("milestones")
	for _, m := range res.Milestones {
		fmt.Printf("  %-28s at %-10v signal %s\n", m.Name, m.At, economy.FormatNumber(m.Signal))
	}
}
