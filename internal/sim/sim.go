// Package sim drives an engine headlessly on a fake clock with a greedy
// player, to check catalog balance without waiting in real time.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/HyprPixl/signalfoundry/internal/domain/economy"
	"github.com/HyprPixl/signalfoundry/internal/domain/rules"
	"github.com/HyprPixl/signalfoundry/internal/engine"
	"github.com/HyprPixl/signalfoundry/internal/platform/clock"
	"github.com/HyprPixl/signalfoundry/internal/platform/logger"
)

// Config describes one simulated session.
type Config struct {
	Catalog  *economy.Catalog
	Duration time.Duration
	Step     time.Duration
	Seed     uint64

	// PingsPerStep is the manual ping amount issued every step.
	PingsPerStep int
	// IgniteAt ignites once an ignite would yield at least this many shards.
	// Zero never ignites.
	IgniteAt int
	// VentureReserve runs a venture whenever signal left after shopping
	// exceeds the venture cost by this factor. Zero disables ventures.
	VentureReserve float64

	Logger *logger.Logger
}

// Milestone marks the first time something happened in the session.
type Milestone struct {
	Name   string        `json:"name"`
	At     time.Duration `json:"at"`
	Signal float64       `json:"signal"`
}

// Result summarizes a finished session.
type Result struct {
	Elapsed        time.Duration  `json:"elapsed"`
	Steps          int            `json:"steps"`
	Signal         float64        `json:"signal"`
	Rate           float64        `json:"rate"`
	TotalGenerated float64        `json:"total_generated"`
	Intel          int            `json:"intel"`
	Shards         int            `json:"shards"`
	Ignitions      int            `json:"ignitions"`
	Purchases      int            `json:"purchases"`
	Upgrades       int            `json:"upgrades"`
	Ventures       int            `json:"ventures"`
	Owned          map[string]int `json:"owned"`
	Milestones     []Milestone    `json:"milestones"`
}

func (c Config) validate() error {
	if c.Duration <= 0 {
		return errors.New("sim: duration must be positive")
	}
	if c.Step <= 0 {
		return errors.New("sim: step must be positive")
	}
	if c.PingsPerStep < 0 || c.IgniteAt < 0 || c.VentureReserve < 0 {
		return errors.New("sim: ping, ignite and venture settings must not be negative")
	}
	return nil
}

// Run plays the session to completion or until ctx is cancelled.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}
	if cfg.Catalog == nil {
		cfg.Catalog = economy.DefaultCatalog()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	eng := engine.NewEngine(cfg.Catalog,
		engine.WithClock(fake),
		engine.WithSeed(cfg.Seed),
		engine.WithLogger(log),
		engine.WithActor("sim"),
	)

	p := &player{cfg: cfg, eng: eng, seen: map[string]bool{}}
	for p.elapsed < cfg.Duration {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		fake.Advance(cfg.Step)
		p.elapsed += cfg.Step
		p.steps++
		eng.Tick()
		if err := p.step(); err != nil {
			return Result{}, err
		}
	}

	s := eng.Status()
	res := Result{
		Elapsed:        p.elapsed,
		Steps:          p.steps,
		Signal:         s.Signal,
		Rate:           s.Rate,
		TotalGenerated: s.TotalGenerated,
		Intel:          s.Intel,
		Shards:         s.Shards,
		Ignitions:      p.ignitions,
		Purchases:      p.purchases,
		Upgrades:       p.upgrades,
		Ventures:       p.ventures,
		Owned:          map[string]int{},
		Milestones:     p.milestones,
	}
	for _, g := range s.Generators {
		res.Owned[g.Key] = g.Owned
	}
	log.Info("simulation finished", "elapsed", res.Elapsed.String(), "total_generated", res.TotalGenerated,
		"shards", res.Shards, "purchases", res.Purchases)
	return res, nil
}

type player struct {
	cfg        Config
	eng        *engine.Engine
	elapsed    time.Duration
	steps      int
	ignitions  int
	purchases  int
	upgrades   int
	ventures   int
	seen       map[string]bool
	milestones []Milestone
}

func (p *player) mark(name string, signal float64) {
	if p.seen[name] {
		return
	}
	p.seen[name] = true
	p.milestones = append(p.milestones, Milestone{Name: name, At: p.elapsed, Signal: signal})
}

// step plays one greedy turn: ping, ignite if worthwhile, buy every
// affordable upgrade, then spend the rest on the best rate per cost.
func (p *player) step() error {
	if p.cfg.PingsPerStep > 0 {
		if _, err := p.eng.Ping(p.cfg.PingsPerStep); err != nil {
			return fmt.Errorf("ping: %w", err)
		}
	}

	s := p.eng.Status()
	for _, g := range s.Generators {
		p.mark("unlock:"+g.Key, s.Signal)
	}

	if p.cfg.IgniteAt > 0 && s.ShardEstimate >= p.cfg.IgniteAt {
		out, err := p.eng.Ignite()
		if err != nil {
			return fmt.Errorf("ignite: %w", err)
		}
		p.ignitions++
		p.mark("ignite", float64(out.Shards))
		return nil
	}

	upgrades := append([]engine.UpgradeStatus(nil), s.Upgrades...)
	sort.SliceStable(upgrades, func(i, j int) bool { return upgrades[i].Cost < upgrades[j].Cost })
	for _, u := range upgrades {
		if u.Purchased {
			continue
		}
		_, err := p.eng.BuyUpgrade(u.Key)
		if errors.Is(err, rules.ErrInsufficientFunds) {
			break
		}
		if err != nil {
			return fmt.Errorf("upgrade %s: %w", u.Key, err)
		}
		p.upgrades++
		p.mark("upgrade:"+u.Key, s.Signal)
	}

	for {
		key, ok := p.bestGenerator()
		if !ok {
			break
		}
		if _, err := p.eng.BuyGenerator(key, 1); err != nil {
			if errors.Is(err, rules.ErrInsufficientFunds) {
				break
			}
			return fmt.Errorf("buy %s: %w", key, err)
		}
		p.purchases++
	}

	if p.cfg.VentureReserve > 0 {
		st := p.eng.Status()
		if st.Signal >= rules.VentureCost*p.cfg.VentureReserve {
			if _, err := p.eng.Venture(); err != nil {
				return fmt.Errorf("venture: %w", err)
			}
			p.ventures++
			p.mark("venture", st.Signal)
		}
	}
	return nil
}

// bestGenerator picks the affordable generator with the most rate per cost.
func (p *player) bestGenerator() (string, bool) {
	s := p.eng.Status()
	var (
		best  string
		score float64
	)
	for _, g := range s.Generators {
		if g.NextCost > s.Signal || g.NextCost <= 0 {
			continue
		}
		if v := g.RatePerUnit / g.NextCost; best == "" || v > score {
			best, score = g.Key, v
		}
	}
	return best, best != ""
}
