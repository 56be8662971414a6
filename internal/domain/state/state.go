// Package state defines the GameState aggregate root of a Signal Foundry
// session.
// This package is PURE and must NOT import any infrastructure packages.
package state

import (
	"fmt"
	"time"

	"github.com/HyprPixl/signalfoundry/internal/domain/economy"
	"github.com/HyprPixl/signalfoundry/internal/domain/momentum"
	"github.com/HyprPixl/signalfoundry/internal/domain/rules"
)

// GameState holds every mutable field of a run plus the persistent shards.
type GameState struct {
	Signal         float64 `json:"signal"`
	Intel          int     `json:"intel"`
	Shards         int     `json:"shards"`
	TotalGenerated float64 `json:"total_generated"`
	ManualPower    float64 `json:"manual_power"`
	GlobalBonus    float64 `json:"global_bonus"`

	// LastTick is a monotonic-clock reading of the last reconciliation.
	LastTick time.Time `json:"-"`

	Generators map[string]*economy.Generator `json:"-"`
	Upgrades   map[string]*economy.Upgrade   `json:"-"`
	Momentum   momentum.Ledger               `json:"-"`

	catalog *economy.Catalog
}

// New creates a fresh run from the catalog with zeroed currencies.
func New(catalog *economy.Catalog, now time.Time) *GameState {
	st := &GameState{
		ManualPower: rules.InitialManualPower,
		GlobalBonus: rules.InitialGlobalBonus,
		LastTick:    now,
		Generators:  make(map[string]*economy.Generator),
		Upgrades:    make(map[string]*economy.Upgrade),
		catalog:     catalog,
	}
	for _, g := range catalog.Generators() {
		g := g
		st.Generators[g.Key] = &g
	}
	for _, u := range catalog.Upgrades() {
		u := u
		st.Upgrades[u.Key] = &u
	}
	return st
}

// Catalog returns the static definitions the state was built from.
func (s *GameState) Catalog() *economy.Catalog {
	return s.catalog
}

// Clone returns a deep copy sharing only the immutable catalog.
func (s *GameState) Clone() *GameState {
	c := *s
	c.Generators = make(map[string]*economy.Generator, len(s.Generators))
	for k, g := range s.Generators {
		cp := *g
		c.Generators[k] = &cp
	}
	c.Upgrades = make(map[string]*economy.Upgrade, len(s.Upgrades))
	for k, u := range s.Upgrades {
		cp := *u
		c.Upgrades[k] = &cp
	}
	c.Momentum = s.Momentum.Clone()
	return &c
}

// OrderedGenerators returns the generators in catalog order.
func (s *GameState) OrderedGenerators() []*economy.Generator {
	out := make([]*economy.Generator, 0, len(s.Generators))
	for _, key := range s.catalog.GeneratorKeys() {
		if g, ok := s.Generators[key]; ok {
			out = append(out, g)
		}
	}
	return out
}

// OrderedUpgrades returns the upgrades in catalog order.
func (s *GameState) OrderedUpgrades() []*economy.Upgrade {
	out := make([]*economy.Upgrade, 0, len(s.Upgrades))
	for _, key := range s.catalog.UpgradeKeys() {
		if u, ok := s.Upgrades[key]; ok {
			out = append(out, u)
		}
	}
	return out
}

// PermanentMultiplier is the global multiplier without momentum.
func (s *GameState) PermanentMultiplier() float64 {
	return 1 + s.GlobalBonus + rules.ShardBonus*float64(s.Shards) + rules.IntelBonus*float64(s.Intel)
}

// GlobalMultiplier combines the permanent modifiers with the momentum still
// active at now. Expired momentum is pruned.
func (s *GameState) GlobalMultiplier(now time.Time) float64 {
	return s.PermanentMultiplier() * (1 + s.Momentum.Active(now))
}

// ProductionRate is the total signal per second at now.
func (s *GameState) ProductionRate(now time.Time) float64 {
	mult := s.GlobalMultiplier(now)
	rate := 0.0
	for _, g := range s.OrderedGenerators() {
		rate += g.TotalRate(mult)
	}
	return rate
}

// Credit adds produced signal to the balance and the lifetime counter.
func (s *GameState) Credit(amount float64) {
	s.Signal += amount
	s.TotalGenerated += amount
}

// ApplyEffect applies a purchased upgrade's effect.
func (s *GameState) ApplyEffect(effect economy.Effect) error {
	switch e := effect.(type) {
	case economy.ManualPowerBonus:
		s.ManualPower += e.Delta
	case economy.GlobalBonus:
		s.GlobalBonus += e.Delta
	case economy.GeneratorRateBonus:
		g, ok := s.Generators[e.Generator]
		if !ok {
			return fmt.Errorf("%w: %s", rules.ErrUnknownGenerator, e.Generator)
		}
		g.Bonus += e.Delta
	default:
		return fmt.Errorf("unsupported effect %T", effect)
	}
	return nil
}
