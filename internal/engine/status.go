package engine

import (
	"time"

	"github.com/HyprPixl/signalfoundry/internal/domain/rules"
	"github.com/HyprPixl/signalfoundry/internal/domain/state"
)

// Status is a read-only report of the session.
type Status struct {
	Signal           float64           `json:"signal"`
	Rate             float64           `json:"rate"`
	Intel            int               `json:"intel"`
	Shards           int               `json:"shards"`
	TotalGenerated   float64           `json:"total_generated"`
	ManualPing       float64           `json:"manual_ping"`
	GlobalMultiplier float64           `json:"global_multiplier"`
	MomentumPercent  float64           `json:"momentum_percent"`
	ShardEstimate    int               `json:"shard_estimate"`
	Generators       []GeneratorStatus `json:"generators"`
	Upgrades         []UpgradeStatus   `json:"upgrades"`
}

// GeneratorStatus describes a visible generator.
type GeneratorStatus struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Owned       int     `json:"owned"`
	RatePerUnit float64 `json:"rate_per_unit"`
	NextCost    float64 `json:"next_cost"`
}

type UpgradeStatus struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
	Effect      string  `json:"effect"`
	Purchased   bool    `json:"purchased"`
}

// Status reconciles production and describes the resulting state.
func (e *Engine) Status() Status {
	var s Status
	e.mutate("status", func(st *state.GameState, now time.Time) (*state.GameState, error) {
		reconcile(st, now)
		s = buildStatus(st, now)
		return st, nil
	})
	return s
}

func buildStatus(st *state.GameState, now time.Time) Status {
	momentum := st.Momentum.Active(now)
	mult := st.GlobalMultiplier(now)

	s := Status{
		Signal:           st.Signal,
		Rate:             st.ProductionRate(now),
		Intel:            st.Intel,
		Shards:           st.Shards,
		TotalGenerated:   st.TotalGenerated,
		ManualPing:       st.ManualPower * mult,
		GlobalMultiplier: mult,
		MomentumPercent:  momentum * 100,
		ShardEstimate:    rules.ShardsFor(st.TotalGenerated),
	}
	for _, g := range st.OrderedGenerators() {
		if !g.Unlocked(st.Signal) {
			continue
		}
		s.Generators = append(s.Generators, GeneratorStatus{
			Key:         g.Key,
			Name:        g.Name,
			Description: g.Description,
			Owned:       g.Count,
			RatePerUnit: g.RatePerUnit(mult),
			NextCost:    g.CostFor(1),
		})
	}
	for _, u := range st.OrderedUpgrades() {
		s.Upgrades = append(s.Upgrades, UpgradeStatus{
			Key:         u.Key,
			Name:        u.Name,
			Description: u.Description,
			Cost:        u.Cost,
			Effect:      u.Effect.String(),
			Purchased:   u.Purchased,
		})
	}
	return s
}
