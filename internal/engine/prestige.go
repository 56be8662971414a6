package engine

import (
	"fmt"
	"time"

	"github.com/HyprPixl/signalfoundry/internal/domain/rules"
	"github.com/HyprPixl/signalfoundry/internal/domain/state"
	"github.com/HyprPixl/signalfoundry/internal/events"
)

// IgniteOutcome is the result of a successful prestige.
type IgniteOutcome struct {
	ShardsGained int    `json:"shards_gained"`
	Shards       int    `json:"shards"`
	Message      string `json:"message"`
}

// Ignite resets the run in exchange for star shards once lifetime production
// reaches the threshold. Shards are the only field carried into the new run.
func (e *Engine) Ignite() (IgniteOutcome, error) {
	var out IgniteOutcome
	err := e.mutate("ignite", func(st *state.GameState, now time.Time) (*state.GameState, error) {
		reconcile(st, now)
		if st.TotalGenerated < rules.IgniteThreshold {
			return nil, &rules.PrestigeNotReadyError{Shortfall: rules.IgniteThreshold - st.TotalGenerated}
		}

		gained := rules.ShardsFor(st.TotalGenerated)
		next := state.New(st.Catalog(), now)
		next.Shards = st.Shards + gained

		out = IgniteOutcome{
			ShardsGained: gained,
			Shards:       next.Shards,
			Message: fmt.Sprintf("The beacon ignites, resetting your rig but seeding %d star shard(s)! "+
				"Each shard grants +%.0f%% permanent production.", gained, rules.ShardBonus*100),
		}
		return next, nil
	})
	if err != nil {
		return IgniteOutcome{}, err
	}
	e.record(events.EventTypeIgnite, out.Message, map[string]interface{}{
		"shards_gained": out.ShardsGained, "shards": out.Shards,
	})
	return out, nil
}

// EstimateShards reports the shards an ignite would yield right now.
func (e *Engine) EstimateShards() int {
	st := e.State()
	reconcile(st, e.clock.Now())
	return rules.ShardsFor(st.TotalGenerated)
}
