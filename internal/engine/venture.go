package engine

import (
	"fmt"
	"time"

	"github.com/HyprPixl/signalfoundry/internal/domain/economy"
	"github.com/HyprPixl/signalfoundry/internal/domain/rules"
	"github.com/HyprPixl/signalfoundry/internal/domain/state"
	"github.com/HyprPixl/signalfoundry/internal/events"
)

// VentureKind identifies which branch of the outcome table was drawn.
type VentureKind string

const (
	VentureIntel    VentureKind = "intel"
	VentureMomentum VentureKind = "momentum"
	VentureLoss     VentureKind = "loss"
)

// VentureOutcome is the result of a resolved venture. Signal is the bonus
// gained for momentum outcomes and the amount actually lost for losses.
type VentureOutcome struct {
	Kind            VentureKind `json:"kind"`
	Roll            float64     `json:"roll"`
	Intel           int         `json:"intel,omitempty"`
	Signal          float64     `json:"signal,omitempty"`
	MomentumBonus   float64     `json:"momentum_bonus,omitempty"`
	MomentumSeconds float64     `json:"momentum_seconds,omitempty"`
	Message         string      `json:"message"`
}

// uniformInt draws an integer in [lo, hi].
func uniformInt(r Random, lo, hi int) int {
	return lo + r.IntN(hi-lo+1)
}

// Venture spends a fixed amount of signal on a random outcome.
func (e *Engine) Venture() (VentureOutcome, error) {
	var out VentureOutcome
	err := e.mutate("venture", func(st *state.GameState, now time.Time) (*state.GameState, error) {
		reconcile(st, now)
		if st.Signal < rules.VentureCost {
			return nil, &rules.InsufficientFundsError{Cost: rules.VentureCost, Available: st.Signal}
		}
		st.Signal -= rules.VentureCost
		out = e.resolveVenture(st, now)
		return st, nil
	})
	if err != nil {
		return VentureOutcome{}, err
	}
	e.record(events.EventTypeVenture, out.Message, map[string]interface{}{
		"kind": string(out.Kind), "roll": out.Roll, "intel": out.Intel, "signal": out.Signal,
	})
	return out, nil
}

func (e *Engine) resolveVenture(st *state.GameState, now time.Time) VentureOutcome {
	roll := e.rng.Float64()
	switch {
	case roll < rules.VentureIntelChance:
		gain := uniformInt(e.rng, rules.VentureIntelMin, rules.VentureIntelMax)
		st.Intel += gain
		return VentureOutcome{
			Kind:    VentureIntel,
			Roll:    roll,
			Intel:   gain,
			Message: fmt.Sprintf("Your prospectors find encrypted glyphs. Intel +%d.", gain),
		}
	case roll < rules.VentureMomentumChance:
		st.Momentum.Add(rules.VentureMomentumBonus, now.Add(rules.VentureMomentumDuration))
		bonus := float64(uniformInt(e.rng, rules.VentureSignalMin, rules.VentureSignalMax))
		st.Credit(bonus)
		return VentureOutcome{
			Kind:            VentureMomentum,
			Roll:            roll,
			Signal:          bonus,
			MomentumBonus:   rules.VentureMomentumBonus,
			MomentumSeconds: rules.VentureMomentumDuration.Seconds(),
			Message: fmt.Sprintf("A collapsing conduit supercharges the beacon! +%s signal, +%.0f%% production for %s.",
				economy.FormatNumber(bonus), rules.VentureMomentumBonus*100, rules.VentureMomentumDuration),
		}
	default:
		drawn := float64(uniformInt(e.rng, rules.VentureSignalMin, rules.VentureSignalMax))
		lost := min(drawn, st.Signal)
		st.Signal -= lost
		return VentureOutcome{
			Kind:    VentureLoss,
			Roll:    roll,
			Signal:  lost,
			Message: "Venture fizzles, an empty husk. Crew morale dips, but they learn from it.",
		}
	}
}
