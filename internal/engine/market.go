package engine

import (
	"fmt"
	"time"

	"github.com/HyprPixl/signalfoundry/internal/domain/economy"
	"github.com/HyprPixl/signalfoundry/internal/domain/rules"
	"github.com/HyprPixl/signalfoundry/internal/domain/state"
	"github.com/HyprPixl/signalfoundry/internal/events"
)

// Purchase is the result of a successful generator or upgrade purchase.
type Purchase struct {
	Key     string  `json:"key"`
	Name    string  `json:"name"`
	Amount  int     `json:"amount"`
	Cost    float64 `json:"cost"`
	Owned   int     `json:"owned,omitempty"`
	Effect  string  `json:"effect,omitempty"`
	Message string  `json:"message"`
}

// BuyGenerator buys amount units of the generator. Cost deduction and the
// count increment happen together or not at all.
func (e *Engine) BuyGenerator(key string, amount int) (Purchase, error) {
	if amount < 1 {
		e.metrics.RecordOperation("buy_generator", rules.ErrInvalidAmount)
		return Purchase{}, fmt.Errorf("%w: buy amount %d, must be at least 1", rules.ErrInvalidAmount, amount)
	}
	return e.buyGenerator(key, func(*economy.Generator, float64) int { return amount })
}

// BuyMaxGenerator buys as many units of the generator as the balance covers.
// With nothing affordable it fails like a one-unit purchase.
func (e *Engine) BuyMaxGenerator(key string) (Purchase, error) {
	return e.buyGenerator(key, func(g *economy.Generator, signal float64) int {
		if n := g.MaxAffordable(signal); n > 0 {
			return n
		}
		return 1
	})
}

func (e *Engine) buyGenerator(key string, amountFor func(g *economy.Generator, signal float64) int) (Purchase, error) {
	var p Purchase
	err := e.mutate("buy_generator", func(st *state.GameState, now time.Time) (*state.GameState, error) {
		g, ok := st.Generators[key]
		if !ok {
			return nil, fmt.Errorf("%w: %q", rules.ErrUnknownGenerator, key)
		}
		if !g.Unlocked(st.Signal) {
			return nil, fmt.Errorf("%w: %s is still buried beneath debris, generate more signal to find it", rules.ErrGeneratorLocked, g.Name)
		}
		reconcile(st, now)

		amount := amountFor(g, st.Signal)
		cost := g.CostFor(amount)
		if st.Signal < cost {
			return nil, &rules.InsufficientFundsError{Cost: cost, Available: st.Signal}
		}
		st.Signal -= cost
		g.Count += amount

		p = Purchase{
			Key:     g.Key,
			Name:    g.Name,
			Amount:  amount,
			Cost:    cost,
			Owned:   g.Count,
			Message: fmt.Sprintf("Purchased %dx %s.", amount, g.Name),
		}
		return st, nil
	})
	if err != nil {
		return Purchase{}, err
	}
	e.record(events.EventTypeGeneratorBought, p.Message, map[string]interface{}{
		"key": p.Key, "amount": p.Amount, "cost": p.Cost, "owned": p.Owned,
	})
	return p, nil
}

// MaxAffordable reports how many units of the generator the current balance,
// production included, would buy. Locked or unknown generators report 0.
func (e *Engine) MaxAffordable(key string) int {
	st := e.State()
	g, ok := st.Generators[key]
	if !ok || !g.Unlocked(st.Signal) {
		return 0
	}
	reconcile(st, e.clock.Now())
	return g.MaxAffordable(st.Signal)
}

// BuyUpgrade purchases a one-time upgrade and applies its effect once.
func (e *Engine) BuyUpgrade(key string) (Purchase, error) {
	var p Purchase
	err := e.mutate("buy_upgrade", func(st *state.GameState, now time.Time) (*state.GameState, error) {
		u, ok := st.Upgrades[key]
		if !ok {
			return nil, fmt.Errorf("%w: %q", rules.ErrUnknownUpgrade, key)
		}
		if u.Purchased {
			return nil, fmt.Errorf("%w: %s is already integrated", rules.ErrAlreadyPurchased, u.Name)
		}
		reconcile(st, now)

		if st.Signal < u.Cost {
			return nil, &rules.InsufficientFundsError{Cost: u.Cost, Available: st.Signal}
		}
		st.Signal -= u.Cost
		u.Purchased = true
		if err := st.ApplyEffect(u.Effect); err != nil {
			return nil, err
		}

		p = Purchase{
			Key:     u.Key,
			Name:    u.Name,
			Amount:  1,
			Cost:    u.Cost,
			Effect:  u.Effect.String(),
			Message: fmt.Sprintf("Upgrade applied: %s.", u.Name),
		}
		return st, nil
	})
	if err != nil {
		return Purchase{}, err
	}
	e.record(events.EventTypeUpgradeBought, p.Message, map[string]interface{}{
		"key": p.Key, "cost": p.Cost, "effect": p.Effect,
	})
	return p, nil
}
