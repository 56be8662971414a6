// Package economy defines the static catalog of the Signal Foundry economy:
// passive generators with geometric cost scaling and one-time upgrades.
// This package is PURE and must NOT import any infrastructure packages.
package economy

import "math"

// Generator is a passive signal producer. The definition fields come from the
// catalog; Count and Bonus are the run-scoped part of its state.
type Generator struct {
	Key         string
	Name        string
	Description string
	BaseRate    float64 // signal per second per unit
	BaseCost    float64
	Scaling     float64 // cost multiplier per owned unit, always > 1
	UnlocksAt   float64 // signal needed before the generator is revealed

	Count int
	Bonus float64 // additive rate bonus (0.2 = +20%)
}

// Unlocked reports whether the generator is visible for the given signal.
// Owning at least one unit keeps it visible.
func (g Generator) Unlocked(signal float64) bool {
	return signal >= g.UnlocksAt || g.Count > 0
}

// RatePerUnit is the production of a single unit under the given global
// multiplier.
func (g Generator) RatePerUnit(globalMultiplier float64) float64 {
	return g.BaseRate * (1 + g.Bonus) * globalMultiplier
}

// TotalRate is the production of every owned unit.
func (g Generator) TotalRate(globalMultiplier float64) float64 {
	return float64(g.Count) * g.RatePerUnit(globalMultiplier)
}

// CostFor returns the total price of buying amount more units given the units
// already owned. The n-th additional unit costs BaseCost*Scaling^(Count+n-1).
func (g Generator) CostFor(amount int) float64 {
	if amount <= 0 {
		return 0
	}
	start := math.Pow(g.Scaling, float64(g.Count))
	numerator := math.Pow(g.Scaling, float64(amount)) - 1
	return g.BaseCost * start * numerator / (g.Scaling - 1)
}

// MaxAffordable returns the largest amount whose CostFor fits the budget.
func (g Generator) MaxAffordable(budget float64) int {
	if budget < g.CostFor(1) {
		return 0
	}
	start := g.BaseCost * math.Pow(g.Scaling, float64(g.Count))
	n := int(math.Floor(math.Log(budget*(g.Scaling-1)/start+1) / math.Log(g.Scaling)))
	if n < 1 {
		n = 1
	}
	// The closed form can be off by one either way through rounding.
	for n > 1 && g.CostFor(n) > budget {
		n--
	}
	for g.CostFor(n+1) <= budget {
		n++
	}
	return n
}
