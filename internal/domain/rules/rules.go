// Package rules contains the fixed balance constants and error kinds of the
// Signal Foundry economy.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import "time"

const (
	// IgniteThreshold is the lifetime signal needed to ignite the beacon.
	IgniteThreshold = 15_000.0

	// ShardBonus is the permanent production bonus granted per star shard.
	ShardBonus = 0.12
	// IntelBonus is the permanent production bonus granted per intel.
	IntelBonus = 0.05

	// InitialManualPower is the manual ping multiplier of a fresh run.
	InitialManualPower = 1.0
	// InitialGlobalBonus is the additive global modifier of a fresh run.
	InitialGlobalBonus = 0.0
)

// Venture balance.
const (
	VentureCost = 150.0

	// Cumulative roll boundaries of the venture outcome table.
	VentureIntelChance    = 0.70
	VentureMomentumChance = 0.90

	VentureIntelMin = 1
	VentureIntelMax = 3

	VentureMomentumBonus    = 0.35
	VentureMomentumDuration = 45 * time.Second

	VentureSignalMin = 50
	VentureSignalMax = 120
)

// ShardsFor returns the star shards an ignite yields for the given lifetime
// production. It returns 0 below the threshold.
func ShardsFor(totalGenerated float64) int {
	if totalGenerated < IgniteThreshold {
		return 0
	}
	shards := int(totalGenerated / IgniteThreshold)
	if shards < 1 {
		shards = 1
	}
	return shards
}
