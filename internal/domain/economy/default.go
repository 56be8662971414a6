package economy

// DefaultGenerators are the beacon's stock producers.
var DefaultGenerators = []Generator{
	{
		Key:         "drone",
		Name:        "Scavenger Drone",
		Description: "Autonomous collectors comb the wreckage for stray signal.",
		BaseRate:    1.0,
		BaseCost:    10,
		Scaling:     1.12,
		UnlocksAt:   0,
	},
	{
		Key:         "array",
		Name:        "Antenna Array",
		Description: "Amplifies whispers from the void into clean bandwidth.",
		BaseRate:    6.0,
		BaseCost:    75,
		Scaling:     1.15,
		UnlocksAt:   60,
	},
	{
		Key:         "archive",
		Name:        "Deep Archive",
		Description: "Ancient cores decode buried transmissions in parallel.",
		BaseRate:    32.0,
		BaseCost:    450,
		Scaling:     1.17,
		UnlocksAt:   350,
	},
	{
		Key:         "gate",
		Name:        "Beacon Gate",
		Description: "Rings the entire station, resonating with distant stars.",
		BaseRate:    140.0,
		BaseCost:    1900,
		Scaling:     1.2,
		UnlocksAt:   1200,
	},
}

// DefaultUpgrades are the stock one-time upgrades.
var DefaultUpgrades = []Upgrade{
	{
		Key:         "focused-ping",
		Name:        "Focused Ping",
		Description: "Manual pings now strike rich pockets of signal (+200%).",
		Cost:        40,
		Effect:      ManualPowerBonus{Delta: 2},
	},
	{
		Key:         "drone-synchrony",
		Name:        "Drone Synchrony",
		Description: "Scavenger drones share paths (+50% rate).",
		Cost:        120,
		Effect:      GeneratorRateBonus{Generator: "drone", Delta: 0.5},
	},
	{
		Key:         "signal-feedback",
		Name:        "Signal Feedback",
		Description: "The beacon's hum stabilizes all output (+20% global).",
		Cost:        320,
		Effect:      GlobalBonus{Delta: 0.2},
	},
	{
		Key:         "neural-maps",
		Name:        "Neural Maps",
		Description: "Arrays follow predictive routes (+70% rate).",
		Cost:        800,
		Effect:      GeneratorRateBonus{Generator: "array", Delta: 0.7},
	},
	{
		Key:         "archive-oracles",
		Name:        "Archive Oracles",
		Description: "Deep archives anticipate codebooks (+60% rate).",
		Cost:        1800,
		Effect:      GeneratorRateBonus{Generator: "archive", Delta: 0.6},
	},
	{
		Key:         "gate-oversurge",
		Name:        "Gate Oversurge",
		Description: "Beacon gates ride the carrier wave (+50% rate).",
		Cost:        2800,
		Effect:      GeneratorRateBonus{Generator: "gate", Delta: 0.5},
	},
}

// DefaultCatalog returns the stock catalog.
func DefaultCatalog() *Catalog {
	return MustCatalog(DefaultGenerators, DefaultUpgrades)
}
