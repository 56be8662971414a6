package economy

import "fmt"

// Effect is the closed set of permanent upgrade effects. The unexported
// method keeps the set closed to this package.
type Effect interface {
	isEffect()
	String() string
}

// ManualPowerBonus adds Delta to the manual ping multiplier.
type ManualPowerBonus struct {
	Delta float64
}

// GlobalBonus adds Delta to the permanent global production modifier.
type GlobalBonus struct {
	Delta float64
}

// GeneratorRateBonus adds Delta to one generator's rate bonus.
type GeneratorRateBonus struct {
	Generator string
	Delta     float64
}

func (ManualPowerBonus) isEffect()   {}
func (GlobalBonus) isEffect()        {}
func (GeneratorRateBonus) isEffect() {}

func (e ManualPowerBonus) String() string {
	return fmt.Sprintf("manual power %+.2f", e.Delta)
}

func (e GlobalBonus) String() string {
	return fmt.Sprintf("global bonus %+.0f%%", e.Delta*100)
}

func (e GeneratorRateBonus) String() string {
	return fmt.Sprintf("%s rate %+.0f%%", e.Generator, e.Delta*100)
}

// Upgrade is a one-time permanent purchase.
type Upgrade struct {
	Key         string
	Name        string
	Description string
	Cost        float64
	Effect      Effect

	Purchased bool
}
