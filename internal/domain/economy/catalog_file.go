package economy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/HyprPixl/signalfoundry/internal/domain/rules"
)

// Effect kinds accepted in catalog files.
const (
	EffectKindManualPower   = "manual_power"
	EffectKindGlobalBonus   = "global_bonus"
	EffectKindGeneratorRate = "generator_rate"
)

// CatalogFile is the YAML layout of a catalog definition.
type CatalogFile struct {
	Generators []GeneratorFile `yaml:"generators"`
	Upgrades   []UpgradeFile   `yaml:"upgrades"`
}

type GeneratorFile struct {
	Key         string  `yaml:"key"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	BaseRate    float64 `yaml:"base_rate"`
	BaseCost    float64 `yaml:"base_cost"`
	Scaling     float64 `yaml:"scaling"`
	UnlocksAt   float64 `yaml:"unlocks_at"`
}

type UpgradeFile struct {
	Key         string     `yaml:"key"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Cost        float64    `yaml:"cost"`
	Effect      EffectFile `yaml:"effect"`
}

type EffectFile struct {
	Kind      string  `yaml:"kind"`
	Generator string  `yaml:"generator,omitempty"`
	Delta     float64 `yaml:"delta"`
}

// LoadCatalogFile reads and validates a YAML catalog.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f CatalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &rules.CatalogError{Reason: "decode yaml: " + err.Error()}
	}

	gens := make([]Generator, 0, len(f.Generators))
	for _, g := range f.Generators {
		gens = append(gens, Generator{
			Key:         g.Key,
			Name:        g.Name,
			Description: g.Description,
			BaseRate:    g.BaseRate,
			BaseCost:    g.BaseCost,
			Scaling:     g.Scaling,
			UnlocksAt:   g.UnlocksAt,
		})
	}

	ups := make([]Upgrade, 0, len(f.Upgrades))
	for _, u := range f.Upgrades {
		effect, err := u.Effect.decode()
		if err != nil {
			return nil, &rules.CatalogError{Key: u.Key, Reason: err.Error()}
		}
		ups = append(ups, Upgrade{
			Key:         u.Key,
			Name:        u.Name,
			Description: u.Description,
			Cost:        u.Cost,
			Effect:      effect,
		})
	}

	return NewCatalog(gens, ups)
}

func (e EffectFile) decode() (Effect, error) {
	switch e.Kind {
	case EffectKindManualPower:
		return ManualPowerBonus{Delta: e.Delta}, nil
	case EffectKindGlobalBonus:
		return GlobalBonus{Delta: e.Delta}, nil
	case EffectKindGeneratorRate:
		if e.Generator == "" {
			return nil, fmt.Errorf("effect %s requires a generator", e.Kind)
		}
		return GeneratorRateBonus{Generator: e.Generator, Delta: e.Delta}, nil
	default:
		return nil, fmt.Errorf("unknown effect kind %q", e.Kind)
	}
}
