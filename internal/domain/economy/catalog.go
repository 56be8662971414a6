package economy

import (
	"math"

	"github.com/HyprPixl/signalfoundry/internal/domain/rules"
)

// Catalog is the validated, immutable set of generator and upgrade
// definitions. Its order is the display order.
type Catalog struct {
	generators []Generator
	upgrades   []Upgrade
	genIndex   map[string]int
	upIndex    map[string]int
}

// NewCatalog validates the definitions and builds a catalog. Run-scoped
// fields (Count, Bonus, Purchased) are cleared.
func NewCatalog(generators []Generator, upgrades []Upgrade) (*Catalog, error) {
	if len(generators) == 0 {
		return nil, &rules.CatalogError{Reason: "at least one generator is required"}
	}
	c := &Catalog{
		generators: make([]Generator, 0, len(generators)),
		upgrades:   make([]Upgrade, 0, len(upgrades)),
		genIndex:   make(map[string]int, len(generators)),
		upIndex:    make(map[string]int, len(upgrades)),
	}

	for _, g := range generators {
		if err := validateGenerator(g); err != nil {
			return nil, err
		}
		if _, dup := c.genIndex[g.Key]; dup {
			return nil, &rules.CatalogError{Key: g.Key, Reason: "duplicate generator key"}
		}
		g.Count = 0
		g.Bonus = 0
		c.genIndex[g.Key] = len(c.generators)
		c.generators = append(c.generators, g)
	}

	for _, u := range upgrades {
		if err := c.validateUpgrade(u); err != nil {
			return nil, err
		}
		if _, dup := c.upIndex[u.Key]; dup {
			return nil, &rules.CatalogError{Key: u.Key, Reason: "duplicate upgrade key"}
		}
		u.Purchased = false
		c.upIndex[u.Key] = len(c.upgrades)
		c.upgrades = append(c.upgrades, u)
	}

	return c, nil
}

// MustCatalog is like NewCatalog but panics on invalid definitions. It is
// meant for catalogs compiled into the binary.
func MustCatalog(generators []Generator, upgrades []Upgrade) *Catalog {
	c, err := NewCatalog(generators, upgrades)
	if err != nil {
		panic(err)
	}
	return c
}

func validateGenerator(g Generator) error {
	switch {
	case g.Key == "":
		return &rules.CatalogError{Reason: "generator key is empty"}
	case !finite(g.Scaling) || !(g.Scaling > 1):
		return &rules.CatalogError{Key: g.Key, Reason: "scaling must be greater than 1"}
	case !finite(g.BaseCost) || !(g.BaseCost > 0):
		return &rules.CatalogError{Key: g.Key, Reason: "base cost must be positive"}
	case !finite(g.BaseRate) || g.BaseRate < 0:
		return &rules.CatalogError{Key: g.Key, Reason: "base rate must not be negative"}
	case !finite(g.UnlocksAt) || g.UnlocksAt < 0:
		return &rules.CatalogError{Key: g.Key, Reason: "unlock threshold must not be negative"}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// effectDelta returns the bonus an effect adds. Saves reject negative
// bonuses, so the catalog does too.
func effectDelta(e Effect) float64 {
	switch e := e.(type) {
	case ManualPowerBonus:
		return e.Delta
	case GlobalBonus:
		return e.Delta
	case GeneratorRateBonus:
		return e.Delta
	}
	return 0
}

func (c *Catalog) validateUpgrade(u Upgrade) error {
	if u.Key == "" {
		return &rules.CatalogError{Reason: "upgrade key is empty"}
	}
	if !finite(u.Cost) || u.Cost < 0 {
		return &rules.CatalogError{Key: u.Key, Reason: "cost must not be negative"}
	}
	switch e := u.Effect.(type) {
	case nil:
		return &rules.CatalogError{Key: u.Key, Reason: "upgrade has no effect"}
	case GeneratorRateBonus:
		if _, ok := c.genIndex[e.Generator]; !ok {
			return &rules.CatalogError{Key: u.Key, Reason: "effect references unknown generator " + e.Generator}
		}
	case *GeneratorRateBonus, *ManualPowerBonus, *GlobalBonus:
		return &rules.CatalogError{Key: u.Key, Reason: "effects must be values, not pointers"}
	}
	if d := effectDelta(u.Effect); !finite(d) || d < 0 {
		return &rules.CatalogError{Key: u.Key, Reason: "effect delta must be a finite non-negative number"}
	}
	return nil
}

// Generators returns a copy of the generator definitions in catalog order.
func (c *Catalog) Generators() []Generator {
	out := make([]Generator, len(c.generators))
	copy(out, c.generators)
	return out
}

// Upgrades returns a copy of the upgrade definitions in catalog order.
func (c *Catalog) Upgrades() []Upgrade {
	out := make([]Upgrade, len(c.upgrades))
	copy(out, c.upgrades)
	return out
}

// Generator returns the definition for key.
func (c *Catalog) Generator(key string) (Generator, bool) {
	i, ok := c.genIndex[key]
	if !ok {
		return Generator{}, false
	}
	return c.generators[i], true
}

// Upgrade returns the definition for key.
func (c *Catalog) Upgrade(key string) (Upgrade, bool) {
	i, ok := c.upIndex[key]
	if !ok {
		return Upgrade{}, false
	}
	return c.upgrades[i], true
}

// GeneratorKeys returns generator keys in catalog order.
func (c *Catalog) GeneratorKeys() []string {
	keys := make([]string, len(c.generators))
	for i, g := range c.generators {
		keys[i] = g.Key
	}
	return keys
}

// UpgradeKeys returns upgrade keys in catalog order.
func (c *Catalog) UpgradeKeys() []string {
	keys := make([]string, len(c.upgrades))
	for i, u := range c.upgrades {
		keys[i] = u.Key
	}
	return keys
}
