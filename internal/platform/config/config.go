// Package config loads foundry settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/HyprPixl/signalfoundry/internal/domain/economy"
)

// Store backends.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// Config holds every tunable of the server and tools.
type Config struct {
	// Persistence
	Store    string `env:"FOUNDRY_STORE" envDefault:"json"`
	SavePath string `env:"FOUNDRY_SAVE_PATH" envDefault:"signal_foundry_save.json"`
	DBPath   string `env:"FOUNDRY_DB_PATH" envDefault:"foundry.db"`
	Slot     string `env:"FOUNDRY_SLOT" envDefault:"default"`

	// CatalogPath optionally points at a YAML catalog replacing the stock one.
	CatalogPath string `env:"FOUNDRY_CATALOG_PATH"`

	// Loop
	TickInterval     time.Duration `env:"FOUNDRY_TICK_INTERVAL" envDefault:"1s"`
	AutosaveInterval time.Duration `env:"FOUNDRY_AUTOSAVE_INTERVAL" envDefault:"30s"`
	Seed             uint64        `env:"FOUNDRY_SEED" envDefault:"0"` // 0 = random

	// Network
	ListenAddr       string `env:"FOUNDRY_LISTEN_ADDR" envDefault:":8080"`
	ClientSendBuffer int    `env:"FOUNDRY_CLIENT_SEND_BUFFER" envDefault:"64"`
	BroadcastBuffer  int    `env:"FOUNDRY_BROADCAST_BUFFER" envDefault:"256"`
	HistoryLimit     int    `env:"FOUNDRY_HISTORY_LIMIT" envDefault:"500"`

	// Logging
	LogLevel  string `env:"FOUNDRY_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"FOUNDRY_LOG_FORMAT" envDefault:"text"`
}

// Load parses the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromMap parses the given variables instead of the process environment.
func FromMap(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration with every default applied.
func Default() Config {
	cfg, err := FromMap(map[string]string{})
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	switch c.Store {
	case StoreJSON:
		if c.SavePath == "" {
			return fmt.Errorf("config: FOUNDRY_SAVE_PATH is required for the json store")
		}
	case StoreSQLite:
		if c.DBPath == "" || c.Slot == "" {
			return fmt.Errorf("config: FOUNDRY_DB_PATH and FOUNDRY_SLOT are required for the sqlite store")
		}
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("config: tick interval must be positive")
	}
	if c.AutosaveInterval < 0 {
		return fmt.Errorf("config: autosave interval must not be negative")
	}
	if c.ClientSendBuffer <= 0 || c.BroadcastBuffer <= 0 {
		return fmt.Errorf("config: channel buffers must be positive")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("config: history limit must be positive")
	}
	return nil
}

// LoadCatalog returns the YAML catalog at CatalogPath, or the stock catalog
// when no path is configured.
func (c Config) LoadCatalog() (*economy.Catalog, error) {
	if c.CatalogPath == "" {
		return economy.DefaultCatalog(), nil
	}
	cat, err := economy.LoadCatalogFile(c.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", c.CatalogPath, err)
	}
	return cat, nil
}
