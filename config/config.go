// Package config loads the application configuration from JSON or YAML files
// with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/chargeplan/core/metrics"
	"github.com/kilianp07/chargeplan/infra/mqtt"
)

type Config struct {
	Horizon HorizonConfig  `json:"horizon"`
	Solver  SolverConfig   `json:"solver"`
	Metrics metrics.Config `json:"metrics"`
	MQTT    mqtt.Config    `json:"mqtt"`
}

// HorizonConfig describes the planning window.
type HorizonConfig struct {
	// Slots is the number of planning intervals in the horizon.
	Slots int `json:"slots"`
	// SlotMinutes is the interval length in minutes.
	SlotMinutes int `json:"slot_minutes"`
}

// SetDefaults applies sane defaults.
func (c *HorizonConfig) SetDefaults() {
	if c.Slots == 0 {
		c.Slots = 96
	}
	if c.SlotMinutes == 0 {
		c.SlotMinutes = 15
	}
}

// Validate checks the horizon bounds.
func (c HorizonConfig) Validate() error {
	if c.Slots <= 0 {
		return fmt.Errorf("horizon.slots must be positive")
	}
	if c.SlotMinutes <= 0 {
		return fmt.Errorf("horizon.slot_minutes must be positive")
	}
	return nil
}

// SolverConfig selects the allocation strategy.
type SolverConfig struct {
	// Allocator selects the strategy: "lp", "greedy" or "baseline".
	Allocator string `json:"allocator"`
	// WithBaseline enables the charge-on-arrival cost comparison.
	WithBaseline bool `json:"with_baseline"`
}

// SetDefaults applies sane defaults.
func (c *SolverConfig) SetDefaults() {
	if c.Allocator == "" {
		c.Allocator = "lp"
	}
}

// Validate checks the allocator name.
func (c SolverConfig) Validate() error {
	switch c.Allocator {
	case "lp", "greedy", "baseline":
		return nil
	default:
		return fmt.Errorf("unknown allocator %s", c.Allocator)
	}
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Horizon.SetDefaults()
	cfg.Solver.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.MQTT.SetDefaults()
	if err := cfg.Horizon.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Solver.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
