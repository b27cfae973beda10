// Package fleetgen samples charging-session records from probability mass
// functions for arrival time, departure time and return state of charge. It
// stands in for the telematics feed during planning studies and produces the
// same raw records the normalizer accepts from production sources.
package fleetgen

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/chargeplan/core/model"
	"github.com/kilianp07/chargeplan/core/normalize"
)

// Config defines the fleet to sample. PMF buckets for arrival and departure
// are expressed in interval indices; SoC buckets are fractions of capacity.
type Config struct {
	Size          int      `json:"size" yaml:"size"`
	CapacityKWh   float64  `json:"capacity_kwh" yaml:"capacity_kwh"`
	MaxRateKW     float64  `json:"max_rate_kw" yaml:"max_rate_kw"`
	TargetSoC     float64  `json:"target_soc" yaml:"target_soc"`
	Seed          int64    `json:"seed" yaml:"seed"`
	ArrivalPMF    []Bucket `json:"arrival_pmf" yaml:"arrival_pmf"`
	DeparturePMF  []Bucket `json:"departure_pmf" yaml:"departure_pmf"`
	InitialSoCPMF []Bucket `json:"initial_soc_pmf" yaml:"initial_soc_pmf"`
}

// Validate checks the sampling parameters.
func (c Config) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("size must be positive")
	}
	if c.CapacityKWh <= 0 {
		return fmt.Errorf("capacity_kwh must be positive")
	}
	if c.MaxRateKW <= 0 {
		return fmt.Errorf("max_rate_kw must be positive")
	}
	if c.TargetSoC <= 0 || c.TargetSoC > 1 {
		return fmt.Errorf("target_soc must be in (0, 1]")
	}
	return nil
}

// LoadConfig loads a Config from a JSON or YAML file.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	default:
		return Config{}, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}
	return cfg, err
}

// Generate samples Size session records with IDs veh0001..vehNNNN. The same
// seed always produces the same fleet. Departures drawn at or before the
// arrival are pushed to the following interval; both are clamped to the
// horizon.
func Generate(h model.Horizon, cfg Config) ([]normalize.SessionRecord, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	arrival, err := NewPMF(cfg.ArrivalPMF)
	if err != nil {
		return nil, fmt.Errorf("arrival pmf: %w", err)
	}
	departure, err := NewPMF(cfg.DeparturePMF)
	if err != nil {
		return nil, fmt.Errorf("departure pmf: %w", err)
	}
	soc, err := NewPMF(cfg.InitialSoCPMF)
	if err != nil {
		return nil, fmt.Errorf("initial soc pmf: %w", err)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	records := make([]normalize.SessionRecord, cfg.Size)
	for i := range records {
		a := clampInterval(int(arrival.Sample(rng)), 0, h.Slots-1)
		d := clampInterval(int(departure.Sample(rng)), 0, h.Slots)
		if d <= a {
			d = a + 1
		}
		initSoC := soc.Sample(rng)
		if initSoC < 0 {
			initSoC = 0
		}
		if initSoC > cfg.TargetSoC {
			initSoC = cfg.TargetSoC
		}
		records[i] = normalize.SessionRecord{
			VehicleID:          fmt.Sprintf("veh%04d", i+1),
			ArrivalInterval:    a,
			DepartureInterval:  d,
			InitialEnergyKWh:   initSoC * cfg.CapacityKWh,
			TargetEnergyKWh:    cfg.TargetSoC * cfg.CapacityKWh,
			BatteryCapacityKWh: cfg.CapacityKWh,
			MaxRateKW:          cfg.MaxRateKW,
		}
	}
	return records, nil
}

func clampInterval(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
