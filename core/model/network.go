package model

import (
	"fmt"
	"math"
)

// Charger is a single charge point with a hardware power ceiling.
type Charger struct {
	ID         string
	MaxPowerKW float64
}

// Network is the charging-station network a fleet shares: the individual
// chargers plus an aggregate power cap per interval. The aggregate cap may
// bind before any single charger's limit does.
type Network struct {
	Chargers []Charger
	// LimitKW is the aggregate limit per interval. An empty slice means the
	// network imposes no aggregate cap.
	LimitKW []float64
}

// Charger returns the charger with the given ID.
func (n Network) Charger(id string) (Charger, bool) {
	for _, c := range n.Chargers {
		if c.ID == id {
			return c, true
		}
	}
	return Charger{}, false
}

// LimitAt returns the aggregate power limit for interval t.
func (n Network) LimitAt(t int) float64 {
	if len(n.LimitKW) == 0 {
		return math.Inf(1)
	}
	return n.LimitKW[t]
}

// ConstantLimit returns a per-interval limit slice holding the same value for
// every interval of the horizon.
func ConstantLimit(kw float64, h Horizon) []float64 {
	limits := make([]float64, h.Slots)
	for i := range limits {
		limits[i] = kw
	}
	return limits
}

// Validate checks charger definitions and limit coverage.
func (n Network) Validate(h Horizon) error {
	if len(n.Chargers) == 0 {
		return fmt.Errorf("network has no chargers")
	}
	seen := make(map[string]bool, len(n.Chargers))
	for _, c := range n.Chargers {
		if c.ID == "" {
			return fmt.Errorf("charger without ID")
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate charger %s", c.ID)
		}
		seen[c.ID] = true
		if c.MaxPowerKW <= 0 {
			return fmt.Errorf("charger %s: max power must be positive", c.ID)
		}
	}
	if len(n.LimitKW) != 0 && len(n.LimitKW) != h.Slots {
		return fmt.Errorf("network limits cover %d intervals, horizon has %d", len(n.LimitKW), h.Slots)
	}
	return nil
}
