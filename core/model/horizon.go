package model

import "fmt"

// DefaultSlotMinutes is the planning interval length used when none is configured.
const DefaultSlotMinutes = 15

// Horizon describes the discretized planning window: Slots intervals of
// SlotMinutes each, indexed [0, Slots).
type Horizon struct {
	Slots       int `json:"slots"`
	SlotMinutes int `json:"slot_minutes"`
}

// DefaultHorizon returns a horizon of the given length with 15-minute slots.
func DefaultHorizon(slots int) Horizon {
	return Horizon{Slots: slots, SlotMinutes: DefaultSlotMinutes}
}

// SlotHours returns the duration of one interval in hours.
func (h Horizon) SlotHours() float64 {
	return float64(h.SlotMinutes) / 60.0
}

// Contains reports whether t is a valid interval index.
func (h Horizon) Contains(t int) bool {
	return t >= 0 && t < h.Slots
}

// Validate checks that the horizon is usable for planning.
func (h Horizon) Validate() error {
	if h.Slots <= 0 {
		return fmt.Errorf("horizon must contain at least one interval")
	}
	if h.SlotMinutes <= 0 {
		return fmt.Errorf("slot duration must be positive")
	}
	return nil
}
