package model

// Allocation maps vehicle IDs to per-interval assigned power in kW. Slices
// span the whole horizon; entries outside a session's window stay zero.
type Allocation map[string][]float64

// SessionResult is the materialized outcome for one session.
type SessionResult struct {
	VehicleID    string    `json:"vehicle_id"`
	ChargerID    string    `json:"charger_id,omitempty"`
	PowerKW      []float64 `json:"power_kw"`
	DeliveredKWh float64   `json:"delivered_kwh"`
	ShortfallKWh float64   `json:"shortfall_kwh"`
	// CapacityInfeasible marks sessions whose own window and rate limits made
	// the original target unreachable even with exclusive capacity.
	CapacityInfeasible bool `json:"capacity_infeasible,omitempty"`
}

// Schedule is the final, verified power plan for one planning cycle.
type Schedule struct {
	PlanID      string          `json:"plan_id"`
	Horizon     Horizon         `json:"horizon"`
	Sessions    []SessionResult `json:"sessions"`
	AggregateKW []float64       `json:"aggregate_kw"`
	TotalCost   float64         `json:"total_cost"`
}

// Session returns the result for the given vehicle.
func (s *Schedule) Session(vehicleID string) (SessionResult, bool) {
	for _, r := range s.Sessions {
		if r.VehicleID == vehicleID {
			return r, true
		}
	}
	return SessionResult{}, false
}

// TotalDeliveredKWh sums delivered energy across all sessions.
func (s *Schedule) TotalDeliveredKWh() float64 {
	var sum float64
	for _, r := range s.Sessions {
		sum += r.DeliveredKWh
	}
	return sum
}
