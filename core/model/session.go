package model

// Session is one vehicle's parking-and-charging window within the horizon.
// Charging may happen during the half-open interval window [Arrival, Departure).
type Session struct {
	VehicleID   string
	ChargerID   string
	Arrival     int
	Departure   int
	InitialKWh  float64
	TargetKWh   float64
	CapacityKWh float64
	MaxRateKW   float64
}

// DeficitKWh returns the energy the session must receive to reach its target.
func (s Session) DeficitKWh() float64 {
	return s.TargetKWh - s.InitialKWh
}

// InWindow reports whether the session may charge during interval t.
func (s Session) InWindow(t int) bool {
	return t >= s.Arrival && t < s.Departure
}

// WindowSlots returns the number of intervals in the session's window.
func (s Session) WindowSlots() int {
	return s.Departure - s.Arrival
}

// RateCapKW returns the effective power ceiling for the session on the given
// network: the lesser of the vehicle-side rate and its charger's max power.
func (s Session) RateCapKW(n Network) float64 {
	cap := s.MaxRateKW
	if c, ok := n.Charger(s.ChargerID); ok && c.MaxPowerKW < cap {
		cap = c.MaxPowerKW
	}
	return cap
}
