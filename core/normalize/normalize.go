package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kilianp07/chargeplan/core/model"
)

// SessionRecord is a raw charging-session record as produced by external
// collaborators (PMF sampling, booking systems).
type SessionRecord struct {
	VehicleID          string  `json:"vehicleId"`
	ChargerID          string  `json:"chargerId,omitempty"`
	ArrivalInterval    int     `json:"arrivalInterval"`
	DepartureInterval  int     `json:"departureInterval"`
	InitialEnergyKWh   float64 `json:"initialEnergyKWh"`
	TargetEnergyKWh    float64 `json:"targetEnergyKWh"`
	BatteryCapacityKWh float64 `json:"batteryCapacityKWh"`
	MaxRateKW          float64 `json:"maxRateKW"`
}

// ChargerRecord is a raw charge-point record.
type ChargerRecord struct {
	ChargerID  string  `json:"chargerId"`
	MaxPowerKW float64 `json:"maxPowerKW"`
}

// PricePoint is one interval of the market price feed.
type PricePoint struct {
	IntervalIndex int     `json:"intervalIndex"`
	PricePerKWh   float64 `json:"pricePerKWh"`
}

// LimitPoint is the aggregate network limit for one interval.
type LimitPoint struct {
	IntervalIndex  int     `json:"intervalIndex"`
	NetworkLimitKW float64 `json:"networkLimitKW"`
}

// Input bundles the raw records for one planning cycle.
type Input struct {
	Horizon  model.Horizon
	Sessions []SessionRecord
	Chargers []ChargerRecord
	Prices   []PricePoint
	Limits   []LimitPoint
}

// RecordError lists every validation violation found in one raw record. A
// record error excludes that record from the solve but is never fatal.
type RecordError struct {
	Record     string
	Violations []string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s: %s", e.Record, strings.Join(e.Violations, "; "))
}

// Normalized is the canonical in-memory model consumed by the rest of the
// pipeline.
type Normalized struct {
	Horizon  model.Horizon
	Sessions []model.Session
	Network  model.Network
	Prices   model.PriceCurve
}

// Normalize validates raw records and builds the canonical model. Invalid
// session or charger records are excluded and reported in the returned list;
// processing continues with the valid remainder. A malformed price curve or
// limit table is a configuration defect and fails the whole call.
func Normalize(in Input) (*Normalized, []*RecordError, error) {
	if err := in.Horizon.Validate(); err != nil {
		return nil, nil, err
	}

	var recErrs []*RecordError

	chargers, errs := normalizeChargers(in.Chargers)
	recErrs = append(recErrs, errs...)

	prices, err := normalizePrices(in.Prices, in.Horizon)
	if err != nil {
		return nil, recErrs, err
	}
	limits, err := normalizeLimits(in.Limits, in.Horizon)
	if err != nil {
		return nil, recErrs, err
	}

	network := model.Network{Chargers: chargers, LimitKW: limits}
	sessions, errs := normalizeSessions(in.Sessions, in.Horizon, network)
	recErrs = append(recErrs, errs...)

	return &Normalized{
		Horizon:  in.Horizon,
		Sessions: sessions,
		Network:  network,
		Prices:   prices,
	}, recErrs, nil
}

func normalizeChargers(recs []ChargerRecord) ([]model.Charger, []*RecordError) {
	var out []model.Charger
	var errs []*RecordError
	seen := make(map[string]bool, len(recs))
	for _, r := range recs {
		var v []string
		if r.ChargerID == "" {
			v = append(v, "chargerId is required")
		} else if seen[r.ChargerID] {
			v = append(v, "duplicate chargerId")
		}
		if r.MaxPowerKW <= 0 {
			v = append(v, "maxPowerKW must be positive")
		}
		if len(v) > 0 {
			errs = append(errs, &RecordError{Record: "charger " + r.ChargerID, Violations: v})
			continue
		}
		seen[r.ChargerID] = true
		out = append(out, model.Charger{ID: r.ChargerID, MaxPowerKW: r.MaxPowerKW})
	}
	return out, errs
}

func normalizePrices(points []PricePoint, h model.Horizon) (model.PriceCurve, error) {
	prices := make([]float64, h.Slots)
	covered := make([]bool, h.Slots)
	for _, p := range points {
		if !h.Contains(p.IntervalIndex) {
			return model.PriceCurve{}, fmt.Errorf("price point for interval %d outside horizon", p.IntervalIndex)
		}
		if covered[p.IntervalIndex] {
			return model.PriceCurve{}, fmt.Errorf("duplicate price point for interval %d", p.IntervalIndex)
		}
		covered[p.IntervalIndex] = true
		prices[p.IntervalIndex] = p.PricePerKWh
	}
	for t, ok := range covered {
		if !ok {
			return model.PriceCurve{}, fmt.Errorf("price curve has a gap at interval %d", t)
		}
	}
	return model.NewPriceCurve(prices), nil
}

func normalizeLimits(points []LimitPoint, h model.Horizon) ([]float64, error) {
	if len(points) == 0 {
		return nil, nil
	}
	limits := make([]float64, h.Slots)
	covered := make([]bool, h.Slots)
	for _, p := range points {
		if !h.Contains(p.IntervalIndex) {
			return nil, fmt.Errorf("network limit for interval %d outside horizon", p.IntervalIndex)
		}
		if covered[p.IntervalIndex] {
			return nil, fmt.Errorf("duplicate network limit for interval %d", p.IntervalIndex)
		}
		covered[p.IntervalIndex] = true
		limits[p.IntervalIndex] = p.NetworkLimitKW
	}
	for t, ok := range covered {
		if !ok {
			return nil, fmt.Errorf("network limit table has a gap at interval %d", t)
		}
	}
	return limits, nil
}

func normalizeSessions(recs []SessionRecord, h model.Horizon, network model.Network) ([]model.Session, []*RecordError) {
	var out []model.Session
	var errs []*RecordError
	seen := make(map[string]bool, len(recs))
	for _, r := range recs {
		var v []string
		if r.VehicleID == "" {
			v = append(v, "vehicleId is required")
		} else if seen[r.VehicleID] {
			v = append(v, "duplicate vehicleId")
		}
		if r.ArrivalInterval < 0 {
			v = append(v, "arrivalInterval must be >= 0")
		}
		if r.DepartureInterval <= r.ArrivalInterval {
			v = append(v, "departureInterval must be greater than arrivalInterval")
		}
		if r.DepartureInterval > h.Slots {
			v = append(v, fmt.Sprintf("departureInterval exceeds horizon of %d intervals", h.Slots))
		}
		if r.BatteryCapacityKWh <= 0 {
			v = append(v, "batteryCapacityKWh must be positive")
		}
		if r.MaxRateKW <= 0 {
			v = append(v, "maxRateKW must be positive")
		}
		if r.InitialEnergyKWh < 0 {
			v = append(v, "initialEnergyKWh must be >= 0")
		}
		if r.TargetEnergyKWh < r.InitialEnergyKWh {
			v = append(v, "targetEnergyKWh must be >= initialEnergyKWh")
		}
		if r.TargetEnergyKWh > r.BatteryCapacityKWh {
			v = append(v, "targetEnergyKWh exceeds batteryCapacityKWh")
		}
		if r.ChargerID != "" {
			if _, ok := network.Charger(r.ChargerID); !ok {
				v = append(v, fmt.Sprintf("unknown chargerId %s", r.ChargerID))
			}
		} else if len(network.Chargers) == 0 {
			v = append(v, "no charger available for binding")
		}
		if len(v) > 0 {
			errs = append(errs, &RecordError{Record: "session " + r.VehicleID, Violations: v})
			continue
		}
		seen[r.VehicleID] = true
		out = append(out, model.Session{
			VehicleID:   r.VehicleID,
			ChargerID:   r.ChargerID,
			Arrival:     r.ArrivalInterval,
			Departure:   r.DepartureInterval,
			InitialKWh:  r.InitialEnergyKWh,
			TargetKWh:   r.TargetEnergyKWh,
			CapacityKWh: r.BatteryCapacityKWh,
			MaxRateKW:   r.MaxRateKW,
		})
	}
	bindChargers(out, network)
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out, errs
}

// bindChargers assigns a charger to every session that arrived without one.
// Each unbound session goes to the charger with the least committed
// window-overlap power, ties broken by charger ID, so the binding is
// deterministic for identical input.
func bindChargers(sessions []model.Session, network model.Network) {
	if len(network.Chargers) == 0 {
		return
	}
	load := make(map[string]float64, len(network.Chargers))
	for _, s := range sessions {
		if s.ChargerID != "" {
			load[s.ChargerID] += s.MaxRateKW * float64(s.WindowSlots())
		}
	}
	for i := range sessions {
		if sessions[i].ChargerID != "" {
			continue
		}
		best := network.Chargers[0]
		for _, c := range network.Chargers[1:] {
			if load[c.ID] < load[best.ID] || (load[c.ID] == load[best.ID] && c.ID < best.ID) {
				best = c
			}
		}
		sessions[i].ChargerID = best.ID
		load[best.ID] += sessions[i].MaxRateKW * float64(sessions[i].WindowSlots())
	}
}
