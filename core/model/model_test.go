package model

import (
	"math"
	"testing"
)

func TestSessionDeficitAndWindow(t *testing.T) {
	s := Session{VehicleID: "veh0001", Arrival: 4, Departure: 12, InitialKWh: 10, TargetKWh: 42, CapacityKWh: 47, MaxRateKW: 11}
	if got := s.DeficitKWh(); got != 32 {
		t.Fatalf("expected deficit 32 got %v", got)
	}
	if s.InWindow(3) || !s.InWindow(4) || !s.InWindow(11) || s.InWindow(12) {
		t.Fatalf("window membership wrong")
	}
	if s.WindowSlots() != 8 {
		t.Fatalf("expected 8 slots got %d", s.WindowSlots())
	}
}

func TestSessionRateCap(t *testing.T) {
	n := Network{Chargers: []Charger{{ID: "chg1", MaxPowerKW: 7.4}}}
	s := Session{VehicleID: "veh0001", ChargerID: "chg1", MaxRateKW: 11}
	if got := s.RateCapKW(n); got != 7.4 {
		t.Fatalf("expected charger to cap rate at 7.4 got %v", got)
	}
	s.MaxRateKW = 3.7
	if got := s.RateCapKW(n); got != 3.7 {
		t.Fatalf("expected vehicle rate 3.7 got %v", got)
	}
}

func TestPriceCurveImmutable(t *testing.T) {
	raw := []float64{1, 2, 3}
	c := NewPriceCurve(raw)
	raw[0] = 99
	if c.At(0) != 1 {
		t.Fatalf("curve shares backing slice with input")
	}
	vals := c.Values()
	vals[1] = 99
	if c.At(1) != 2 {
		t.Fatalf("Values leaks internal slice")
	}
}

func TestNetworkLimitAt(t *testing.T) {
	h := DefaultHorizon(4)
	n := Network{Chargers: []Charger{{ID: "chg1", MaxPowerKW: 22}}}
	if !math.IsInf(n.LimitAt(0), 1) {
		t.Fatalf("empty limits should be unbounded")
	}
	n.LimitKW = ConstantLimit(50, h)
	if n.LimitAt(3) != 50 {
		t.Fatalf("expected constant limit 50 got %v", n.LimitAt(3))
	}
	if err := n.Validate(h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNetworkValidate(t *testing.T) {
	h := DefaultHorizon(4)
	cases := []Network{
		{},
		{Chargers: []Charger{{ID: "chg1", MaxPowerKW: 0}}},
		{Chargers: []Charger{{ID: "chg1", MaxPowerKW: 22}, {ID: "chg1", MaxPowerKW: 22}}},
		{Chargers: []Charger{{ID: "chg1", MaxPowerKW: 22}}, LimitKW: []float64{1, 2}},
	}
	for i, n := range cases {
		if err := n.Validate(h); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestHorizonSlotHours(t *testing.T) {
	h := DefaultHorizon(96)
	if h.SlotHours() != 0.25 {
		t.Fatalf("expected 0.25h slots got %v", h.SlotHours())
	}
	if err := h.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Horizon{Slots: 0, SlotMinutes: 15}).Validate(); err == nil {
		t.Fatalf("expected error for empty horizon")
	}
}
