package planner

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/kilianp07/chargeplan/core/model"
	"github.com/kilianp07/chargeplan/core/normalize"
	"github.com/kilianp07/chargeplan/core/report"
	"github.com/kilianp07/chargeplan/core/solver"
	"github.com/kilianp07/chargeplan/infra/logger"
	"github.com/kilianp07/chargeplan/internal/eventbus"
)

func snapshot() Snapshot {
	h := model.DefaultHorizon(8)
	prices := make([]normalize.PricePoint, h.Slots)
	for t := range prices {
		price := 0.30
		if t >= 4 {
			price = 0.10
		}
		prices[t] = normalize.PricePoint{IntervalIndex: t, PricePerKWh: price}
	}
	return Snapshot{
		Horizon:  h,
		Chargers: []normalize.ChargerRecord{{ChargerID: "chg1", MaxPowerKW: 22}},
		Prices:   prices,
		Sessions: []normalize.SessionRecord{
			{VehicleID: "veh0001", ChargerID: "chg1", ArrivalInterval: 0, DepartureInterval: 8, InitialEnergyKWh: 0, TargetEnergyKWh: 10, BatteryCapacityKWh: 47, MaxRateKW: 10},
		},
	}
}

func TestPlanEndToEnd(t *testing.T) {
	p := New(solver.GreedyAllocator{}, logger.NopLogger{})
	res, err := p.Plan(context.Background(), snapshot())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != report.AllFeasible {
		t.Fatalf("expected AllFeasible got %s", res.Status)
	}
	r, ok := res.Schedule.Session("veh0001")
	if !ok || math.Abs(r.DeliveredKWh-10) > 1e-6 {
		t.Fatalf("unexpected session result: %+v", r)
	}
	// The cheap half of the horizon carries everything.
	wantCost := 4 * 0.10 * 2.5
	if math.Abs(res.Summary.TotalCost-wantCost) > 1e-6 {
		t.Fatalf("expected cost %v got %v", wantCost, res.Summary.TotalCost)
	}
	if res.Summary.BaselineCost <= res.Summary.TotalCost {
		t.Fatalf("baseline should cost more: %+v", res.Summary)
	}
	if res.PlanID == "" {
		t.Fatalf("missing plan ID")
	}
}

func TestPlanFatalOnOverCommit(t *testing.T) {
	snap := snapshot()
	for tIdx := 0; tIdx < snap.Horizon.Slots; tIdx++ {
		limit := 22.0
		if tIdx == 5 {
			limit = 0
		}
		snap.Limits = append(snap.Limits, normalize.LimitPoint{IntervalIndex: tIdx, NetworkLimitKW: limit})
	}
	p := New(solver.GreedyAllocator{}, logger.NopLogger{})
	res, err := p.Plan(context.Background(), snap)
	if err == nil {
		t.Fatalf("expected fatal error")
	}
	if res == nil || res.Status != report.Fatal {
		t.Fatalf("expected Fatal result, got %+v", res)
	}
}

func TestPlanKeepsValidSessionsOnRecordErrors(t *testing.T) {
	snap := snapshot()
	snap.Sessions = append(snap.Sessions, normalize.SessionRecord{VehicleID: "veh0002", ArrivalInterval: 3, DepartureInterval: 1, BatteryCapacityKWh: 47, MaxRateKW: 11})
	p := New(solver.GreedyAllocator{}, logger.NopLogger{})
	res, err := p.Plan(context.Background(), snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Summary.InvalidRecords != 1 || len(res.InputErrors) != 1 {
		t.Fatalf("expected one excluded record: %+v", res.Summary)
	}
	if len(res.Schedule.Sessions) != 1 {
		t.Fatalf("valid session should still be planned")
	}
}

func TestPlanDeterministic(t *testing.T) {
	p := New(solver.GreedyAllocator{}, logger.NopLogger{})
	r1, err := p.Plan(context.Background(), snapshot())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r2, err := p.Plan(context.Background(), snapshot())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s1, _ := r1.Schedule.Session("veh0001")
	s2, _ := r2.Schedule.Session("veh0001")
	for tIdx := range s1.PowerKW {
		if s1.PowerKW[tIdx] != s2.PowerKW[tIdx] {
			t.Fatalf("identical input produced different schedules at %d", tIdx)
		}
	}
}

func TestManagerSwapsLatest(t *testing.T) {
	bus := eventbus.New[PlanCompleted]()
	defer bus.Close()
	sub := bus.Subscribe()
	m := NewManager(New(solver.GreedyAllocator{}, logger.NopLogger{}), bus, logger.NopLogger{})

	m.Submit(context.Background(), snapshot())
	m.Wait()
	res := m.Latest()
	if res == nil || res.Status != report.AllFeasible {
		t.Fatalf("expected completed result, got %+v", res)
	}
	select {
	case ev := <-sub:
		if ev.Result == nil {
			t.Fatalf("published event carries no result")
		}
	case <-time.After(time.Second):
		t.Fatalf("expected PlanCompleted event")
	}

	// A second snapshot supersedes the first result.
	snap := snapshot()
	snap.Sessions[0].TargetEnergyKWh = 5
	m.Submit(context.Background(), snap)
	m.Wait()
	r, _ := m.Latest().Schedule.Session("veh0001")
	if math.Abs(r.DeliveredKWh-5) > 1e-6 {
		t.Fatalf("latest result not swapped: %+v", r)
	}
}

func TestManagerDiscardsCancelled(t *testing.T) {
	m := NewManager(New(solver.GreedyAllocator{}, logger.NopLogger{}), nil, logger.NopLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.Submit(ctx, snapshot())
	m.Wait()
	if m.Latest() != nil {
		t.Fatalf("cancelled solve must not publish a result")
	}
}
