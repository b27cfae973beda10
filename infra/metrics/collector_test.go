package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	coremetrics "github.com/kilianp07/chargeplan/core/metrics"
	"github.com/kilianp07/chargeplan/core/model"
	"github.com/kilianp07/chargeplan/core/planner"
	"github.com/kilianp07/chargeplan/core/report"
	"github.com/kilianp07/chargeplan/internal/eventbus"
)

type captureSink struct {
	mu     sync.Mutex
	events []coremetrics.PlanEvent
}

func (c *captureSink) RecordPlan(ev coremetrics.PlanEvent) error {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	return nil
}

func (c *captureSink) snapshot() []coremetrics.PlanEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]coremetrics.PlanEvent(nil), c.events...)
}

func TestEventCollectorRecordsCompletedPlans(t *testing.T) {
	bus := eventbus.New[planner.PlanCompleted]()
	defer bus.Close()
	sink := &captureSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, bus, sink)

	res := &report.Result{
		PlanID: "plan-1",
		Status: report.AllFeasible,
		Schedule: &model.Schedule{
			Horizon: model.DefaultHorizon(4),
			Sessions: []model.SessionResult{
				{VehicleID: "veh0001"},
			},
		},
		Summary:       report.Summary{TotalCost: 3.5},
		SolveDuration: 20 * time.Millisecond,
	}
	bus.Publish(planner.PlanCompleted{Result: res})
	bus.Publish(planner.PlanCompleted{}) // nil result, must be ignored

	deadline := time.After(time.Second)
	for {
		evs := sink.snapshot()
		if len(evs) == 1 {
			ev := evs[0]
			if ev.PlanID != "plan-1" || ev.Status != report.AllFeasible || ev.TotalCost != 3.5 || ev.Sessions != 1 {
				t.Fatalf("unexpected event: %+v", ev)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("collector recorded %d events, want 1", len(evs))
		case <-time.After(5 * time.Millisecond):
		}
	}
}
