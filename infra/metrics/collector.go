package metrics

import (
	"context"
	"time"

	coremetrics "github.com/kilianp07/chargeplan/core/metrics"
	"github.com/kilianp07/chargeplan/core/planner"
	"github.com/kilianp07/chargeplan/core/report"
	"github.com/kilianp07/chargeplan/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// completed plans. It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus[planner.PlanCompleted], sink coremetrics.Sink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if ev.Result == nil {
					continue
				}
				res := ev.Result
				_ = sink.RecordPlan(coremetrics.PlanEvent{
					PlanID:            res.PlanID,
					Status:            res.Status,
					TotalCost:         res.Summary.TotalCost,
					BaselineCost:      res.Summary.BaselineCost,
					ShortfallSessions: res.Summary.ShortfallSessions,
					Sessions:          sessionCount(res),
					InvalidRecords:    res.Summary.InvalidRecords,
					SolveDuration:     res.SolveDuration,
					Time:              time.Now(),
				})
				if res.Schedule != nil {
					if rec, ok := sink.(coremetrics.AggregateRecorder); ok {
						_ = rec.RecordAggregate(res.PlanID, res.Schedule.AggregateKW, res.Schedule.Horizon.SlotMinutes)
					}
					if rec, ok := sink.(coremetrics.SessionRecorder); ok {
						_ = rec.RecordSessions(res.PlanID, res.Schedule.Sessions)
					}
				}
			}
		}
	}()
}

func sessionCount(res *report.Result) int {
	if res.Schedule == nil {
		return 0
	}
	return len(res.Schedule.Sessions)
}
