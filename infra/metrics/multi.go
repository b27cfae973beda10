package metrics

import (
	coremetrics "github.com/kilianp07/chargeplan/core/metrics"
	"github.com/kilianp07/chargeplan/core/model"
)

// MultiSink fans plan events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPlan forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordPlan(ev coremetrics.PlanEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordPlan(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordSessions forwards per-session outcomes to sinks that support them.
func (m *MultiSink) RecordSessions(planID string, sessions []model.SessionResult) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.SessionRecorder); ok {
			if err := rec.RecordSessions(planID, sessions); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordAggregate forwards the aggregate profile to sinks that support it.
func (m *MultiSink) RecordAggregate(planID string, aggregateKW []float64, slotMinutes int) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.AggregateRecorder); ok {
			if err := rec.RecordAggregate(planID, aggregateKW, slotMinutes); err != nil {
				return err
			}
		}
	}
	return nil
}
