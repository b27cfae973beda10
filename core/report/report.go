// Package report assembles solve outcomes into the output record consumed by
// external reporting and persistence. It performs no optimization.
package report

import (
	"time"

	"github.com/kilianp07/chargeplan/core/materialize"
	"github.com/kilianp07/chargeplan/core/model"
	"github.com/kilianp07/chargeplan/core/normalize"
)

// Status classifies the outcome of one planning cycle.
type Status int

const (
	// AllFeasible: every valid session reaches its target.
	AllFeasible Status = iota
	// PartialShortfall: the schedule is valid but some sessions are
	// under-delivered, either by their own window limits or by contention.
	PartialShortfall
	// Fatal: no usable schedule was produced.
	Fatal
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case AllFeasible:
		return "AllFeasible"
	case PartialShortfall:
		return "PartialShortfall"
	case Fatal:
		return "Fatal"
	default:
		return "unknown"
	}
}

// Summary aggregates schedule-wide figures.
type Summary struct {
	TotalCost         float64   `json:"total_cost"`
	BaselineCost      float64   `json:"baseline_cost,omitempty"`
	SavingsPct        float64   `json:"savings_pct,omitempty"`
	ShortfallSessions int       `json:"shortfall_sessions"`
	InvalidRecords    int       `json:"invalid_records"`
	AggregateKW       []float64 `json:"aggregate_kw"`
}

// Result is the full outcome of one planning cycle.
type Result struct {
	PlanID      string
	Status      Status
	Schedule    *model.Schedule
	Summary     Summary
	InputErrors []*normalize.RecordError
	// SolveDuration is the wall-clock time of the planning cycle.
	SolveDuration time.Duration
	// Err holds the fatal error when Status is Fatal.
	Err error
}

// Assemble builds the Result for a completed solve.
func Assemble(planID string, sched *model.Schedule, inputErrs []*normalize.RecordError) *Result {
	shortfalls := 0
	for _, s := range sched.Sessions {
		// Residuals below the solver tolerance are rounding noise, not a
		// real shortfall.
		if s.ShortfallKWh > materialize.Eps {
			shortfalls++
		}
	}
	status := AllFeasible
	if shortfalls > 0 {
		status = PartialShortfall
	}
	return &Result{
		PlanID:   planID,
		Status:   status,
		Schedule: sched,
		Summary: Summary{
			TotalCost:         sched.TotalCost,
			ShortfallSessions: shortfalls,
			InvalidRecords:    len(inputErrs),
			AggregateKW:       sched.AggregateKW,
		},
		InputErrors: inputErrs,
	}
}

// Failed builds the Result for an aborted solve.
func Failed(planID string, err error, inputErrs []*normalize.RecordError) *Result {
	return &Result{
		PlanID:      planID,
		Status:      Fatal,
		Summary:     Summary{InvalidRecords: len(inputErrs)},
		InputErrors: inputErrs,
		Err:         err,
	}
}

// WithBaseline records the comparison against the charge-on-arrival baseline.
func (r *Result) WithBaseline(baselineCost float64) *Result {
	r.Summary.BaselineCost = baselineCost
	if baselineCost > 0 {
		r.Summary.SavingsPct = (baselineCost - r.Summary.TotalCost) / baselineCost * 100
	}
	return r
}
