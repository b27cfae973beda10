// Package planner wires the planning pipeline: normalization, feasibility
// analysis, allocation, materialization and reporting run in order over one
// immutable snapshot per cycle.
package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/chargeplan/core/feasibility"
	"github.com/kilianp07/chargeplan/core/logger"
	"github.com/kilianp07/chargeplan/core/materialize"
	"github.com/kilianp07/chargeplan/core/model"
	"github.com/kilianp07/chargeplan/core/normalize"
	"github.com/kilianp07/chargeplan/core/report"
	"github.com/kilianp07/chargeplan/core/solver"
)

// Snapshot is the self-contained input of one planning cycle. A snapshot is
// never mutated after submission; replanning means submitting a new one.
type Snapshot struct {
	Horizon  model.Horizon             `json:"horizon"`
	Sessions []normalize.SessionRecord `json:"sessions"`
	Chargers []normalize.ChargerRecord `json:"chargers"`
	Prices   []normalize.PricePoint    `json:"prices"`
	Limits   []normalize.LimitPoint    `json:"limits,omitempty"`
}

// Planner runs the batch pipeline with a configured allocator.
type Planner struct {
	alloc solver.Allocator
	log   logger.Logger
	// WithBaseline enables the charge-on-arrival cost comparison.
	WithBaseline bool
}

// New creates a Planner. A nil allocator defaults to the LP allocator with
// greedy fallback.
func New(alloc solver.Allocator, log logger.Logger) *Planner {
	if alloc == nil {
		alloc = solver.LPAllocator{}
	}
	return &Planner{alloc: alloc, log: log, WithBaseline: true}
}

// Plan executes one full planning cycle. Fatal conditions return a Result
// with Status Fatal alongside the error; per-record problems are absorbed
// into the result.
func (p *Planner) Plan(ctx context.Context, snap Snapshot) (*report.Result, error) {
	planID := uuid.NewString()
	start := time.Now()

	norm, recErrs, err := normalize.Normalize(normalize.Input{
		Horizon:  snap.Horizon,
		Sessions: snap.Sessions,
		Chargers: snap.Chargers,
		Prices:   snap.Prices,
		Limits:   snap.Limits,
	})
	if err != nil {
		return report.Failed(planID, err, recErrs), fmt.Errorf("normalize: %w", err)
	}
	for _, re := range recErrs {
		p.log.Warnf("record excluded: %v", re)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	feas := feasibility.Analyze(norm.Sessions, norm.Network, norm.Horizon)
	deficits := make([]float64, len(feas))
	for i, f := range feas {
		deficits[i] = f.EffectiveTargetKWh
		if f.CapacityInfeasible {
			p.log.Infof("session %s capacity-infeasible: target reduced to %.3f kWh", f.VehicleID, f.EffectiveTargetKWh)
		}
	}

	req := solver.Request{
		Horizon:     norm.Horizon,
		Sessions:    norm.Sessions,
		DeficitsKWh: deficits,
		Network:     norm.Network,
		Prices:      norm.Prices,
	}
	alloc, err := p.alloc.Allocate(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return report.Failed(planID, err, recErrs), fmt.Errorf("allocate: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sched, err := materialize.Build(norm.Horizon, norm.Sessions, norm.Network, norm.Prices, feas, alloc)
	if err != nil {
		return report.Failed(planID, err, recErrs), fmt.Errorf("materialize: %w", err)
	}
	sched.PlanID = planID

	res := report.Assemble(planID, sched, recErrs)
	if p.WithBaseline {
		if base, err := (solver.BaselineAllocator{}).Allocate(ctx, req); err == nil {
			res.WithBaseline(solver.Cost(base, norm.Prices, norm.Horizon))
		}
	}
	res.SolveDuration = time.Since(start)
	p.log.Infof("plan %s: status=%s cost=%.4f shortfalls=%d", planID, res.Status, res.Summary.TotalCost, res.Summary.ShortfallSessions)
	return res, nil
}
