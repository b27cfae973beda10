// Package materialize turns a continuous allocation into the concrete
// per-interval schedule and verifies every schedule invariant numerically
// before anything downstream consumes it.
package materialize

import (
	"fmt"
	"sort"

	"github.com/kilianp07/chargeplan/core/feasibility"
	"github.com/kilianp07/chargeplan/core/model"
	"github.com/kilianp07/chargeplan/core/solver"
)

// Eps is the numerical tolerance for invariant verification and delivered
// energy comparison.
const Eps = 1e-6

// Build assembles the final schedule from the allocation and verifies it.
// Feasibility results must be index-aligned with sessions. A verification
// failure is a SolverFailureError: the allocator produced something the
// constraints forbid, and no schedule is returned.
func Build(h model.Horizon, sessions []model.Session, network model.Network, prices model.PriceCurve, feas []feasibility.Result, alloc model.Allocation) (*model.Schedule, error) {
	if err := verify(h, sessions, network, alloc); err != nil {
		return nil, err
	}

	slotHours := h.SlotHours()
	sched := &model.Schedule{
		Horizon:     h,
		AggregateKW: make([]float64, h.Slots),
	}
	for i, s := range sessions {
		powers := alloc[s.VehicleID]
		var delivered float64
		for t, p := range powers {
			delivered += p * slotHours
			sched.AggregateKW[t] += p
			sched.TotalCost += prices.At(t) * p * slotHours
		}
		shortfall := s.DeficitKWh() - delivered
		if shortfall < 0 {
			shortfall = 0
		}
		cp := make([]float64, len(powers))
		copy(cp, powers)
		sched.Sessions = append(sched.Sessions, model.SessionResult{
			VehicleID:          s.VehicleID,
			ChargerID:          s.ChargerID,
			PowerKW:            cp,
			DeliveredKWh:       delivered,
			ShortfallKWh:       shortfall,
			CapacityInfeasible: feas[i].CapacityInfeasible,
		})
	}
	sort.Slice(sched.Sessions, func(i, j int) bool {
		return sched.Sessions[i].VehicleID < sched.Sessions[j].VehicleID
	})
	return sched, nil
}

// verify checks invariants 1-6 within Eps and collects every violation.
func verify(h model.Horizon, sessions []model.Session, network model.Network, alloc model.Allocation) error {
	var residuals []solver.Residual
	slotHours := h.SlotHours()

	chargerSum := make(map[string][]float64, len(network.Chargers))
	for _, c := range network.Chargers {
		chargerSum[c.ID] = make([]float64, h.Slots)
	}
	netSum := make([]float64, h.Slots)

	for _, s := range sessions {
		powers, ok := alloc[s.VehicleID]
		if !ok || len(powers) != h.Slots {
			residuals = append(residuals, solver.Residual{
				Constraint: fmt.Sprintf("allocation[%s]", s.VehicleID),
				Amount:     float64(h.Slots - len(powers)),
			})
			continue
		}
		rateCap := s.RateCapKW(network)
		var delivered float64
		for t, p := range powers {
			if p < -Eps {
				residuals = append(residuals, solver.Residual{
					Constraint: fmt.Sprintf("nonneg[%s,%d]", s.VehicleID, t),
					Amount:     -p,
				})
			}
			if p > Eps && !s.InWindow(t) {
				residuals = append(residuals, solver.Residual{
					Constraint: fmt.Sprintf("window[%s,%d]", s.VehicleID, t),
					Amount:     p,
				})
			}
			if p > rateCap+Eps {
				residuals = append(residuals, solver.Residual{
					Constraint: fmt.Sprintf("rate[%s,%d]", s.VehicleID, t),
					Amount:     p - rateCap,
				})
			}
			delivered += p * slotHours
			netSum[t] += p
			if sums, ok := chargerSum[s.ChargerID]; ok {
				sums[t] += p
			}
		}
		if delivered > s.DeficitKWh()+Eps {
			residuals = append(residuals, solver.Residual{
				Constraint: fmt.Sprintf("overcharge[%s]", s.VehicleID),
				Amount:     delivered - s.DeficitKWh(),
			})
		}
		if s.InitialKWh+delivered > s.CapacityKWh+Eps {
			residuals = append(residuals, solver.Residual{
				Constraint: fmt.Sprintf("capacity[%s]", s.VehicleID),
				Amount:     s.InitialKWh + delivered - s.CapacityKWh,
			})
		}
	}

	for _, c := range network.Chargers {
		for t, sum := range chargerSum[c.ID] {
			if sum > c.MaxPowerKW+Eps {
				residuals = append(residuals, solver.Residual{
					Constraint: fmt.Sprintf("charger[%s,%d]", c.ID, t),
					Amount:     sum - c.MaxPowerKW,
				})
			}
		}
	}
	for t, sum := range netSum {
		if limit := network.LimitAt(t); sum > limit+Eps {
			residuals = append(residuals, solver.Residual{
				Constraint: fmt.Sprintf("network[%d]", t),
				Amount:     sum - limit,
			})
		}
	}

	if len(residuals) > 0 {
		return &solver.SolverFailureError{Reason: "schedule verification failed", Residuals: residuals}
	}
	return nil
}
