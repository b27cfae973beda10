package solver

import (
	"context"
	"sort"

	"github.com/kilianp07/chargeplan/core/model"
)

// epsKW is the smallest power worth assigning; residuals below it are noise.
const epsKW = 1e-9

// Request is one immutable solve input. DeficitsKWh carries the effective
// per-session energy deficit after feasibility reduction, index-aligned with
// Sessions.
type Request struct {
	Horizon     model.Horizon
	Sessions    []model.Session
	DeficitsKWh []float64
	Network     model.Network
	Prices      model.PriceCurve
}

// Allocator computes a power allocation for one planning cycle.
type Allocator interface {
	Allocate(ctx context.Context, req Request) (model.Allocation, error)
}

// checkOverCommit scans for intervals where the network limit is non-positive
// while a session with remaining demand could charge there.
func checkOverCommit(req Request) error {
	for t := 0; t < req.Horizon.Slots; t++ {
		limit := req.Network.LimitAt(t)
		if limit > 0 {
			continue
		}
		for i, s := range req.Sessions {
			if req.DeficitsKWh[i] > epsKW && s.InWindow(t) {
				return &NetworkOverCommitError{Interval: t, LimitKW: limit}
			}
		}
	}
	return nil
}

// priceOrder returns interval indices sorted by ascending price. Equal prices
// keep ascending index order, which minimizes the latest interval at which
// any session finishes charging.
func priceOrder(prices model.PriceCurve) []int {
	order := make([]int, prices.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := prices.At(order[a]), prices.At(order[b])
		if pa != pb {
			return pa < pb
		}
		return order[a] < order[b]
	})
	return order
}

func newAllocation(req Request) model.Allocation {
	alloc := make(model.Allocation, len(req.Sessions))
	for _, s := range req.Sessions {
		alloc[s.VehicleID] = make([]float64, req.Horizon.Slots)
	}
	return alloc
}

// Cost computes the total cost of an allocation against the price curve.
func Cost(alloc model.Allocation, prices model.PriceCurve, h model.Horizon) float64 {
	var total float64
	for _, powers := range alloc {
		for t, p := range powers {
			total += prices.At(t) * p * h.SlotHours()
		}
	}
	return total
}
