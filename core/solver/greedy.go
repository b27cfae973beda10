package solver

import (
	"context"
	"sort"

	"github.com/kilianp07/chargeplan/core/model"
)

// GreedyAllocator fills intervals in ascending price order. At each interval
// the remaining charger and network capacity goes first to the eligible
// session with the earliest departure: a session whose window closes soon
// cannot wait for another slot, while one with a longer window can. Within
// equal departures the larger remaining deficit wins, ties broken by
// ascending vehicle ID. For the box-and-flow constraints of this problem the
// result attains the LP optimum, and unmet demand surfaces as per-session
// shortfall instead of an infeasibility.
type GreedyAllocator struct{}

// Allocate implements the Allocator interface.
func (GreedyAllocator) Allocate(ctx context.Context, req Request) (model.Allocation, error) {
	if err := checkOverCommit(req); err != nil {
		return nil, err
	}
	alloc := newAllocation(req)
	remaining := append([]float64(nil), req.DeficitsKWh...)
	slotHours := req.Horizon.SlotHours()

	for _, t := range priceOrder(req.Prices) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		netRes := req.Network.LimitAt(t)
		if netRes <= epsKW {
			continue
		}
		idxs := eligibleAt(req, remaining, t)
		if len(idxs) == 0 {
			continue
		}
		chargerRes := make(map[string]float64, len(req.Network.Chargers))
		for _, c := range req.Network.Chargers {
			chargerRes[c.ID] = c.MaxPowerKW
		}
		for _, i := range idxs {
			s := req.Sessions[i]
			p := s.RateCapKW(req.Network)
			if res, ok := chargerRes[s.ChargerID]; ok && res < p {
				p = res
			}
			if netRes < p {
				p = netRes
			}
			if need := remaining[i] / slotHours; need < p {
				p = need
			}
			if p <= epsKW {
				continue
			}
			alloc[s.VehicleID][t] = p
			remaining[i] -= p * slotHours
			chargerRes[s.ChargerID] -= p
			netRes -= p
			if netRes <= epsKW {
				break
			}
		}
	}
	return alloc, nil
}

// eligibleAt returns indices of sessions that may charge at t and still need
// energy, ordered by ascending departure, then descending remaining deficit,
// then ascending vehicle ID. Departure comes first so that a closing window
// is never starved by a session that can shift to a later interval.
func eligibleAt(req Request, remaining []float64, t int) []int {
	var idxs []int
	for i, s := range req.Sessions {
		if s.InWindow(t) && remaining[i] > epsKW {
			idxs = append(idxs, i)
		}
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		sa, sb := req.Sessions[idxs[a]], req.Sessions[idxs[b]]
		if sa.Departure != sb.Departure {
			return sa.Departure < sb.Departure
		}
		ra, rb := remaining[idxs[a]], remaining[idxs[b]]
		if ra != rb {
			return ra > rb
		}
		return sa.VehicleID < sb.VehicleID
	})
	return idxs
}
