package solver

import (
	"context"
	"sort"

	"github.com/kilianp07/chargeplan/core/model"
)

// BaselineAllocator charges every vehicle at full feasible rate from the
// moment it arrives, ignoring prices. It satisfies the same constraints as
// the optimizing allocators and serves as the cost reference a price-aware
// schedule is compared against.
type BaselineAllocator struct{}

// Allocate implements the Allocator interface.
func (BaselineAllocator) Allocate(ctx context.Context, req Request) (model.Allocation, error) {
	if err := checkOverCommit(req); err != nil {
		return nil, err
	}
	alloc := newAllocation(req)
	remaining := append([]float64(nil), req.DeficitsKWh...)
	slotHours := req.Horizon.SlotHours()

	for t := 0; t < req.Horizon.Slots; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		netRes := req.Network.LimitAt(t)
		if netRes <= epsKW {
			continue
		}
		idxs := arrivalsAt(req, remaining, t)
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

// arrivalsAt orders eligible sessions by earliest arrival then vehicle ID, the
// first-come-first-served order a plug-and-charge fleet exhibits.
func arrivalsAt(req Request, remaining []float64, t int) []int {
	var idxs []int
	for i, s := range req.Sessions {
		if s.InWindow(t) && remaining[i] > epsKW {
			idxs = append(idxs, i)
		}
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		sa, sb := req.Sessions[idxs[a]], req.Sessions[idxs[b]]
		if sa.Arrival != sb.Arrival {
			return sa.Arrival < sb.Arrival
		}
		return sa.VehicleID < sb.VehicleID
	})
	return idxs
}
