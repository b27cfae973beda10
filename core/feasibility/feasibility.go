// Package feasibility determines, per session and in isolation, how much
// energy the network can physically deliver inside the session's window. The
// result bounds the targets the allocator is asked to meet: a session whose
// deficit exceeds its isolated bound carries an unavoidable shortfall no
// matter how the shared capacity is split.
package feasibility

import (
	"sync"

	"github.com/kilianp07/chargeplan/core/model"
)

// Result is the isolated capacity analysis for one session.
type Result struct {
	VehicleID string
	// BoundKWh is the maximum energy deliverable with exclusive use of the
	// session's charger at full rate for the whole window.
	BoundKWh float64
	// EffectiveTargetKWh is the deficit the allocator should plan for. It
	// equals the original deficit unless the session is capacity-infeasible.
	EffectiveTargetKWh float64
	// MinShortfallKWh is the unavoidable shortfall, zero for feasible sessions.
	MinShortfallKWh float64
	// CapacityInfeasible is true when the window and rate limits alone make
	// the original target unreachable.
	CapacityInfeasible bool
}

// Analyze computes the isolated bound for every session. Sessions are
// independent, so the checks run concurrently over the shared read-only
// network. Results are index-aligned with the input slice.
func Analyze(sessions []model.Session, network model.Network, h model.Horizon) []Result {
	results := make([]Result, len(sessions))
	var wg sync.WaitGroup
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = analyzeOne(sessions[i], network, h)
		}(i)
	}
	wg.Wait()
	return results
}

func analyzeOne(s model.Session, network model.Network, h model.Horizon) Result {
	deficit := s.DeficitKWh()
	bound := float64(s.WindowSlots()) * h.SlotHours() * s.RateCapKW(network)
	if bound > deficit {
		bound = deficit
	}
	r := Result{VehicleID: s.VehicleID, BoundKWh: bound, EffectiveTargetKWh: deficit}
	if bound < deficit {
		r.CapacityInfeasible = true
		r.EffectiveTargetKWh = bound
		r.MinShortfallKWh = deficit - bound
	}
	return r
}
