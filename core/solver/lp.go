package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/chargeplan/core/model"
)

// simplexTol is the convergence tolerance of the first solve attempt; the
// retry relaxes it by relaxFactor.
const (
	simplexTol  = 1e-7
	relaxFactor = 100
	// deliveryTol bounds the acceptable gap between LP-delivered energy and
	// the requested deficit before the greedy fallback takes over.
	deliveryTol = 1e-3
)

// LPAllocator solves the explicit linear program with the gonum simplex. The
// equality constraints demand exact delivery of every effective deficit, so a
// contended network makes the program infeasible; the embedded greedy then
// produces the best-effort allocation with explicit shortfalls.
type LPAllocator struct {
	Greedy GreedyAllocator
}

// lpVar identifies one p[s,t] variable of the program.
type lpVar struct {
	session int
	t       int
}

type lpProgram struct {
	vars []lpVar
	c    []float64
	g    *mat.Dense
	h    []float64
	a    *mat.Dense
	b    []float64
}

// lpSolve points to the function used to solve the standard-form program. It
// can be overridden in tests to simulate solver failures.
var lpSolve = solveSimplex

func solveSimplex(p lpProgram, tol float64) ([]float64, error) {
	cStd, aStd, bStd := lp.Convert(p.c, p.g, p.h, p.a, p.b)
	_, sol, err := lp.Simplex(cStd, aStd, bStd, tol, nil)
	if err != nil {
		return nil, err
	}
	return sol[:len(p.vars)], nil
}

// Allocate implements the Allocator interface.
func (d LPAllocator) Allocate(ctx context.Context, req Request) (model.Allocation, error) {
	if err := checkOverCommit(req); err != nil {
		return nil, err
	}
	prog := buildProgram(req)
	if len(prog.vars) == 0 {
		return newAllocation(req), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sol, err := lpSolve(prog, simplexTol)
	if err != nil && !errors.Is(err, lp.ErrInfeasible) {
		sol, err = lpSolve(prog, simplexTol*relaxFactor)
	}
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			// Contention, not a numerical defect: deliver best effort.
			return d.Greedy.Allocate(ctx, req)
		}
		return nil, &SolverFailureError{
			Reason:    fmt.Sprintf("simplex did not converge: %v", err),
			Residuals: demandResiduals(req, nil),
		}
	}

	alloc := buildAllocation(req, prog, sol)
	if !deliveryMatches(req, alloc) {
		return d.Greedy.Allocate(ctx, req)
	}
	return alloc, nil
}

// buildProgram lays out the LP: minimize sum(price*Δt*p) subject to per-var
// bounds, per-charger and network capacity rows (G) and per-session energy
// equality rows (A).
func buildProgram(req Request) lpProgram {
	slotHours := req.Horizon.SlotHours()
	var prog lpProgram
	varsAt := make([][]int, req.Horizon.Slots)
	for i, s := range req.Sessions {
		if req.DeficitsKWh[i] <= epsKW {
			continue
		}
		for t := s.Arrival; t < s.Departure; t++ {
			varsAt[t] = append(varsAt[t], len(prog.vars))
			prog.vars = append(prog.vars, lpVar{session: i, t: t})
			prog.c = append(prog.c, req.Prices.At(t)*slotHours)
		}
	}
	n := len(prog.vars)
	if n == 0 {
		return prog
	}

	type row struct {
		coeff map[int]float64
		bound float64
	}
	var ineq []row
	for j, v := range prog.vars {
		cap := req.Sessions[v.session].RateCapKW(req.Network)
		ineq = append(ineq, row{coeff: map[int]float64{j: 1}, bound: cap})
		ineq = append(ineq, row{coeff: map[int]float64{j: -1}, bound: 0})
	}
	for t := 0; t < req.Horizon.Slots; t++ {
		if len(varsAt[t]) == 0 {
			continue
		}
		if limit := req.Network.LimitAt(t); !math.IsInf(limit, 1) {
			coeff := make(map[int]float64, len(varsAt[t]))
			for _, j := range varsAt[t] {
				coeff[j] = 1
			}
			ineq = append(ineq, row{coeff: coeff, bound: limit})
		}
		byCharger := make(map[string][]int)
		for _, j := range varsAt[t] {
			id := req.Sessions[prog.vars[j].session].ChargerID
			byCharger[id] = append(byCharger[id], j)
		}
		for id, js := range byCharger {
			if len(js) < 2 {
				continue // the per-var bound already enforces the charger cap
			}
			c, _ := req.Network.Charger(id)
			coeff := make(map[int]float64, len(js))
			for _, j := range js {
				coeff[j] = 1
			}
			ineq = append(ineq, row{coeff: coeff, bound: c.MaxPowerKW})
		}
	}

	prog.g = mat.NewDense(len(ineq), n, nil)
	prog.h = make([]float64, len(ineq))
	for r, rw := range ineq {
		for j, v := range rw.coeff {
			prog.g.Set(r, j, v)
		}
		prog.h[r] = rw.bound
	}

	var eqRows []int
	for i := range req.Sessions {
		if req.DeficitsKWh[i] > epsKW {
			eqRows = append(eqRows, i)
		}
	}
	prog.a = mat.NewDense(len(eqRows), n, nil)
	prog.b = make([]float64, len(eqRows))
	for r, i := range eqRows {
		for j, v := range prog.vars {
			if v.session == i {
				prog.a.Set(r, j, slotHours)
			}
		}
		prog.b[r] = req.DeficitsKWh[i]
	}
	return prog
}

func buildAllocation(req Request, prog lpProgram, sol []float64) model.Allocation {
	alloc := newAllocation(req)
	for j, v := range prog.vars {
		p := sol[j]
		if p < 0 {
			p = 0
		}
		if cap := req.Sessions[v.session].RateCapKW(req.Network); p > cap {
			p = cap
		}
		alloc[req.Sessions[v.session].VehicleID][v.t] = p
	}
	return alloc
}

func deliveryMatches(req Request, alloc model.Allocation) bool {
	slotHours := req.Horizon.SlotHours()
	for i, s := range req.Sessions {
		var delivered float64
		for _, p := range alloc[s.VehicleID] {
			delivered += p * slotHours
		}
		if math.Abs(delivered-req.DeficitsKWh[i]) > deliveryTol {
			return false
		}
	}
	return true
}

// demandResiduals quantifies unmet per-session energy for diagnostics.
func demandResiduals(req Request, alloc model.Allocation) []Residual {
	slotHours := req.Horizon.SlotHours()
	var out []Residual
	for i, s := range req.Sessions {
		if req.DeficitsKWh[i] <= epsKW {
			continue
		}
		var delivered float64
		if alloc != nil {
			for _, p := range alloc[s.VehicleID] {
				delivered += p * slotHours
			}
		}
		out = append(out, Residual{
			Constraint: fmt.Sprintf("energy[%s]", s.VehicleID),
			Amount:     req.DeficitsKWh[i] - delivered,
		})
	}
	return out
}
