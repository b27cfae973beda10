// Package solver computes the cost-minimizing power allocation for one
// planning cycle. The contract is a transportation-style linear program over
// continuous per-session per-interval power variables; both implementations
// satisfy it. GreedyAllocator is the water-filling decomposition of that LP
// and always terminates with quantified shortfalls. LPAllocator solves the
// explicit program with the gonum simplex and falls back to the greedy when
// capacity contention makes the equality system infeasible.
package solver
