package solver

import (
	"fmt"
	"strings"
)

// NetworkOverCommitError reports a configuration defect: the aggregate
// network limit is non-positive during an interval where at least one session
// still needs energy. The solve aborts, no schedule is produced.
type NetworkOverCommitError struct {
	Interval int
	LimitKW  float64
}

func (e *NetworkOverCommitError) Error() string {
	return fmt.Sprintf("network limit %.3f kW at interval %d with active charging demand", e.LimitKW, e.Interval)
}

// Residual quantifies one violated constraint for diagnosis.
type Residual struct {
	Constraint string
	Amount     float64
}

// SolverFailureError reports numerical non-convergence after the relaxed
// retry, or a verification failure on the produced schedule. It carries the
// residual constraint violations.
type SolverFailureError struct {
	Reason    string
	Residuals []Residual
}

func (e *SolverFailureError) Error() string {
	if len(e.Residuals) == 0 {
		return e.Reason
	}
	parts := make([]string, len(e.Residuals))
	for i, r := range e.Residuals {
		parts[i] = fmt.Sprintf("%s=%.6f", r.Constraint, r.Amount)
	}
	return fmt.Sprintf("%s (residuals: %s)", e.Reason, strings.Join(parts, ", "))
}
