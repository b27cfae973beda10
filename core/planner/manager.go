package planner

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kilianp07/chargeplan/core/logger"
	"github.com/kilianp07/chargeplan/core/report"
	"github.com/kilianp07/chargeplan/internal/eventbus"
)

// PlanCompleted is published on the bus after every finished solve.
type PlanCompleted struct {
	Result *report.Result
}

// Manager serializes replanning: each submitted snapshot cancels the
// in-flight solve, and a completed solve is swapped in atomically only when
// it has not been superseded. Discarded solves have no side effects.
type Manager struct {
	planner *Planner
	bus     eventbus.EventBus[PlanCompleted]
	log     logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
	wg     sync.WaitGroup

	latest atomic.Pointer[report.Result]
}

// NewManager creates a replanning manager. The bus may be nil when no one
// consumes completion events.
func NewManager(p *Planner, bus eventbus.EventBus[PlanCompleted], log logger.Logger) *Manager {
	return &Manager{planner: p, bus: bus, log: log}
}

// Latest returns the most recent completed result, or nil before the first
// solve finishes.
func (m *Manager) Latest() *report.Result {
	return m.latest.Load()
}

// Submit starts a solve for the snapshot, cancelling any solve in flight.
// It returns immediately; the outcome is observable via Latest, Wait and the
// PlanCompleted bus event.
func (m *Manager) Submit(ctx context.Context, snap Snapshot) {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.gen++
	gen := m.gen
	solveCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer cancel()
		res, err := m.planner.Plan(solveCtx, snap)
		if solveCtx.Err() != nil {
			m.log.Debugf("solve superseded, result discarded")
			return
		}
		if err != nil {
			m.log.Errorf("solve failed: %v", err)
		}
		if res == nil {
			return
		}
		m.mu.Lock()
		current := gen == m.gen
		m.mu.Unlock()
		if !current {
			return
		}
		m.latest.Store(res)
		if m.bus != nil {
			m.bus.Publish(PlanCompleted{Result: res})
		}
	}()
}

// Wait blocks until every submitted solve has finished or been discarded.
func (m *Manager) Wait() {
	m.wg.Wait()
}
