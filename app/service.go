// Package app wires configuration, transport, metrics and the planner into a
// long-running service.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/kilianp07/chargeplan/config"
	"github.com/kilianp07/chargeplan/core/planner"
	"github.com/kilianp07/chargeplan/core/solver"
	"github.com/kilianp07/chargeplan/infra/logger"
	"github.com/kilianp07/chargeplan/infra/metrics"
	"github.com/kilianp07/chargeplan/infra/mqtt"
	"github.com/kilianp07/chargeplan/internal/eventbus"
)

// Service orchestrates the replanning manager and its adapters: snapshots
// arrive over MQTT, completed plans are published back and recorded by the
// metrics sinks.
type Service struct {
	Manager *planner.Manager

	cfg    *config.Config
	client *mqtt.PahoClient
	bus    eventbus.EventBus[planner.PlanCompleted]
	log    logger.Logger
}

// NewAllocator builds the allocator named in the solver config.
func NewAllocator(cfg config.SolverConfig) (solver.Allocator, error) {
	switch cfg.Allocator {
	case "lp", "":
		return solver.LPAllocator{}, nil
	case "greedy":
		return solver.GreedyAllocator{}, nil
	case "baseline":
		return solver.BaselineAllocator{}, nil
	default:
		return nil, fmt.Errorf("unknown allocator %s", cfg.Allocator)
	}
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	alloc, err := NewAllocator(cfg.Solver)
	if err != nil {
		return nil, err
	}
	pl := planner.New(alloc, logger.New("planner"))
	pl.WithBaseline = cfg.Solver.WithBaseline

	bus := eventbus.New[planner.PlanCompleted]()
	manager := planner.NewManager(pl, bus, logg)

	svc := &Service{Manager: manager, cfg: cfg, bus: bus, log: logg}
	return svc, nil
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	sink, err := metrics.NewSink(s.cfg.Metrics)
	if err != nil {
		return fmt.Errorf("metrics sink: %w", err)
	}
	metrics.StartEventCollector(ctx, s.bus, sink)

	client, err := mqtt.NewPahoClient(s.cfg.MQTT, func(snap planner.Snapshot) {
		if snap.Horizon.Slots == 0 {
			snap.Horizon.Slots = s.cfg.Horizon.Slots
			snap.Horizon.SlotMinutes = s.cfg.Horizon.SlotMinutes
		}
		s.Manager.Submit(ctx, snap)
	})
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	s.client = client

	sub := s.bus.Subscribe()
	go func() {
		defer s.bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if ev.Result == nil {
					continue
				}
				if err := client.PublishPlan(ev.Result); err != nil {
					s.log.Errorf("publish plan: %v", err)
				}
			}
		}
	}()

	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, promAddr(s.cfg.Metrics.PrometheusPort)); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	s.log.Infof("service started, waiting for snapshots on %s", s.cfg.MQTT.SnapshotTopic)
	<-ctx.Done()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.Manager.Wait()
	s.bus.Close()
	if s.client != nil {
		s.client.Disconnect()
	}
	return nil
}

func promAddr(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}
