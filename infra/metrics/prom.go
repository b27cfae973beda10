package metrics

import (
	coremetrics "github.com/kilianp07/chargeplan/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records plan events in Prometheus metrics.
type PromSink struct {
	plans     *prometheus.CounterVec
	duration  prometheus.Histogram
	shortfall prometheus.Gauge
	lastCost  prometheus.Gauge
}

// NewPromSink registers plan metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	plans := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chargeplan_plans_total",
		Help: "Total number of completed planning runs",
	}, []string{"status"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chargeplan_solve_duration_seconds",
		Help:    "Time spent computing a charging schedule",
		Buckets: prometheus.DefBuckets,
	})
	shortfall := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chargeplan_shortfall_sessions",
		Help: "Number of sessions with unmet demand in the latest plan",
	})
	lastCost := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chargeplan_last_plan_cost",
		Help: "Total energy cost of the latest plan",
	})

	if err := reg.Register(plans); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			plans = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(prometheus.Histogram)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(shortfall); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			shortfall = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(lastCost); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			lastCost = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return &PromSink{plans: plans, duration: duration, shortfall: shortfall, lastCost: lastCost}, nil
}

// RecordPlan increments the counter for the plan status and updates the
// latest-plan gauges.
func (s *PromSink) RecordPlan(ev coremetrics.PlanEvent) error {
	s.plans.WithLabelValues(ev.Status.String()).Inc()
	s.duration.Observe(ev.SolveDuration.Seconds())
	s.shortfall.Set(float64(ev.ShortfallSessions))
	s.lastCost.Set(ev.TotalCost)
	return nil
}
