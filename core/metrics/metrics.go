// Package metrics defines the observability events emitted by the planner and
// the sink interface adapters implement.
package metrics

import (
	"time"

	"github.com/kilianp07/chargeplan/core/model"
	"github.com/kilianp07/chargeplan/core/report"
)

// PlanEvent summarizes a completed planning run.
type PlanEvent struct {
	PlanID            string
	Status            report.Status
	TotalCost         float64
	BaselineCost      float64
	ShortfallSessions int
	Sessions          int
	InvalidRecords    int
	SolveDuration     time.Duration
	Time              time.Time
}

// Sink records plan events for observability purposes.
type Sink interface {
	RecordPlan(ev PlanEvent) error
}

// AggregateRecorder records the per-interval aggregate power profile of a
// schedule. Optional: sinks that only track counters skip it.
type AggregateRecorder interface {
	RecordAggregate(planID string, aggregateKW []float64, slotMinutes int) error
}

// SessionRecorder records per-session outcomes of a schedule. Optional, like
// AggregateRecorder.
type SessionRecorder interface {
	RecordSessions(planID string, sessions []model.SessionResult) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordPlan(PlanEvent) error { return nil }

// Config holds sink selection and connection settings.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PrometheusPort == "" {
		c.PrometheusPort = "2112"
	}
}
