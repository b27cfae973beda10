package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/chargeplan/core/metrics"
	"github.com/kilianp07/chargeplan/core/model"
	"github.com/kilianp07/chargeplan/infra/logger"
)

// InfluxSink writes plan events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordPlan writes the plan summary as a single point.
func (s *InfluxSink) RecordPlan(ev coremetrics.PlanEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("plan_completed").
		AddTag("plan_id", ev.PlanID).
		AddTag("status", ev.Status.String()).
		AddTag("component", "planner").
		AddField("total_cost", round3(ev.TotalCost)).
		AddField("baseline_cost", round3(ev.BaselineCost)).
		AddField("shortfall_sessions", ev.ShortfallSessions).
		AddField("sessions", ev.Sessions).
		AddField("invalid_records", ev.InvalidRecords).
		AddField("solve_ms", round3(ev.SolveDuration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAggregate writes one point per interval of the aggregate power profile.
func (s *InfluxSink) RecordAggregate(planID string, aggregateKW []float64, slotMinutes int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	base := time.Now().Truncate(time.Duration(slotMinutes) * time.Minute)
	for t, kw := range aggregateKW {
		p := write.NewPointWithMeasurement("plan_aggregate").
			AddTag("plan_id", planID).
			AddTag("component", "planner").
			AddField("interval", t).
			AddField("power_kw", round3(kw)).
			SetTime(base.Add(time.Duration(t*slotMinutes) * time.Minute))
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordSessions writes one point per session outcome.
func (s *InfluxSink) RecordSessions(planID string, sessions []model.SessionResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	now := time.Now()
	for _, sess := range sessions {
		p := write.NewPointWithMeasurement("session_outcome").
			AddTag("plan_id", planID).
			AddTag("vehicle_id", sess.VehicleID).
			AddTag("charger_id", sess.ChargerID).
			AddTag("component", "planner").
			AddField("delivered_kwh", round3(sess.DeliveredKWh)).
			AddField("shortfall_kwh", round3(sess.ShortfallKWh)).
			AddField("capacity_infeasible", sess.CapacityInfeasible).
			SetTime(now)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
