// Package metrics exports schedule metrics to Prometheus and InfluxDB.
package metrics

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/fleetplan/core/assign"
	"github.com/kilianp07/fleetplan/core/schedule"
	"github.com/kilianp07/fleetplan/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket receiving pass points.
type InfluxConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Token   string `json:"token"`
	Org     string `json:"org"`
	Bucket  string `json:"bucket"`
}

// Validate checks the fields required when the sink is enabled.
func (c InfluxConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.URL == "" || c.Org == "" || c.Bucket == "" {
		return fmt.Errorf("influx: url, org and bucket are required")
	}
	return nil
}

// InfluxSink writes one point per assignment pass and one per aircraft.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// Ping checks that the InfluxDB instance reports a passing health status.
func (s *InfluxSink) Ping(ctx context.Context) error {
	health, err := s.client.Health(ctx)
	if err != nil {
		return err
	}
	if health.Status != "pass" {
		return fmt.Errorf("influx health status: %s", health.Status)
	}
	return nil
}

// RecordPass writes the summary of a pass and the ferry hours of every
// aircraft.
func (s *InfluxSink) RecordPass(ctx context.Context, ev schedule.PassEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, PassPoints(ev)...)
}

// Run records every event received on events until ctx is done or the
// channel is closed.
func (s *InfluxSink) Run(ctx context.Context, events <-chan schedule.PassEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := s.RecordPass(ctx, ev); err != nil {
				s.log.Errorf("influx write for pass %s: %v", ev.ID, err)
			}
		}
	}
}

// Close flushes and closes the client.
func (s *InfluxSink) Close() { s.client.Close() }

// PassPoints converts a pass event to line protocol points. Tags are kept to
// bounded sets; the pass id is a field.
func PassPoints(ev schedule.PassEvent) []*write.Point {
	snap := ev.Snapshot
	unassigned, segments := 0, 0
	for _, v := range snap.Schedule {
		switch {
		case v.IsAutoGenerated:
			segments++
		case v.AssignedRegistration == "":
			unassigned++
		}
	}
	points := []*write.Point{
		write.NewPointWithMeasurement("assignment_pass").
			AddTag("aborted", strconv.FormatBool(aborted(snap))).
			AddField("pass_id", ev.ID).
			AddField("missions", len(snap.Schedule)-segments).
			AddField("unassigned", unassigned).
			AddField("auto_segments", segments).
			AddField("diagnostics", len(snap.Errors)).
			AddField("ferry_hours", round3(snap.Ferry.TotalHours)).
			AddField("ferry_stddev_hours", round3(snap.Ferry.StdDevHours)).
			SetTime(ev.Time),
	}
	for _, a := range snap.Fleet {
		points = append(points, write.NewPointWithMeasurement("aircraft_ferry").
			AddTag("registration", a.Registration).
			AddTag("type", a.Type).
			AddField("pass_id", ev.ID).
			AddField("ferry_hours", round3(a.FerryHours)).
			SetTime(ev.Time))
	}
	return points
}

func aborted(s schedule.Snapshot) bool {
	for _, d := range s.Diagnostics {
		if d.Kind == assign.KindMetricsError {
			return true
		}
	}
	return false
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
