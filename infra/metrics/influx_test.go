package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetplan/core/assign"
	"github.com/kilianp07/fleetplan/core/schedule"
)

func passEvent(now time.Time) schedule.PassEvent {
	return schedule.PassEvent{
		ID:   "p1",
		Time: now,
		Snapshot: schedule.Snapshot{
			Fleet: []schedule.AircraftView{
				{Registration: "N1", Type: "C56X", FerryHours: 0.5354},
				{Registration: "N2", Type: "C56X"},
			},
			Schedule: []schedule.MissionView{
				{ID: "1", AssignedRegistration: "N1"},
				{ID: "auto-1", IsAutoGenerated: true, AssignedRegistration: "N1"},
				{ID: "2", AssignedRegistration: "N1"},
				{ID: "3"},
			},
			Errors: []string{"no capacity"},
			Ferry:  schedule.FerrySummary{TotalHours: 0.5354, StdDevHours: 0.2677},
		},
	}
}

func TestPassPoints(t *testing.T) {
	now := time.Unix(1714550400, 0)
	points := PassPoints(passEvent(now))
	require.Len(t, points, 3)

	want := write.NewPointWithMeasurement("assignment_pass").
		AddTag("aborted", "false").
		AddField("pass_id", "p1").
		AddField("missions", 3).
		AddField("unassigned", 1).
		AddField("auto_segments", 1).
		AddField("diagnostics", 1).
		AddField("ferry_hours", 0.535).
		AddField("ferry_stddev_hours", 0.268).
		SetTime(now)
	assert.Equal(t,
		write.PointToLineProtocol(want, time.Nanosecond),
		write.PointToLineProtocol(points[0], time.Nanosecond))
	line := write.PointToLineProtocol(points[1], time.Nanosecond)
	assert.True(t, strings.HasPrefix(line, "aircraft_ferry,"))
	assert.Contains(t, line, "registration=N1")
	assert.Contains(t, line, "ferry_hours=0.535")
}

func TestPassPointsKeepPassIDOutOfTags(t *testing.T) {
	for _, p := range PassPoints(passEvent(time.Now())) {
		for _, tag := range p.TagList() {
			assert.NotEqual(t, "pass_id", tag.Key, p.Name())
		}
		found := false
		for _, f := range p.FieldList() {
			if f.Key == "pass_id" {
				found = true
				assert.Equal(t, "p1", f.Value)
			}
		}
		assert.True(t, found, p.Name())
	}
}

func TestPassPointsAborted(t *testing.T) {
	ev := passEvent(time.Now())
	ev.Snapshot.Diagnostics = []assign.Diagnostic{{Kind: assign.KindMetricsError}}
	line := write.PointToLineProtocol(PassPoints(ev)[0], time.Nanosecond)
	assert.Contains(t, line, "aborted=true")
}

func TestInfluxSink_RecordPass(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(data))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	defer sink.Close()
	require.NoError(t, sink.RecordPass(context.Background(), passEvent(time.Now())))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 1)
	lines := strings.Split(strings.TrimSpace(bodies[0]), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "assignment_pass,"))
}

func TestInfluxSink_PingFailure(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Org: "org", Bucket: "bucket"})
	defer sink.Close()
	assert.Error(t, sink.Ping(context.Background()))
	assert.True(t, called)
}

func TestInfluxConfigValidate(t *testing.T) {
	assert.NoError(t, InfluxConfig{}.Validate())
	assert.Error(t, InfluxConfig{Enabled: true, URL: "http://influx:8086"}.Validate())
	assert.NoError(t, InfluxConfig{Enabled: true, URL: "http://influx:8086", Org: "o", Bucket: "b"}.Validate())
}

func TestStartPromServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- StartPromServer(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("prom server did not stop")
	}
}
