package schedule

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/fleetplan/core/assign"
)

var (
	passesTotal        *prometheus.CounterVec
	passDuration       prometheus.Histogram
	unassignedMissions prometheus.Gauge
	autoSegments       prometheus.Gauge
	ferryHours         prometheus.Gauge
	diagnosticsTotal   *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Histogram, prometheus.Gauge, prometheus.Gauge, prometheus.Gauge, *prometheus.CounterVec) {
	passes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignment_passes_total",
			Help: "Number of assignment passes by outcome",
		},
		[]string{"outcome"},
	)
	dur := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assignment_pass_duration_seconds",
			Help:    "Wall time of a full recomputation",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)
	unassigned := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "missions_unassigned",
			Help: "Missions left without an aircraft after the last pass",
		},
	)
	segs := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "auto_ferry_segments",
			Help: "Auto ferry legs produced by the last pass",
		},
	)
	ferry := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ferry_hours_total",
			Help: "Ferry hours accumulated over the fleet in the last pass",
		},
	)
	diags := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignment_diagnostics_total",
			Help: "Diagnostics emitted by assignment passes",
		},
		[]string{"kind"},
	)
	return passes, dur, unassigned, segs, ferry, diags
}

func init() {
	passesTotal, passDuration, unassignedMissions, autoSegments, ferryHours, diagnosticsTotal = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers schedule metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(passesTotal, passDuration, unassignedMissions, autoSegments, ferryHours, diagnosticsTotal)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	passesTotal, passDuration, unassignedMissions, autoSegments, ferryHours, diagnosticsTotal = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

func recordPass(res assign.Result, snap Snapshot, seconds float64) {
	outcome := "ok"
	if res.Aborted {
		outcome = "aborted"
	}
	passesTotal.WithLabelValues(outcome).Inc()
	passDuration.Observe(seconds)
	unassigned := 0
	for _, m := range res.Missions {
		if m.AssignedRegistration == "" {
			unassigned++
		}
	}
	unassignedMissions.Set(float64(unassigned))
	autoSegments.Set(float64(len(res.Segments)))
	ferryHours.Set(snap.Ferry.TotalHours)
	for _, d := range res.Diagnostics {
		diagnosticsTotal.WithLabelValues(string(d.Kind)).Inc()
	}
}
