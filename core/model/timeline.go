package model

import (
	"strconv"
	"strings"
	"time"
)

// TimelineEntry is implemented by every record shown on the schedule
// timeline: committed missions and synthetic ferry legs.
type TimelineEntry interface {
	EntryID() string
	Departure() time.Time
	IsAutoGenerated() bool
}

// RealMission wraps a user mission on the timeline.
type RealMission struct{ Mission }

// AutoFerryLeg wraps a synthetic ferry leg on the timeline.
type AutoFerryLeg struct{ AutoSegment }

func (m RealMission) EntryID() string       { return strconv.Itoa(m.ID) }
func (m RealMission) Departure() time.Time  { return m.DepartureTime }
func (m RealMission) IsAutoGenerated() bool { return false }

func (l AutoFerryLeg) EntryID() string       { return l.ID }
func (l AutoFerryLeg) Departure() time.Time  { return l.DepartureTime }
func (l AutoFerryLeg) IsAutoGenerated() bool { return true }

// TimelineLess orders entries by departure time, real missions before ferry
// legs at equal timestamps, then by creation order.
func TimelineLess(a, b TimelineEntry) bool {
	if !a.Departure().Equal(b.Departure()) {
		return a.Departure().Before(b.Departure())
	}
	if a.IsAutoGenerated() != b.IsAutoGenerated() {
		return !a.IsAutoGenerated()
	}
	return entryOrder(a) < entryOrder(b)
}

func entryOrder(e TimelineEntry) uint64 {
	switch v := e.(type) {
	case RealMission:
		return v.Seq
	case AutoFerryLeg:
		n, _ := strconv.ParseUint(strings.TrimPrefix(v.ID, autoPrefix), 10, 64)
		return n
	}
	return 0
}

const autoPrefix = "auto-"

// AutoSegmentID formats the id of the n-th ferry leg of a pass.
func AutoSegmentID(n int) string { return autoPrefix + strconv.Itoa(n) }
