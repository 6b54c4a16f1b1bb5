package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the local wall-clock format used for every timestamp exposed
// by the service. It carries no zone information.
const TimeLayout = "2006-01-02T15:04"

var parseLayouts = []string{
	TimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// ParseTime parses a local wall-clock timestamp.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q does not match %s", s, TimeLayout)
}

// FormatTime renders t with TimeLayout. The zero time renders as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimeLayout)
}

const (
	CategoryFerry = "Ferry"
	CategoryTech  = "Tech"
	// CategoryAutoFerry labels synthetic repositioning legs.
	CategoryAutoFerry = "Auto Ferry"
)

// RequiredPax returns the passenger requirement encoded in a mission
// category: "N pax" requires N seats, "Ferry" and "Tech" require none.
func RequiredPax(category string) (int, error) {
	c := strings.TrimSpace(category)
	switch {
	case strings.EqualFold(c, CategoryFerry), strings.EqualFold(c, CategoryTech):
		return 0, nil
	}
	fields := strings.Fields(c)
	if len(fields) == 2 && strings.EqualFold(fields[1], "pax") {
		n, err := strconv.Atoi(fields[0])
		if err == nil && n >= 0 {
			return n, nil
		}
	}
	return 0, fmt.Errorf("mission category %q is not Ferry, Tech or \"N pax\"", category)
}

// Mission is a scheduled flight. The derived fields are recomputed on every
// assignment pass and are never set by callers.
type Mission struct {
	ID                    int
	Seq                   uint64
	DepartureAirport      string
	ArrivalAirport        string
	DepartureTime         time.Time
	AircraftType          string
	Category              string
	PIC                   string
	SIC                   string
	CA1                   string
	RequestedRegistration string

	AssignedRegistration string
	ArrivalTime          time.Time
	FlightHours          float64
	FlightTimeText       string
}

// RequiredPax returns the passenger requirement of the mission, zero when the
// category cannot be parsed.
func (m Mission) RequiredPax() int {
	n, err := RequiredPax(m.Category)
	if err != nil {
		return 0
	}
	return n
}

// ClearDerived resets the fields owned by the assignment pass.
func (m *Mission) ClearDerived() {
	m.AssignedRegistration = ""
	m.ArrivalTime = time.Time{}
	m.FlightHours = 0
	m.FlightTimeText = ""
}

// AutoSegment is a synthetic ferry leg generated by an assignment pass. It
// lives in its own id space and cannot be edited.
type AutoSegment struct {
	ID               string    `json:"id"`
	DepartureAirport string    `json:"departureAirport"`
	ArrivalAirport   string    `json:"arrivalAirport"`
	DepartureTime    time.Time `json:"departureTime"`
	ArrivalTime      time.Time `json:"arrivalTime"`
	AircraftType     string    `json:"aircraftType"`
	Registration     string    `json:"registration"`
	FlightHours      float64   `json:"flightHours"`
	FlightTimeText   string    `json:"flightTime"`
	// ForMission is the id of the mission the aircraft is repositioned for.
	ForMission int    `json:"forMission"`
	Notes      string `json:"notes"`
}
