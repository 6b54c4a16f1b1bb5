package schedule

import (
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/fleetplan/core/assign"
	"github.com/kilianp07/fleetplan/core/geo"
	"github.com/kilianp07/fleetplan/core/model"
)

// AircraftView is the external representation of a fleet member.
type AircraftView struct {
	Registration string  `json:"registration"`
	Type         string  `json:"type"`
	TypeLabel    string  `json:"typeLabel"`
	MaxPax       int     `json:"maxPax"`
	Location     string  `json:"location,omitempty"`
	FerryHours   float64 `json:"ferryHours"`
}

// MissionView is one timeline row: a mission or a synthetic ferry leg.
type MissionView struct {
	ID                    string `json:"id"`
	IsAutoGenerated       bool   `json:"isAutoGenerated"`
	AircraftType          string `json:"aircraftType"`
	AircraftTypeLabel     string `json:"aircraftTypeLabel"`
	MissionCategory       string `json:"missionCategory"`
	DepartureAirport      string `json:"departureAirport"`
	DepartureAirportLabel string `json:"departureAirportLabel"`
	ArrivalAirport        string `json:"arrivalAirport"`
	ArrivalAirportLabel   string `json:"arrivalAirportLabel"`
	DepartureTime         string `json:"departureTime"`
	ArrivalTime           string `json:"arrivalTime"`
	FlightTime            string `json:"flightTime"`
	RequestedRegistration string `json:"requestedRegistration"`
	AssignedRegistration  string `json:"assignedRegistration"`
	PIC                   string `json:"pic"`
	SIC                   string `json:"sic"`
	CA1                   string `json:"ca1"`
	Notes                 string `json:"notes"`
	Editable              bool   `json:"editable"`
}

// FerrySummary reports how repositioning time is spread over the fleet.
type FerrySummary struct {
	TotalHours  float64            `json:"totalHours"`
	PerAircraft map[string]float64 `json:"perAircraft"`
	// StdDevHours is the population standard deviation of PerAircraft.
	StdDevHours float64 `json:"stdDevHours"`
}

// Snapshot is the consistent read view published after every pass.
type Snapshot struct {
	Fleet       []AircraftView      `json:"fleet"`
	Schedule    []MissionView       `json:"schedule"`
	Errors      []string            `json:"errors"`
	Ferry       FerrySummary        `json:"ferry"`
	Diagnostics []assign.Diagnostic `json:"-"`
}

// Project merges the registries and the last pass output into a Snapshot.
// It holds no state of its own.
func Project(fleet []model.Aircraft, types model.TypeCatalog, airports geo.Locator, res assign.Result) Snapshot {
	snap := Snapshot{
		Fleet:       make([]AircraftView, 0, len(fleet)),
		Schedule:    make([]MissionView, 0, len(res.Missions)+len(res.Segments)),
		Errors:      make([]string, 0, len(res.Diagnostics)),
		Diagnostics: append([]assign.Diagnostic(nil), res.Diagnostics...),
		Ferry:       FerrySummary{PerAircraft: make(map[string]float64, len(fleet))},
	}

	states := make(map[string]assign.AircraftState, len(res.Aircraft))
	for _, s := range res.Aircraft {
		states[s.Registration] = s
	}
	sorted := append([]model.Aircraft(nil), fleet...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Registration < sorted[j].Registration })
	hours := make([]float64, 0, len(sorted))
	for _, a := range sorted {
		v := AircraftView{
			Registration: a.Registration,
			Type:         a.Type,
			TypeLabel:    types.Label(a.Type),
			MaxPax:       a.MaxPax,
		}
		if s, ok := states[a.Registration]; ok {
			v.FerryHours = s.FerryHours
			if s.Location != assign.LocationUnknown {
				v.Location = s.Location
			}
		}
		snap.Fleet = append(snap.Fleet, v)
		snap.Ferry.PerAircraft[a.Registration] = v.FerryHours
		hours = append(hours, v.FerryHours)
	}
	if len(hours) > 0 {
		snap.Ferry.TotalHours = floats.Sum(hours)
		snap.Ferry.StdDevHours = stat.PopStdDev(hours, nil)
	}

	entries := make([]model.TimelineEntry, 0, len(res.Missions)+len(res.Segments))
	for _, m := range res.Missions {
		entries = append(entries, model.RealMission{Mission: m})
	}
	for _, s := range res.Segments {
		entries = append(entries, model.AutoFerryLeg{AutoSegment: s})
	}
	sort.SliceStable(entries, func(i, j int) bool { return model.TimelineLess(entries[i], entries[j]) })
	for _, e := range entries {
		snap.Schedule = append(snap.Schedule, view(e, types, airports))
	}

	for _, d := range res.Diagnostics {
		snap.Errors = append(snap.Errors, d.String())
	}
	return snap
}

func view(e model.TimelineEntry, types model.TypeCatalog, airports geo.Locator) MissionView {
	switch v := e.(type) {
	case model.RealMission:
		return MissionView{
			ID:                    strconv.Itoa(v.ID),
			AircraftType:          v.AircraftType,
			AircraftTypeLabel:     types.Label(v.AircraftType),
			MissionCategory:       v.Category,
			DepartureAirport:      v.DepartureAirport,
			DepartureAirportLabel: geo.Label(airports, v.DepartureAirport),
			ArrivalAirport:        v.ArrivalAirport,
			ArrivalAirportLabel:   geo.Label(airports, v.ArrivalAirport),
			DepartureTime:         model.FormatTime(v.DepartureTime),
			ArrivalTime:           model.FormatTime(v.ArrivalTime),
			FlightTime:            v.FlightTimeText,
			RequestedRegistration: v.RequestedRegistration,
			AssignedRegistration:  v.AssignedRegistration,
			PIC:                   v.PIC,
			SIC:                   v.SIC,
			CA1:                   v.CA1,
			Editable:              true,
		}
	case model.AutoFerryLeg:
		return MissionView{
			ID:                    v.ID,
			IsAutoGenerated:       true,
			AircraftType:          v.AircraftType,
			AircraftTypeLabel:     types.Label(v.AircraftType),
			MissionCategory:       model.CategoryAutoFerry,
			DepartureAirport:      v.DepartureAirport,
			DepartureAirportLabel: geo.Label(airports, v.DepartureAirport),
			ArrivalAirport:        v.ArrivalAirport,
			ArrivalAirportLabel:   geo.Label(airports, v.ArrivalAirport),
			DepartureTime:         model.FormatTime(v.DepartureTime),
			ArrivalTime:           model.FormatTime(v.ArrivalTime),
			FlightTime:            v.FlightTimeText,
			AssignedRegistration:  v.Registration,
			Notes:                 v.Notes,
		}
	}
	return MissionView{}
}
