package assign

import (
	"fmt"

	"github.com/kilianp07/fleetplan/core/model"
)

// DiagnosticKind classifies why a mission was left unassigned.
type DiagnosticKind string

const (
	KindMetricsError                 DiagnosticKind = "MetricsError"
	KindNoAircraftOfType             DiagnosticKind = "NoAircraftOfType"
	KindRequestedAircraftUnavailable DiagnosticKind = "RequestedAircraftUnavailable"
	KindInsufficientSeats            DiagnosticKind = "InsufficientSeats"
	KindNoCapacityAvailable          DiagnosticKind = "NoCapacityAvailable"
	KindAssignmentInfeasible         DiagnosticKind = "AssignmentInfeasible"
)

// Class groups kinds into the three diagnostic families: MetricsError,
// NoAircraftOfType and AssignmentInfeasible.
func (k DiagnosticKind) Class() DiagnosticKind {
	switch k {
	case KindMetricsError, KindNoAircraftOfType:
		return k
	default:
		return KindAssignmentInfeasible
	}
}

// Diagnostic is a descriptive, non-fatal problem found during a pass.
type Diagnostic struct {
	Kind         DiagnosticKind `json:"kind"`
	MissionID    int            `json:"missionId,omitempty"`
	AircraftType string         `json:"aircraftType,omitempty"`
	Message      string         `json:"message"`
}

func (d Diagnostic) String() string { return d.Message }

func missionRef(m model.Mission) string {
	return fmt.Sprintf("mission %d (%s %s→%s %s)", m.ID, m.AircraftType,
		m.DepartureAirport, m.ArrivalAirport, model.FormatTime(m.DepartureTime))
}

func metricsError(m model.Mission, reason string) Diagnostic {
	return Diagnostic{
		Kind:         KindMetricsError,
		MissionID:    m.ID,
		AircraftType: m.AircraftType,
		Message:      fmt.Sprintf("%s: cannot compute flight time: %s; no mission assigned this cycle", missionRef(m), reason),
	}
}

func noAircraftOfType(code string, missions int) Diagnostic {
	return Diagnostic{
		Kind:         KindNoAircraftOfType,
		AircraftType: code,
		Message:      fmt.Sprintf("no aircraft of type %s in fleet; %d mission(s) left unassigned", code, missions),
	}
}

func requestedUnavailable(m model.Mission) Diagnostic {
	return Diagnostic{
		Kind:         KindRequestedAircraftUnavailable,
		MissionID:    m.ID,
		AircraftType: m.AircraftType,
		Message:      fmt.Sprintf("%s: requested aircraft %s is not a %s in the fleet", missionRef(m), m.RequestedRegistration, m.AircraftType),
	}
}

func insufficientSeats(m model.Mission, reg string, seats, pax int) Diagnostic {
	return Diagnostic{
		Kind:         KindInsufficientSeats,
		MissionID:    m.ID,
		AircraftType: m.AircraftType,
		Message:      fmt.Sprintf("%s: requested aircraft %s has %d seats, %d required", missionRef(m), reg, seats, pax),
	}
}

func noCapacity(m model.Mission, pax int) Diagnostic {
	return Diagnostic{
		Kind:         KindNoCapacityAvailable,
		MissionID:    m.ID,
		AircraftType: m.AircraftType,
		Message:      fmt.Sprintf("%s: no %s with at least %d seats", missionRef(m), m.AircraftType, pax),
	}
}

func infeasible(m model.Mission, candidates int) Diagnostic {
	return Diagnostic{
		Kind:         KindAssignmentInfeasible,
		MissionID:    m.ID,
		AircraftType: m.AircraftType,
		Message: fmt.Sprintf("%s: none of %d candidate aircraft can be at %s by %s",
			missionRef(m), candidates, m.DepartureAirport, model.FormatTime(m.DepartureTime.Add(-GroundBuffer))),
	}
}
