// Package schedule coordinates the fleet and mission registries with the
// assignment engine and publishes a consistent snapshot after each pass.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/fleetplan/core/assign"
	"github.com/kilianp07/fleetplan/core/fleet"
	"github.com/kilianp07/fleetplan/core/geo"
	"github.com/kilianp07/fleetplan/core/logger"
	"github.com/kilianp07/fleetplan/core/mission"
	"github.com/kilianp07/fleetplan/core/model"
	"github.com/kilianp07/fleetplan/core/schedule/logging"
	"github.com/kilianp07/fleetplan/internal/eventbus"
)

// PassEvent is published on the event bus after every pass.
type PassEvent struct {
	ID       string
	Reason   string
	Time     time.Time
	Snapshot Snapshot
}

// Manager serializes every mutation of the schedule. Each successful
// mutation triggers a full recomputation; a rejected one leaves both the
// registries and the published snapshot untouched.
type Manager struct {
	mu       sync.Mutex
	types    model.TypeCatalog
	airports geo.Locator
	fleet    *fleet.Registry
	missions *mission.Registry
	engine   *assign.Engine
	bus      *eventbus.TypedBus[PassEvent]
	store    logging.PassStore
	log      logger.Logger
	now      func() time.Time

	snapMu sync.RWMutex
	snap   Snapshot
}

// NewManager creates a Manager with empty registries and computes the
// initial (empty) snapshot.
func NewManager(types model.TypeCatalog, airports geo.Locator, log logger.Logger) *Manager {
	m := &Manager{
		types:    types,
		airports: airports,
		fleet:    fleet.NewRegistry(types),
		engine:   assign.NewEngine(log),
		log:      log,
		now:      time.Now,
	}
	m.missions = mission.NewRegistry(&mission.Sequence{}, m)
	m.mu.Lock()
	m.recomputeLocked(context.Background(), "init")
	m.mu.Unlock()
	return m
}

// SetPassStore sets the store used to persist pass records.
func (m *Manager) SetPassStore(s logging.PassStore) {
	m.mu.Lock()
	m.store = s
	m.mu.Unlock()
}

// SetEventBus sets the bus that receives a PassEvent after every pass.
func (m *Manager) SetEventBus(b *eventbus.TypedBus[PassEvent]) {
	m.mu.Lock()
	m.bus = b
	m.mu.Unlock()
}

// Reconfigure swaps the aircraft type catalog and the airport locator
// together and runs a single pass. Missions or aircraft referencing a type
// or airport that disappeared surface as diagnostics.
func (m *Manager) Reconfigure(ctx context.Context, types model.TypeCatalog, airports geo.Locator) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types = types
	m.fleet.SetTypes(types)
	m.airports = airports
	return m.recomputeLocked(ctx, "configuration reload")
}

// Types returns the current catalog ordered by code.
func (m *Manager) Types() []model.AircraftType {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.types.List()
}

// Locator returns the airport locator in use.
func (m *Manager) Locator() geo.Locator {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.airports
}

// State returns the last published snapshot.
func (m *Manager) State() Snapshot {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	return m.snap
}

// PassStore returns the configured pass store, if any.
func (m *Manager) PassStore() logging.PassStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store
}

// Recompute runs a pass without changing any input.
func (m *Manager) Recompute(ctx context.Context) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recomputeLocked(ctx, "recompute")
}

// AddAircraft registers an aircraft and recomputes.
func (m *Manager) AddAircraft(ctx context.Context, registration, typeCode string, maxPax int) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.fleet.Add(registration, typeCode, maxPax)
	if err != nil {
		return Snapshot{}, err
	}
	return m.recomputeLocked(ctx, "aircraft added "+a.Registration), nil
}

// RemoveAircraft removes an aircraft and recomputes. Unknown registrations
// are ignored.
func (m *Manager) RemoveAircraft(ctx context.Context, registration string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fleet.Remove(registration)
	return m.recomputeLocked(ctx, "aircraft removed "+registration)
}

// CreateMission validates and stores a new mission, then recomputes.
func (m *Manager) CreateMission(ctx context.Context, in mission.Input) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, err := m.missions.Create(in)
	if err != nil {
		return Snapshot{}, err
	}
	return m.recomputeLocked(ctx, fmt.Sprintf("mission %d created", ms.ID)), nil
}

// UpdateMission merges p into mission id and recomputes.
func (m *Manager) UpdateMission(ctx context.Context, id int, p mission.Patch) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.missions.Update(id, p); err != nil {
		return Snapshot{}, err
	}
	return m.recomputeLocked(ctx, fmt.Sprintf("mission %d updated", id)), nil
}

// DeleteMission removes mission id and recomputes. Unknown ids are ignored.
func (m *Manager) DeleteMission(ctx context.Context, id int) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missions.Delete(id)
	return m.recomputeLocked(ctx, fmt.Sprintf("mission %d deleted", id))
}

// ValidateMission rejects missions that reference an unrecognized aircraft
// type or airport and rewrites airport aliases to the canonical code. It is
// called by the mission registry with m.mu held.
func (m *Manager) ValidateMission(ms *model.Mission) error {
	if _, ok := m.types.Lookup(ms.AircraftType); !ok {
		return fmt.Errorf("%w: %s", fleet.ErrUnknownType, ms.AircraftType)
	}
	for _, code := range []*string{&ms.DepartureAirport, &ms.ArrivalAirport} {
		ap, ok := m.airports.Lookup(*code)
		if !ok {
			return geo.UnknownAirportError(*code)
		}
		*code = ap.Code
	}
	return nil
}

func (m *Manager) recomputeLocked(ctx context.Context, reason string) Snapshot {
	start := m.now()
	fleetList := m.fleet.List()
	res := m.engine.Run(assign.Input{
		Missions: m.missions.List(),
		Fleet:    fleetList,
		Types:    m.types,
		Airports: m.airports,
	})
	m.missions.Apply(res.Missions)
	snap := Project(fleetList, m.types, m.airports, res)
	elapsed := m.now().Sub(start)

	m.snapMu.Lock()
	m.snap = snap
	m.snapMu.Unlock()

	recordPass(res, snap, elapsed.Seconds())
	id := uuid.NewString()
	if m.bus != nil {
		m.bus.Publish(PassEvent{ID: id, Reason: reason, Time: start, Snapshot: snap})
	}
	if m.store != nil {
		if err := m.store.Append(ctx, passRecord(id, reason, start, elapsed, res, snap)); err != nil {
			m.log.Errorf("pass log append: %v", err)
		}
	}
	m.log.Debugw("pass completed", map[string]any{
		"pass":        id,
		"reason":      reason,
		"aircraft":    m.fleet.Len(),
		"missions":    m.missions.Len(),
		"segments":    len(res.Segments),
		"diagnostics": len(res.Diagnostics),
		"aborted":     res.Aborted,
	})
	return snap
}

func passRecord(id, reason string, at time.Time, elapsed time.Duration, res assign.Result, snap Snapshot) logging.PassRecord {
	rec := logging.PassRecord{
		ID:          id,
		Timestamp:   at,
		Reason:      reason,
		DurationMS:  float64(elapsed.Microseconds()) / 1000,
		Missions:    len(res.Missions),
		Assigned:    make(map[string]string),
		Segments:    res.Segments,
		Diagnostics: snap.Errors,
		Aborted:     res.Aborted,
		FerryHours:  snap.Ferry.TotalHours,
	}
	for _, ms := range res.Missions {
		if ms.AssignedRegistration != "" {
			rec.Assigned[fmt.Sprint(ms.ID)] = ms.AssignedRegistration
		}
	}
	return rec
}
