// Package assign implements the per-type greedy assignment of aircraft to
// missions, including synthetic ferry legs and infeasibility diagnostics.
//
// A pass is single-shot and non-backtracking: missions of a type are
// committed in departure order and an aircraft once committed is never
// reconsidered. The result is feasible but not necessarily minimal in total
// ferry time.
package assign

import (
	"sort"
	"time"

	"github.com/kilianp07/fleetplan/core/flighttime"
	"github.com/kilianp07/fleetplan/core/geo"
	"github.com/kilianp07/fleetplan/core/logger"
	"github.com/kilianp07/fleetplan/core/model"
)

// GroundBuffer is the minimum turnaround between landing and the next
// departure of the same aircraft.
const GroundBuffer = time.Hour

// LocationUnknown marks an aircraft that has not been positioned yet. Such
// an aircraft may start a mission without a ferry leg.
const LocationUnknown = "unknown"

// TypeSource resolves aircraft type codes.
type TypeSource interface {
	Lookup(code string) (model.AircraftType, bool)
}

// Input is the full state an assignment pass runs over.
type Input struct {
	Missions []model.Mission
	Fleet    []model.Aircraft
	Types    TypeSource
	Airports geo.Locator
}

// AircraftState tracks one aircraft during a pass.
type AircraftState struct {
	Registration string    `json:"registration"`
	Type         string    `json:"type"`
	MaxPax       int       `json:"maxPax"`
	AvailableAt  time.Time `json:"availableFrom"`
	Location     string    `json:"location"`
	FerryHours   float64   `json:"accumulatedFerry"`
}

// Result is the output of a pass.
type Result struct {
	// Missions carries every input mission, in creation order, with its
	// derived fields recomputed.
	Missions    []model.Mission
	Segments    []model.AutoSegment
	Diagnostics []Diagnostic
	// Aircraft holds the final state of every pooled aircraft, ordered by
	// registration.
	Aircraft []AircraftState
	// Aborted is set when a metrics error prevented any assignment.
	Aborted bool
}

// Engine runs assignment passes.
type Engine struct {
	log logger.Logger
}

// NewEngine returns an Engine logging through log.
func NewEngine(log logger.Logger) *Engine {
	return &Engine{log: log}
}

// option is a feasible placement of a candidate on a mission.
type option struct {
	state *AircraftState
	cost  float64
	start time.Time
	ferry *flighttime.Estimate
}

type pass struct {
	in       Input
	res      *Result
	log      logger.Logger
	segments int
}

// Run executes one full pass over in. Nothing is carried between passes.
func (e *Engine) Run(in Input) Result {
	missions := append([]model.Mission(nil), in.Missions...)
	sort.SliceStable(missions, func(i, j int) bool { return missions[i].Seq < missions[j].Seq })
	res := Result{Missions: missions}
	p := &pass{in: in, res: &res, log: e.log}

	if !p.refreshMetrics() {
		res.Aborted = true
		e.log.Warnf("assignment pass aborted: %d metrics error(s)", len(res.Diagnostics))
		return res
	}

	byType := make(map[string][]*model.Mission)
	for i := range res.Missions {
		m := &res.Missions[i]
		byType[m.AircraftType] = append(byType[m.AircraftType], m)
	}
	codes := make([]string, 0, len(byType))
	for c := range byType {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	for _, c := range codes {
		p.assignType(c, byType[c])
	}
	sort.Slice(res.Aircraft, func(i, j int) bool { return res.Aircraft[i].Registration < res.Aircraft[j].Registration })

	e.log.Infof("assignment pass: %d missions, %d ferry legs, %d diagnostics",
		len(res.Missions), len(res.Segments), len(res.Diagnostics))
	return res
}

// refreshMetrics recomputes flight time and arrival for every mission. It
// reports false when any mission references an unknown airport or type; in
// that case no mission is assigned this pass.
func (p *pass) refreshMetrics() bool {
	ok := true
	for i := range p.res.Missions {
		m := &p.res.Missions[i]
		m.ClearDerived()
		t, found := p.in.Types.Lookup(m.AircraftType)
		if !found {
			p.diag(metricsError(*m, "unknown aircraft type "+m.AircraftType))
			ok = false
			continue
		}
		dist, err := p.in.Airports.DistanceNM(m.DepartureAirport, m.ArrivalAirport)
		if err != nil {
			p.diag(metricsError(*m, err.Error()))
			ok = false
			continue
		}
		est := flighttime.Compute(dist, t.CruiseKts)
		m.FlightHours = est.TotalHours
		m.FlightTimeText = est.Text()
		m.ArrivalTime = m.DepartureTime.Add(est.Duration())
	}
	return ok
}

func (p *pass) assignType(code string, missions []*model.Mission) {
	var pool []*AircraftState
	for _, a := range p.in.Fleet {
		if a.Type != code {
			continue
		}
		pool = append(pool, &AircraftState{
			Registration: a.Registration,
			Type:         a.Type,
			MaxPax:       a.MaxPax,
			Location:     LocationUnknown,
		})
	}
	if len(pool) == 0 {
		p.diag(noAircraftOfType(code, len(missions)))
		return
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].Registration < pool[j].Registration })
	sort.SliceStable(missions, func(i, j int) bool {
		a, b := missions[i], missions[j]
		if !a.DepartureTime.Equal(b.DepartureTime) {
			return a.DepartureTime.Before(b.DepartureTime)
		}
		return a.Seq < b.Seq
	})
	speed := 0.0
	if t, ok := p.in.Types.Lookup(code); ok {
		speed = t.CruiseKts
	}

	for _, m := range missions {
		candidates := p.candidates(m, pool)
		if len(candidates) == 0 {
			continue
		}
		best, ok := p.choose(m, candidates, speed)
		if !ok {
			p.diag(infeasible(*m, len(candidates)))
			continue
		}
		p.commit(m, best)
	}
	for _, s := range pool {
		p.res.Aircraft = append(p.res.Aircraft, *s)
	}
}

// candidates returns the aircraft eligible for m, recording a diagnostic when
// none are.
func (p *pass) candidates(m *model.Mission, pool []*AircraftState) []*AircraftState {
	pax := m.RequiredPax()
	if m.RequestedRegistration != "" {
		for _, s := range pool {
			if s.Registration != m.RequestedRegistration {
				continue
			}
			if s.MaxPax < pax {
				p.diag(insufficientSeats(*m, s.Registration, s.MaxPax, pax))
				return nil
			}
			return []*AircraftState{s}
		}
		p.diag(requestedUnavailable(*m))
		return nil
	}
	var res []*AircraftState
	for _, s := range pool {
		if s.MaxPax >= pax {
			res = append(res, s)
		}
	}
	if len(res) == 0 {
		p.diag(noCapacity(*m, pax))
	}
	return res
}

// choose evaluates every candidate and returns the feasible one with the
// lowest accumulated plus incremental ferry time. Ties go to the lowest
// registration since candidates are ordered by registration.
func (p *pass) choose(m *model.Mission, candidates []*AircraftState, speed float64) (option, bool) {
	var (
		best  option
		found bool
	)
	for _, s := range candidates {
		opt, ok := p.evaluate(m, s, speed)
		if !ok {
			continue
		}
		if !found || s.FerryHours+opt.cost < best.state.FerryHours+best.cost {
			best, found = opt, true
		}
	}
	return best, found
}

// evaluate checks whether s can fly m, scheduling any repositioning as late
// as possible before the mission.
func (p *pass) evaluate(m *model.Mission, s *AircraftState, speed float64) (option, bool) {
	latestFinish := m.DepartureTime.Add(-GroundBuffer)
	switch {
	case s.Location == LocationUnknown:
		if s.AvailableAt.After(latestFinish) {
			return option{}, false
		}
		return option{state: s, start: s.AvailableAt}, true
	case p.sameAirport(s.Location, m.DepartureAirport):
		if s.AvailableAt.After(latestFinish) {
			return option{}, false
		}
		return option{state: s, start: later(s.AvailableAt, latestFinish)}, true
	}
	dist, err := p.in.Airports.DistanceNM(s.Location, m.DepartureAirport)
	if err != nil {
		p.log.Warnf("reposition %s %s->%s: %v", s.Registration, s.Location, m.DepartureAirport, err)
		return option{}, false
	}
	est := flighttime.Compute(dist, speed)
	d := est.Duration()
	if s.AvailableAt.Add(d).After(latestFinish) {
		return option{}, false
	}
	return option{
		state: s,
		cost:  est.TotalHours,
		start: later(s.AvailableAt, latestFinish.Add(-d)),
		ferry: &est,
	}, true
}

// sameAirport reports whether a and b name the same airport, resolving
// aliases through the locator.
func (p *pass) sameAirport(a, b string) bool {
	if a == b {
		return true
	}
	x, ok := p.in.Airports.Lookup(a)
	if !ok {
		return false
	}
	y, ok := p.in.Airports.Lookup(b)
	return ok && x.Code == y.Code
}

func (p *pass) commit(m *model.Mission, o option) {
	s := o.state
	if o.ferry != nil && o.cost > 0 {
		p.segments++
		p.res.Segments = append(p.res.Segments, model.AutoSegment{
			ID:               model.AutoSegmentID(p.segments),
			DepartureAirport: s.Location,
			ArrivalAirport:   m.DepartureAirport,
			DepartureTime:    o.start,
			ArrivalTime:      o.start.Add(o.ferry.Duration()),
			AircraftType:     s.Type,
			Registration:     s.Registration,
			FlightHours:      o.ferry.TotalHours,
			FlightTimeText:   o.ferry.Text(),
			ForMission:       m.ID,
			Notes:            "Auto ferry " + s.Location + "→" + m.DepartureAirport,
		})
	}
	m.AssignedRegistration = s.Registration
	s.Location = m.ArrivalAirport
	s.AvailableAt = m.ArrivalTime.Add(GroundBuffer)
	s.FerryHours += o.cost
	p.log.Debugw("mission committed", map[string]any{
		"mission":      m.ID,
		"registration": s.Registration,
		"ferry_hours":  o.cost,
	})
}

func (p *pass) diag(d Diagnostic) {
	p.res.Diagnostics = append(p.res.Diagnostics, d)
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
