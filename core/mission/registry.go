// Package mission owns the scheduled missions.
package mission

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/kilianp07/fleetplan/core/model"
)

var (
	ErrMissingField    = errors.New("missing field")
	ErrInvalidTime     = errors.New("invalid departure time")
	ErrInvalidCategory = errors.New("invalid mission category")
	ErrNotFound        = errors.New("mission not found")
)

// IDGenerator hands out monotonic mission identifiers.
type IDGenerator interface {
	Next() uint64
}

// Sequence is an atomic IDGenerator starting at 1.
type Sequence struct{ n atomic.Uint64 }

// Next implements IDGenerator.
func (s *Sequence) Next() uint64 { return s.n.Add(1) }

// Validator checks references held by a mission (airports, aircraft type)
// before it is stored. It may rewrite them to their canonical form.
type Validator interface {
	ValidateMission(m *model.Mission) error
}

// Input carries the user supplied fields of a new mission.
type Input struct {
	DepartureAirport      string `json:"departureAirport"`
	ArrivalAirport        string `json:"arrivalAirport"`
	DepartureTime         string `json:"departureTime"`
	AircraftType          string `json:"aircraftType"`
	MissionCategory       string `json:"missionCategory"`
	PIC                   string `json:"pic"`
	SIC                   string `json:"sic"`
	CA1                   string `json:"ca1"`
	RequestedRegistration string `json:"requestedRegistration"`
}

// Patch carries a partial update. Nil fields are left untouched.
type Patch struct {
	DepartureAirport      *string `json:"departureAirport"`
	ArrivalAirport        *string `json:"arrivalAirport"`
	DepartureTime         *string `json:"departureTime"`
	AircraftType          *string `json:"aircraftType"`
	MissionCategory       *string `json:"missionCategory"`
	PIC                   *string `json:"pic"`
	SIC                   *string `json:"sic"`
	CA1                   *string `json:"ca1"`
	RequestedRegistration *string `json:"requestedRegistration"`
}

// Registry stores missions by id. It is not safe for concurrent use.
type Registry struct {
	ids       IDGenerator
	validator Validator
	missions  map[int]*model.Mission
}

// NewRegistry returns an empty registry. validator may be nil.
func NewRegistry(ids IDGenerator, validator Validator) *Registry {
	if ids == nil {
		ids = &Sequence{}
	}
	return &Registry{ids: ids, validator: validator, missions: make(map[int]*model.Mission)}
}

// Create validates in and stores a new mission.
func (r *Registry) Create(in Input) (model.Mission, error) {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("departureAirport", in.DepartureAirport)
	check("arrivalAirport", in.ArrivalAirport)
	check("departureTime", in.DepartureTime)
	check("aircraftType", in.AircraftType)
	check("missionCategory", in.MissionCategory)
	if len(missing) > 0 {
		return model.Mission{}, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	m := model.Mission{
		DepartureAirport:      code(in.DepartureAirport),
		ArrivalAirport:        code(in.ArrivalAirport),
		AircraftType:          code(in.AircraftType),
		Category:              strings.TrimSpace(in.MissionCategory),
		PIC:                   strings.TrimSpace(in.PIC),
		SIC:                   strings.TrimSpace(in.SIC),
		CA1:                   strings.TrimSpace(in.CA1),
		RequestedRegistration: code(in.RequestedRegistration),
	}
	if err := setDeparture(&m, in.DepartureTime); err != nil {
		return model.Mission{}, err
	}
	if err := r.validate(&m); err != nil {
		return model.Mission{}, err
	}
	n := r.ids.Next()
	m.ID = int(n)
	m.Seq = n
	r.missions[m.ID] = &m
	return m, nil
}

// Update merges p into the mission with the given id.
//
//gocyclo:ignore
func (r *Registry) Update(id int, p Patch) (model.Mission, error) {
	cur, ok := r.missions[id]
	if !ok {
		return model.Mission{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	m := *cur
	required := func(name string, v *string, dst *string) error {
		if v == nil {
			return nil
		}
		if strings.TrimSpace(*v) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, name)
		}
		*dst = code(*v)
		return nil
	}
	if err := required("departureAirport", p.DepartureAirport, &m.DepartureAirport); err != nil {
		return model.Mission{}, err
	}
	if err := required("arrivalAirport", p.ArrivalAirport, &m.ArrivalAirport); err != nil {
		return model.Mission{}, err
	}
	if err := required("aircraftType", p.AircraftType, &m.AircraftType); err != nil {
		return model.Mission{}, err
	}
	if p.MissionCategory != nil {
		if strings.TrimSpace(*p.MissionCategory) == "" {
			return model.Mission{}, fmt.Errorf("%w: missionCategory", ErrMissingField)
		}
		m.Category = strings.TrimSpace(*p.MissionCategory)
	}
	if p.DepartureTime != nil {
		if strings.TrimSpace(*p.DepartureTime) == "" {
			return model.Mission{}, fmt.Errorf("%w: departureTime", ErrMissingField)
		}
		if err := setDeparture(&m, *p.DepartureTime); err != nil {
			return model.Mission{}, err
		}
	}
	if p.PIC != nil {
		m.PIC = strings.TrimSpace(*p.PIC)
	}
	if p.SIC != nil {
		m.SIC = strings.TrimSpace(*p.SIC)
	}
	if p.CA1 != nil {
		m.CA1 = strings.TrimSpace(*p.CA1)
	}
	if p.RequestedRegistration != nil {
		m.RequestedRegistration = code(*p.RequestedRegistration)
	}
	if err := r.validate(&m); err != nil {
		return model.Mission{}, err
	}
	*cur = m
	return m, nil
}

// Delete removes the mission. Unknown ids are ignored.
func (r *Registry) Delete(id int) { delete(r.missions, id) }

// List returns copies of all missions in creation order.
func (r *Registry) List() []model.Mission {
	res := make([]model.Mission, 0, len(r.missions))
	for _, m := range r.missions {
		res = append(res, *m)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Seq < res[j].Seq })
	return res
}

// Apply stores the derived fields computed by an assignment pass. Missions
// absent from the registry are ignored.
func (r *Registry) Apply(computed []model.Mission) {
	for _, c := range computed {
		m, ok := r.missions[c.ID]
		if !ok {
			continue
		}
		m.AssignedRegistration = c.AssignedRegistration
		m.ArrivalTime = c.ArrivalTime
		m.FlightHours = c.FlightHours
		m.FlightTimeText = c.FlightTimeText
	}
}

// Len returns the number of missions.
func (r *Registry) Len() int { return len(r.missions) }

func (r *Registry) validate(m *model.Mission) error {
	if _, err := model.RequiredPax(m.Category); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCategory, err)
	}
	if r.validator == nil {
		return nil
	}
	return r.validator.ValidateMission(m)
}

func setDeparture(m *model.Mission, s string) error {
	t, err := model.ParseTime(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTime, err)
	}
	m.DepartureTime = t
	return nil
}

func code(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
