// Package fleet owns the set of aircraft available for assignment.
package fleet

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kilianp07/fleetplan/core/model"
)

var (
	ErrDuplicateRegistration = errors.New("duplicate registration")
	ErrUnknownType           = errors.New("unknown aircraft type")
	ErrInvalidCapacity       = errors.New("invalid capacity")
	ErrMissingRegistration   = errors.New("registration is required")
)

// TypeSource resolves aircraft type codes.
type TypeSource interface {
	Lookup(code string) (model.AircraftType, bool)
}

// Registry holds the fleet keyed by registration. It is not safe for
// concurrent use; callers serialize access.
type Registry struct {
	types    TypeSource
	aircraft map[string]model.Aircraft
}

// NewRegistry returns an empty fleet validated against types.
func NewRegistry(types TypeSource) *Registry {
	return &Registry{types: types, aircraft: make(map[string]model.Aircraft)}
}

// SetTypes replaces the type source used to validate new aircraft. Aircraft
// already registered are kept even if their type is no longer recognized.
func (r *Registry) SetTypes(types TypeSource) { r.types = types }

// Add registers a new aircraft.
func (r *Registry) Add(registration, typeCode string, maxPax int) (model.Aircraft, error) {
	reg := normalize(registration)
	if reg == "" {
		return model.Aircraft{}, ErrMissingRegistration
	}
	if _, ok := r.aircraft[reg]; ok {
		return model.Aircraft{}, fmt.Errorf("%w: %s", ErrDuplicateRegistration, reg)
	}
	t, ok := r.types.Lookup(typeCode)
	if !ok {
		return model.Aircraft{}, fmt.Errorf("%w: %s", ErrUnknownType, typeCode)
	}
	if maxPax <= 0 {
		return model.Aircraft{}, fmt.Errorf("%w: max pax must be positive, got %d", ErrInvalidCapacity, maxPax)
	}
	a := model.Aircraft{Registration: reg, Type: t.Code, MaxPax: maxPax}
	r.aircraft[reg] = a
	return a, nil
}

// Remove deletes the aircraft. Unknown registrations are ignored.
func (r *Registry) Remove(registration string) {
	delete(r.aircraft, normalize(registration))
}

// List returns the fleet ordered by registration.
func (r *Registry) List() []model.Aircraft {
	res := make([]model.Aircraft, 0, len(r.aircraft))
	for _, a := range r.aircraft {
		res = append(res, a)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Registration < res[j].Registration })
	return res
}

// Len returns the fleet size.
func (r *Registry) Len() int { return len(r.aircraft) }

func normalize(reg string) string { return strings.ToUpper(strings.TrimSpace(reg)) }
