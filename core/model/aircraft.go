package model

import (
	"fmt"
	"sort"
	"strings"
)

// AircraftType describes a recognized aircraft type and its planning speed.
type AircraftType struct {
	Code      string  `json:"code"`
	Label     string  `json:"label"`
	CruiseKts float64 `json:"cruise_kts"`
}

// Validate checks that the type can be used for flight time estimation.
func (t AircraftType) Validate() error {
	if t.Code == "" {
		return fmt.Errorf("aircraft type code is required")
	}
	if t.CruiseKts <= 0 {
		return fmt.Errorf("aircraft type %s: cruise speed must be positive", t.Code)
	}
	return nil
}

// TypeCatalog indexes the recognized aircraft types by code.
type TypeCatalog map[string]AircraftType

// NewTypeCatalog builds a catalog from a list of types. Codes are upper-cased.
func NewTypeCatalog(types []AircraftType) (TypeCatalog, error) {
	c := make(TypeCatalog, len(types))
	for _, t := range types {
		t.Code = strings.ToUpper(strings.TrimSpace(t.Code))
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c[t.Code]; dup {
			return nil, fmt.Errorf("aircraft type %s declared twice", t.Code)
		}
		if t.Label == "" {
			t.Label = t.Code
		}
		c[t.Code] = t
	}
	return c, nil
}

// Lookup returns the type registered under code.
func (c TypeCatalog) Lookup(code string) (AircraftType, bool) {
	t, ok := c[strings.ToUpper(code)]
	return t, ok
}

// Label returns the display label of code, or code itself when unknown.
func (c TypeCatalog) Label(code string) string {
	if t, ok := c.Lookup(code); ok {
		return t.Label
	}
	return code
}

// List returns the catalog sorted by code.
func (c TypeCatalog) List() []AircraftType {
	res := make([]AircraftType, 0, len(c))
	for _, t := range c {
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Code < res[j].Code })
	return res
}

// Aircraft is a fleet member. It is immutable once registered.
type Aircraft struct {
	Registration string `json:"registration"`
	Type         string `json:"type"`
	MaxPax       int    `json:"maxPax"`
}
