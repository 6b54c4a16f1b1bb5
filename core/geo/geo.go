// Package geo defines the airport lookup used to measure sectors.
package geo

import (
	"errors"
	"fmt"
)

// ErrUnknownAirport is returned when an airport identifier cannot be resolved.
var ErrUnknownAirport = errors.New("unknown airport")

// Airport is a resolved airport.
type Airport struct {
	Code string  `json:"code"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Locator resolves airport identifiers and measures great-circle distances
// between them in nautical miles.
type Locator interface {
	Lookup(code string) (Airport, bool)
	DistanceNM(from, to string) (float64, error)
}

// UnknownAirportError wraps ErrUnknownAirport with the offending code.
func UnknownAirportError(code string) error {
	return fmt.Errorf("%w: %s", ErrUnknownAirport, code)
}

// Label returns "CODE - Name" for known airports and the bare code otherwise.
func Label(l Locator, code string) string {
	if l == nil {
		return code
	}
	ap, ok := l.Lookup(code)
	if !ok || ap.Name == "" {
		return code
	}
	return ap.Code + " - " + ap.Name
}
