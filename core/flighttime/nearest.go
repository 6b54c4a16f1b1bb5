package flighttime

import (
	"fmt"
	"sort"

	"github.com/kilianp07/fleetplan/core/geo"
)

// Candidate is one aircraft position ranked by its repositioning time.
type Candidate struct {
	// Index is the position of the candidate in the input list.
	Index      int      `json:"index"`
	Position   string   `json:"position"`
	DistanceNM float64  `json:"distanceNm"`
	Estimate   Estimate `json:"estimate"`
}

// Nearest ranks positions by the time needed to reach departure at
// speedKts, fastest first. Ties keep the input order.
func Nearest(l geo.Locator, positions []string, departure string, speedKts float64) ([]Candidate, error) {
	if speedKts <= 0 {
		return nil, fmt.Errorf("speed must be positive, got %v", speedKts)
	}
	res := make([]Candidate, 0, len(positions))
	for i, p := range positions {
		d, err := l.DistanceNM(p, departure)
		if err != nil {
			return nil, err
		}
		res = append(res, Candidate{Index: i, Position: p, DistanceNM: d, Estimate: Compute(d, speedKts)})
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Estimate.TotalHours < res[j].Estimate.TotalHours })
	return res, nil
}

// SavedMinutes returns the whole minutes gained by sending the first
// ranked candidate instead of the second.
func SavedMinutes(ranked []Candidate) int {
	if len(ranked) < 2 {
		return 0
	}
	return int((ranked[1].Estimate.TotalHours - ranked[0].Estimate.TotalHours) * 60)
}
