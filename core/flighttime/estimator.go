// Package flighttime converts sector distances into scheduled block times.
package flighttime

import (
	"fmt"
	"math"
	"time"
)

const (
	// shortSectorHours is the threshold above which a sector gets the long
	// padding.
	shortSectorHours = 0.4
	longPadding      = 0.333
	shortPadding     = 0.20
)

// Estimate is a block time split into whole hours and minutes.
type Estimate struct {
	TotalHours float64
	Hours      int
	Minutes    int
}

// Compute returns the block time for distanceNM flown at speedKts, padded
// for taxi and procedures. speedKts must be positive.
func Compute(distanceNM, speedKts float64) Estimate {
	base := distanceNM / speedKts
	total := base + shortPadding
	if base > shortSectorHours {
		total = base + longPadding
	}
	h := math.Floor(total)
	return Estimate{
		TotalHours: total,
		Hours:      int(h),
		Minutes:    int(math.Floor((total - h) * 60)),
	}
}

// Duration returns the total block time as a time.Duration.
func (e Estimate) Duration() time.Duration {
	return time.Duration(e.TotalHours * float64(time.Hour))
}

// Text renders the estimate as "H hours M minutes".
func (e Estimate) Text() string {
	return fmt.Sprintf("%d hours %d minutes", e.Hours, e.Minutes)
}
