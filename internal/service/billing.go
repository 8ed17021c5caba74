package service

import (
	"math"
	"time"
)

// RatePerMinute derives the per-minute billing rate frozen onto a session
// from the zone's hourly rate.
func RatePerMinute(ratePerHour float64) float64 {
	return ratePerHour / 60
}

// BillableMinutes returns whole elapsed minutes between arrival and now.
func BillableMinutes(arrival, now time.Time) int64 {
	d := now.Sub(arrival)
	if d < 0 {
		return 0
	}
	return int64(d / time.Minute)
}

// RoundPrice rounds a charge to 2 decimal places.
func RoundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}
