package service

import (
	"testing"
	"time"
)

func TestRatePerMinute(t *testing.T) {
	cases := []struct {
		ratePerHour float64
		want        float64
	}{
		{12.00, 0.20},
		{6.00, 0.10},
		{0, 0},
		{1.50, 0.025},
	}
	for _, tc := range cases {
		if got := RatePerMinute(tc.ratePerHour); got != tc.want {
			t.Errorf("RatePerMinute(%v) = %v, want %v", tc.ratePerHour, got, tc.want)
		}
	}
}

func TestBillableMinutes(t *testing.T) {
	arrival := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		elapsed time.Duration
		want    int64
	}{
		{"zero", 0, 0},
		{"under a minute", 59 * time.Second, 0},
		{"exactly a minute", time.Minute, 1},
		{"partial minute floors", 150 * time.Second, 2},
		{"clock behind arrival", -time.Minute, 0},
		{"long stay", 3*time.Hour + 7*time.Minute, 187},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BillableMinutes(arrival, arrival.Add(tc.elapsed)); got != tc.want {
				t.Errorf("BillableMinutes(+%v) = %d, want %d", tc.elapsed, got, tc.want)
			}
		})
	}
}

func TestRoundPrice(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.4000000000001, 0.40},
		{1.005, 1.0},  // float repr of 1.005 sits just below the half
		{2.675, 2.67}, // same
		{0.125, 0.13},
		{0, 0},
	}
	for _, tc := range cases {
		if got := RoundPrice(tc.in); got != tc.want {
			t.Errorf("RoundPrice(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
