package models

import "time"

// Session statuses. COMPLETED, CANCELLED and EXPIRED are terminal.
const (
	SessionStatusPending   = "PENDING"
	SessionStatusActive    = "ACTIVE"
	SessionStatusCompleted = "COMPLETED"
	SessionStatusCancelled = "CANCELLED"
	SessionStatusExpired   = "EXPIRED"
)

// Session represents one user's use of one zone across one parking event.
// ZoneNumber and SensorID are denormalized from the zone for display without
// a join. RatePerMinute is frozen at activation time, not live-recomputed.
type Session struct {
	ID               string     `bson:"_id" json:"id"`
	UserID           string     `bson:"user_id" json:"user_id"`
	ZoneID           string     `bson:"zone_id" json:"zone_id"`
	ZoneNumber       string     `bson:"zone_number" json:"zone_number"`
	SensorID         string     `bson:"sensor_id" json:"sensor_id"`
	Status           string     `bson:"status" json:"status"`
	PendingStartedAt *time.Time `bson:"pending_started_at,omitempty" json:"pending_started_at,omitempty"`
	ArrivalTime      *time.Time `bson:"arrival_time,omitempty" json:"arrival_time,omitempty"`
	ActivatedAt      *time.Time `bson:"activated_at,omitempty" json:"activated_at,omitempty"`
	RatePerMinute    float64    `bson:"rate_per_minute" json:"rate_per_minute"`
	TotalMinutes     int64      `bson:"total_minutes" json:"total_minutes"`
	PriceCharged     float64    `bson:"price_charged" json:"price_charged"`
	PaymentMethod    string     `bson:"payment_method,omitempty" json:"payment_method,omitempty"`
	EndedAt          *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
	DepartureTime    *time.Time `bson:"departure_time,omitempty" json:"departure_time,omitempty"`
	CreatedAt        time.Time  `bson:"created_at" json:"created_at"`
	LastUpdated      time.Time  `bson:"last_updated" json:"last_updated"`
}

// Open reports whether the session still occupies its zone for billing
// purposes, i.e. it is neither terminal nor deleted.
func (s *Session) Open() bool {
	return s.Status == SessionStatusPending || s.Status == SessionStatusActive
}

// Terminal reports whether the session reached an absorbing state.
func (s *Session) Terminal() bool {
	switch s.Status {
	case SessionStatusCompleted, SessionStatusCancelled, SessionStatusExpired:
		return true
	}
	return false
}
