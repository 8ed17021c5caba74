package models

import "time"

// Spot is an event-parking space sold through the reservation (non-metered)
// flow. Distinct from Zone: spots are date-ranged inventory tied to venues.
type Spot struct {
	ID          string    `bson:"_id" json:"id"`
	SpotLabel   string    `bson:"spot_id" json:"spot_label"`
	VenueID     string    `bson:"venue_id,omitempty" json:"venue_id,omitempty"`
	IsAvailable bool      `bson:"is_available" json:"is_available"`
	ReservedBy  string    `bson:"reserved_by,omitempty" json:"reserved_by,omitempty"`
	LastUpdated time.Time `bson:"last_updated" json:"last_updated"`
}

// Event is the venue event a reservation is booked against.
type Event struct {
	ID        string     `bson:"_id" json:"id"`
	EventName string     `bson:"event_name" json:"event_name"`
	VenueID   string     `bson:"venue_ref,omitempty" json:"venue_id,omitempty"`
	EventDate *time.Time `bson:"event_date,omitempty" json:"event_date,omitempty"`
}

// Venue holds the display name cached onto reservations.
type Venue struct {
	ID   string `bson:"_id" json:"id"`
	Name string `bson:"name" json:"name"`
}

// Reservation statuses.
const (
	ReservationStatusConfirmed = "confirmed"
)

// Reservation is a confirmed non-metered booking. Venue and event names plus
// the start time are denormalized at booking time so listings render without
// joins.
type Reservation struct {
	ID              string     `bson:"_id" json:"id"`
	UserID          string     `bson:"user_id" json:"user_id"`
	VenueID         string     `bson:"venue_id,omitempty" json:"venue_id,omitempty"`
	SpotID          string     `bson:"spot_ref" json:"spot_id"`
	EventID         string     `bson:"event_ref" json:"event_id"`
	VenueName       string     `bson:"venue_name" json:"venue_name"`
	EventName       string     `bson:"event_name" json:"event_name"`
	StartTime       *time.Time `bson:"start_time,omitempty" json:"start_time,omitempty"`
	SpotLabel       string     `bson:"spot_label" json:"spot_label"`
	PricePaid       float64    `bson:"price_paid" json:"price_paid"`
	Status          string     `bson:"status" json:"status"`
	StripeSessionID string     `bson:"stripe_session_id,omitempty" json:"-"`
	PaymentIntent   string     `bson:"payment_intent,omitempty" json:"-"`
	CreatedAt       time.Time  `bson:"created_at" json:"created_at"`
}
