package models

import "time"

// Regulation labels for metered zones.
const (
	RegulationMetered = "METERED"
)

// Zone represents one physical metered parking space.
//
// IsAvailable reflects the most recent occupancy signal: true means the space
// is physically vacant, false means something occupies it, independent of
// billing state. Occupancy is inferred from session transitions and sensor
// events; there is no authoritative presence feed.
type Zone struct {
	ID             string    `bson:"_id" json:"id"`
	ZoneNumber     string    `bson:"zone_number" json:"zone_number"`
	SensorID       string    `bson:"sensor_id" json:"sensor_id"`
	IsAvailable    bool      `bson:"is_available" json:"is_available"`
	RatePerHour    float64   `bson:"rate_per_hour" json:"rate_per_hour"`
	RegulationType string    `bson:"regulation_type" json:"regulation_type"`
	Active         bool      `bson:"active" json:"active"`
	LastUpdated    time.Time `bson:"last_updated" json:"last_updated"`
}
