package service

import (
	"context"
	"errors"
	"time"

	"openspots/internal/models"
	"openspots/internal/ws"
)

// Not-found errors surface to the client as "rescan the QR code", never as
// a server failure.
var (
	ErrZoneNotFound    = errors.New("service: zone not found")
	ErrSessionNotFound = errors.New("service: session not found")
)

// ZoneStore is the zone persistence contract the services consume.
type ZoneStore interface {
	GetByID(ctx context.Context, id string) (*models.Zone, error)
	FindByZoneNumber(ctx context.Context, zoneNumber string) (*models.Zone, error)
	SetAvailability(ctx context.Context, id string, available bool, at time.Time) error
}

// SessionStore is the session persistence contract. Activate, Complete and
// Cancel are conditional transitions: they report false instead of failing
// when the session already left the expected status.
type SessionStore interface {
	CreateIfNoOpen(ctx context.Context, session *models.Session) (*models.Session, bool, error)
	GetByID(ctx context.Context, id string) (*models.Session, error)
	ListByStatus(ctx context.Context, status string) ([]models.Session, error)
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.Session, error)
	Activate(ctx context.Context, id string, at time.Time, ratePerMinute float64, paymentMethod string) (bool, error)
	ActivateWithStoredRate(ctx context.Context, id string, at time.Time) (bool, error)
	StampPendingStarted(ctx context.Context, id string, at time.Time) error
	UpdateAccrual(ctx context.Context, id string, totalMinutes int64, priceCharged float64, at time.Time) error
	Complete(ctx context.Context, id string, at time.Time, totalMinutes int64, priceCharged float64) (bool, error)
	Cancel(ctx context.Context, id string, at time.Time) (bool, error)
}

// UserStore resolves users for notifications.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Notifier sends the lifecycle emails. Every call is fire-and-forget from
// the state machine's point of view: errors are logged by the
// implementation and never roll a transition back.
type Notifier interface {
	ParkingStarted(ctx context.Context, to, firstName, zoneNumber string, startedAt time.Time, ratePerHour float64) error
	ParkingReceipt(ctx context.Context, to, firstName, zoneNumber string, startTime, endTime time.Time, totalMinutes int64, totalAmount float64) error
	ParkingCancelled(ctx context.Context, to, firstName, zoneNumber string) error
}

// Broadcaster pushes live updates to connected watch clients.
type Broadcaster interface {
	BroadcastSession(update ws.SessionUpdate)
	BroadcastZone(update ws.ZoneUpdate)
}
