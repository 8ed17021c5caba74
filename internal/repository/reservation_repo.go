package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"openspots/internal/models"
	"openspots/internal/store"
)

// ErrSpotNotFound indicates the booking target does not exist.
var ErrSpotNotFound = errors.New("reservation repo: spot not found")

// ErrSpotUnavailable indicates a concurrent booking already took the spot.
// The webhook handler turns this into a non-2xx so the processor redelivers.
var ErrSpotUnavailable = errors.New("reservation repo: spot already reserved")

// ReservationRepository finalizes paid bookings.
type ReservationRepository struct {
	client   *mongo.Client
	database string
}

// NewReservationRepository returns the booking repository.
func NewReservationRepository(client *mongo.Client, database string) *ReservationRepository {
	return &ReservationRepository{client: client, database: database}
}

// BookingInput carries the checkout-completion data needed to finalize.
type BookingInput struct {
	UserID          string
	EventID         string
	SpotID          string
	PricePaid       float64
	StripeSessionID string
	PaymentIntent   string
}

// FinalizeBooking re-verifies spot availability, writes the reservation and
// flips the spot, all inside one multi-document transaction. Two concurrent
// completions for the same spot cannot both succeed: the loser aborts with
// ErrSpotUnavailable.
func (r *ReservationRepository) FinalizeBooking(ctx context.Context, in BookingInput, at time.Time) (*models.Reservation, error) {
	db := r.client.Database(r.database)
	spots := db.Collection(store.SpotsCollection)
	events := db.Collection(store.EventsCollection)
	venues := db.Collection(store.VenuesCollection)
	reservations := db.Collection(store.ReservationsCollection)

	mongoSess, err := r.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("reservation repo: start session: %w", err)
	}
	defer mongoSess.EndSession(ctx)

	result, err := mongoSess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var spot models.Spot
		if err := spots.FindOne(sc, bson.M{"_id": in.SpotID}).Decode(&spot); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, ErrSpotNotFound
			}
			return nil, fmt.Errorf("reservation repo: read spot: %w", err)
		}
		if !spot.IsAvailable {
			return nil, ErrSpotUnavailable
		}

		// Display-cache reads are best-effort; a missing event or venue
		// must not block a paid booking.
		venueName := "Venue"
		eventName := "Event"
		var venueID string
		var startTime *time.Time

		var event models.Event
		if err := events.FindOne(sc, bson.M{"_id": in.EventID}).Decode(&event); err == nil {
			if event.EventName != "" {
				eventName = event.EventName
			}
			venueID = event.VenueID
			startTime = event.EventDate
		}
		if venueID != "" {
			var venue models.Venue
			if err := venues.FindOne(sc, bson.M{"_id": venueID}).Decode(&venue); err == nil && venue.Name != "" {
				venueName = venue.Name
			}
		}

		spotLabel := spot.SpotLabel
		if spotLabel == "" {
			spotLabel = "SPOT"
		}

		reservation := models.Reservation{
			ID:              uuid.NewString(),
			UserID:          in.UserID,
			VenueID:         venueID,
			SpotID:          in.SpotID,
			EventID:         in.EventID,
			VenueName:       venueName,
			EventName:       eventName,
			StartTime:       startTime,
			SpotLabel:       spotLabel,
			PricePaid:       in.PricePaid,
			Status:          models.ReservationStatusConfirmed,
			StripeSessionID: in.StripeSessionID,
			PaymentIntent:   in.PaymentIntent,
			CreatedAt:       at,
		}

		spotUpdate := bson.M{"$set": bson.M{
			"is_available": false,
			"reserved_by":  in.UserID,
			"last_updated": at,
		}}
		if _, err := spots.UpdateOne(sc, bson.M{"_id": in.SpotID}, spotUpdate); err != nil {
			return nil, fmt.Errorf("reservation repo: lock spot: %w", err)
		}
		if _, err := reservations.InsertOne(sc, reservation); err != nil {
			return nil, fmt.Errorf("reservation repo: insert: %w", err)
		}

		return &reservation, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Reservation), nil
}
