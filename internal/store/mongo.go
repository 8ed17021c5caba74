package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names. The metered-parking collections keep the names the rest
// of the platform already uses.
const (
	ZonesCollection        = "private_metered_parking"
	SessionsCollection     = "parking_sessions"
	UsersCollection        = "users"
	SpotsCollection        = "spots"
	EventsCollection       = "events"
	VenuesCollection       = "venues"
	ReservationsCollection = "reservations"
)

const defaultConnectTimeout = 10 * time.Second

// NewMongoClient connects to the document store and validates the connection
// with a ping.
func NewMongoClient(uri string, maxPoolSize, minPoolSize uint64) (*mongo.Client, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, errors.New("store: empty mongo uri")
	}

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(maxPoolSize).
		SetMinPoolSize(minPoolSize).
		SetRetryWrites(true)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return client, nil
}
