package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"openspots/internal/models"
	"openspots/internal/store"
)

// ZoneRepository handles persistence of metered zone documents.
type ZoneRepository struct {
	coll *mongo.Collection
}

// NewZoneRepository returns repository over the metered-parking collection.
func NewZoneRepository(client *mongo.Client, database string) *ZoneRepository {
	return &ZoneRepository{coll: client.Database(database).Collection(store.ZonesCollection)}
}

// GetByID returns the zone or nil when absent.
func (r *ZoneRepository) GetByID(ctx context.Context, id string) (*models.Zone, error) {
	var zone models.Zone
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&zone)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("zone repo: get %s: %w", id, err)
	}
	return &zone, nil
}

// FindByZoneNumber resolves a scanned zone label to an active zone, or nil
// when no active zone carries that label.
func (r *ZoneRepository) FindByZoneNumber(ctx context.Context, zoneNumber string) (*models.Zone, error) {
	var zone models.Zone
	filter := bson.M{"zone_number": zoneNumber, "active": true}
	err := r.coll.FindOne(ctx, filter).Decode(&zone)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("zone repo: find by zone number %s: %w", zoneNumber, err)
	}
	return &zone, nil
}

// FindBySensorID resolves a sensor element id to its zone, or nil.
func (r *ZoneRepository) FindBySensorID(ctx context.Context, sensorID string) (*models.Zone, error) {
	var zone models.Zone
	err := r.coll.FindOne(ctx, bson.M{"sensor_id": sensorID}).Decode(&zone)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("zone repo: find by sensor %s: %w", sensorID, err)
	}
	return &zone, nil
}

// SetAvailability flips the occupancy flag in a single atomic document update.
func (r *ZoneRepository) SetAvailability(ctx context.Context, id string, available bool, at time.Time) error {
	update := bson.M{"$set": bson.M{
		"is_available": available,
		"last_updated": at,
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("zone repo: set availability %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("zone repo: set availability: zone %s not found", id)
	}
	return nil
}
