package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"openspots/internal/models"
	"openspots/internal/store"
)

// SessionRepository handles persistence of parking session documents.
//
// Status transitions are conditional single-document updates: the filter
// names the expected current status, so a repeated or racing transition
// matches zero documents instead of applying twice.
type SessionRepository struct {
	coll *mongo.Collection
}

// NewSessionRepository returns repository over the parking sessions collection.
func NewSessionRepository(client *mongo.Client, database string) *SessionRepository {
	return &SessionRepository{coll: client.Database(database).Collection(store.SessionsCollection)}
}

// Create inserts a new PENDING session and returns its id.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) (string, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if _, err := r.coll.InsertOne(ctx, session); err != nil {
		return "", fmt.Errorf("session repo: create: %w", err)
	}
	return session.ID, nil
}

type createResult struct {
	session *models.Session
	created bool
}

// CreateIfNoOpen inserts a PENDING session unless the (user, zone) pair
// already has one in PENDING or ACTIVE. The check and the insert run inside
// one multi-document transaction so concurrent starts from two devices
// cannot both create a session. Returns the surviving session and whether
// this call created it.
func (r *SessionRepository) CreateIfNoOpen(ctx context.Context, session *models.Session) (*models.Session, bool, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	mongoSess, err := r.coll.Database().Client().StartSession()
	if err != nil {
		return nil, false, fmt.Errorf("session repo: start session: %w", err)
	}
	defer mongoSess.EndSession(ctx)

	result, err := mongoSess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		existing, err := r.findOpen(sc, session.UserID, session.ZoneID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return createResult{session: existing, created: false}, nil
		}
		if _, err := r.coll.InsertOne(sc, session); err != nil {
			return nil, fmt.Errorf("session repo: create: %w", err)
		}
		return createResult{session: session, created: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := result.(createResult)
	return res.session, res.created, nil
}

// GetByID returns the session or nil when absent.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("session repo: get %s: %w", id, err)
	}
	return &session, nil
}

// FindOpenByUserZone returns the user's PENDING or ACTIVE session for the
// zone, or nil.
func (r *SessionRepository) FindOpenByUserZone(ctx context.Context, userID, zoneID string) (*models.Session, error) {
	return r.findOpen(ctx, userID, zoneID)
}

func (r *SessionRepository) findOpen(ctx context.Context, userID, zoneID string) (*models.Session, error) {
	filter := bson.M{
		"user_id": userID,
		"zone_id": zoneID,
		"status":  bson.M{"$in": bson.A{models.SessionStatusPending, models.SessionStatusActive}},
	}
	var session models.Session
	err := r.coll.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("session repo: find open: %w", err)
	}
	return &session, nil
}

// ListByStatus returns all sessions currently in the given status.
func (r *SessionRepository) ListByStatus(ctx context.Context, status string) ([]models.Session, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"status": status})
	if err != nil {
		return nil, fmt.Errorf("session repo: list %s: %w", status, err)
	}
	defer cursor.Close(ctx)

	var sessions []models.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("session repo: decode %s: %w", status, err)
	}
	return sessions, nil
}

// ListByUser returns the user's sessions, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string, limit int64) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("session repo: list by user: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []models.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("session repo: decode by user: %w", err)
	}
	return sessions, nil
}

// Activate transitions PENDING -> ACTIVE, freezing the billing rate and
// zeroing the accumulators. Returns false without error when the session was
// not PENDING, which makes repeated confirms a no-op.
func (r *SessionRepository) Activate(ctx context.Context, id string, at time.Time, ratePerMinute float64, paymentMethod string) (bool, error) {
	filter := bson.M{"_id": id, "status": models.SessionStatusPending}
	update := bson.M{"$set": bson.M{
		"status":          models.SessionStatusActive,
		"activated_at":    at,
		"arrival_time":    at,
		"rate_per_minute": ratePerMinute,
		"total_minutes":   int64(0),
		"price_charged":   float64(0),
		"payment_method":  paymentMethod,
		"last_updated":    at,
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("session repo: activate %s: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

// ActivateWithStoredRate transitions PENDING -> ACTIVE keeping whatever
// rate_per_minute was set at creation. Used by the pending-resolution sweep.
func (r *SessionRepository) ActivateWithStoredRate(ctx context.Context, id string, at time.Time) (bool, error) {
	filter := bson.M{"_id": id, "status": models.SessionStatusPending}
	update := bson.M{"$set": bson.M{
		"status":        models.SessionStatusActive,
		"activated_at":  at,
		"arrival_time":  at,
		"total_minutes": int64(0),
		"price_charged": float64(0),
		"last_updated":  at,
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("session repo: activate %s: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

// StampPendingStarted sets pending_started_at on sessions that reached
// PENDING through a path that never stamped it. Only writes when unset.
func (r *SessionRepository) StampPendingStarted(ctx context.Context, id string, at time.Time) error {
	filter := bson.M{
		"_id":                id,
		"status":             models.SessionStatusPending,
		"pending_started_at": bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{
		"pending_started_at": at,
		"last_updated":       at,
	}}
	if _, err := r.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("session repo: stamp pending %s: %w", id, err)
	}
	return nil
}

// UpdateAccrual writes the recomputed billing accumulators.
func (r *SessionRepository) UpdateAccrual(ctx context.Context, id string, totalMinutes int64, priceCharged float64, at time.Time) error {
	filter := bson.M{"_id": id, "status": models.SessionStatusActive}
	update := bson.M{"$set": bson.M{
		"total_minutes": totalMinutes,
		"price_charged": priceCharged,
		"last_updated":  at,
	}}
	if _, err := r.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("session repo: accrual %s: %w", id, err)
	}
	return nil
}

// Complete transitions ACTIVE -> COMPLETED with the final accumulators.
// Returns false when the session was not ACTIVE.
func (r *SessionRepository) Complete(ctx context.Context, id string, at time.Time, totalMinutes int64, priceCharged float64) (bool, error) {
	filter := bson.M{"_id": id, "status": models.SessionStatusActive}
	update := bson.M{"$set": bson.M{
		"status":         models.SessionStatusCompleted,
		"ended_at":       at,
		"departure_time": at,
		"total_minutes":  totalMinutes,
		"price_charged":  priceCharged,
		"last_updated":   at,
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("session repo: complete %s: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

// Cancel transitions PENDING -> CANCELLED. The pending-resolution sweep uses
// this for sessions whose car never showed up; the record survives for audit.
func (r *SessionRepository) Cancel(ctx context.Context, id string, at time.Time) (bool, error) {
	filter := bson.M{"_id": id, "status": models.SessionStatusPending}
	update := bson.M{"$set": bson.M{
		"status":       models.SessionStatusCancelled,
		"ended_at":     at,
		"last_updated": at,
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("session repo: cancel %s: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}
