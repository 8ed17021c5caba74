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

// UserRepository reads and writes the payment slice of user profiles.
type UserRepository struct {
	coll *mongo.Collection
}

// NewUserRepository returns repository over the users collection.
func NewUserRepository(client *mongo.Client, database string) *UserRepository {
	return &UserRepository{coll: client.Database(database).Collection(store.UsersCollection)}
}

// GetByID returns the user or nil when absent.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("user repo: get %s: %w", id, err)
	}
	return &user, nil
}

// FindByCustomerRef resolves a payment-processor customer id to a user,
// checking the canonical field first and then the two legacy field names
// older documents still carry.
func (r *UserRepository) FindByCustomerRef(ctx context.Context, customerID string) (*models.User, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"stripe_customer_id": customerID},
		bson.M{"stripe_customer": customerID},
		bson.M{"customerId": customerID},
	}}
	var user models.User
	err := r.coll.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("user repo: find by customer: %w", err)
	}
	return &user, nil
}

// SavePaymentMethod persists the saved card's display details and flips the
// has-payment-method flag.
func (r *UserRepository) SavePaymentMethod(ctx context.Context, userID string, card models.SavedCard, customerID string, at time.Time) error {
	update := bson.M{"$set": bson.M{
		"hasPaymentMethod":   true,
		"stripe_customer_id": customerID,
		"card_brand":         card.Brand,
		"card_last4":         card.Last4,
		"card_exp_month":     card.ExpMonth,
		"card_exp_year":      card.ExpYear,
		"last_updated":       at,
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("user repo: save payment method: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user repo: save payment method: user %s not found", userID)
	}
	return nil
}
