package models

import "time"

// SavedCard is the display summary of a stored payment instrument.
type SavedCard struct {
	Brand    string
	Last4    string
	ExpMonth int64
	ExpYear  int64
}

// User is the profile slice this service reads and writes: contact details
// for notifications and the saved payment method state. Authentication and
// the rest of the profile belong to an external collaborator.
//
// StripeCustomerID is the canonical processor reference; LegacyCustomerRef
// and LegacyCustomerID are older field names still present on some documents.
type User struct {
	ID                string    `bson:"_id" json:"id"`
	Email             string    `bson:"email" json:"email"`
	FirstName         string    `bson:"first_name,omitempty" json:"first_name,omitempty"`
	HasPaymentMethod  bool      `bson:"hasPaymentMethod" json:"has_payment_method"`
	StripeCustomerID  string    `bson:"stripe_customer_id,omitempty" json:"-"`
	LegacyCustomerRef string    `bson:"stripe_customer,omitempty" json:"-"`
	LegacyCustomerID  string    `bson:"customerId,omitempty" json:"-"`
	CardBrand         string    `bson:"card_brand,omitempty" json:"card_brand,omitempty"`
	CardLast4         string    `bson:"card_last4,omitempty" json:"card_last4,omitempty"`
	CardExpMonth      int64     `bson:"card_exp_month,omitempty" json:"card_exp_month,omitempty"`
	CardExpYear       int64     `bson:"card_exp_year,omitempty" json:"card_exp_year,omitempty"`
	LastUpdated       time.Time `bson:"last_updated" json:"last_updated"`
}
