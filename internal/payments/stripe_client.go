package payments

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"openspots/internal/models"
)

// StripeClient wraps the processor API behind the narrow surfaces the
// services consume.
type StripeClient struct {
	api *client.API
}

func NewStripeClient(secretKey string) *StripeClient {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeClient{api: api}
}

// CardFromSetupIntent fetches the setup intent with its payment method
// expanded and lifts out the card display details.
func (c *StripeClient) CardFromSetupIntent(ctx context.Context, setupIntentID string) (models.SavedCard, error) {
	params := &stripe.SetupIntentParams{}
	params.Context = ctx
	params.AddExpand("payment_method")

	intent, err := c.api.SetupIntents.Get(setupIntentID, params)
	if err != nil {
		return models.SavedCard{}, fmt.Errorf("payments: get setup intent: %w", err)
	}
	if intent.PaymentMethod == nil || intent.PaymentMethod.Card == nil {
		return models.SavedCard{}, errors.New("payments: setup intent has no card")
	}

	card := intent.PaymentMethod.Card
	return models.SavedCard{
		Brand:    string(card.Brand),
		Last4:    card.Last4,
		ExpMonth: card.ExpMonth,
		ExpYear:  card.ExpYear,
	}, nil
}

// CheckoutInput is what the reservation checkout flow needs from the caller.
type CheckoutInput struct {
	UserID    string
	EventID   string
	SpotID    string
	SpotLabel string
	EventName string
	Price     float64
}

// CreateCheckoutSession opens a payment-mode hosted checkout carrying the
// booking identifiers as metadata so the completion webhook can finalize
// the reservation. Returns the hosted page URL.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, in CheckoutInput, baseURL string) (string, error) {
	name := "Parking Reservation"
	if in.EventName != "" {
		name = "Parking: " + in.EventName
	}
	description := "Reserved spot"
	if in.SpotLabel != "" {
		description = "Spot " + in.SpotLabel
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(string(stripe.CurrencyUSD)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(name),
					Description: stripe.String(description),
				},
				UnitAmount: stripe.Int64(int64(math.Round(in.Price * 100))),
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(baseURL + "/my-spots.html?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(baseURL + "/checkout.html?cancelled=true"),
	}
	params.Context = ctx
	params.AddMetadata("userId", in.UserID)
	params.AddMetadata("eventId", in.EventID)
	params.AddMetadata("spotId", in.SpotID)

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("payments: create checkout session: %w", err)
	}
	return session.URL, nil
}
