package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"

	"openspots/internal/clock"
	"openspots/internal/models"
	"openspots/internal/repository"
)

// UserStore is the user persistence slice the webhook needs.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	FindByCustomerRef(ctx context.Context, customerID string) (*models.User, error)
	SavePaymentMethod(ctx context.Context, userID string, card models.SavedCard, customerID string, at time.Time) error
}

// BookingStore finalizes paid reservations.
type BookingStore interface {
	FinalizeBooking(ctx context.Context, in repository.BookingInput, at time.Time) (*models.Reservation, error)
}

// CardFetcher resolves a completed setup intent to the saved card's display
// details.
type CardFetcher interface {
	CardFromSetupIntent(ctx context.Context, setupIntentID string) (models.SavedCard, error)
}

// Notifier sends the saved-card confirmation, best-effort.
type Notifier interface {
	PaymentMethodAdded(ctx context.Context, to, firstName, cardBrand, last4 string, expMonth, expYear int64) error
}

// Service consumes payment-processor events. Setup-mode completions attach
// a saved card to a user; payment-mode completions finalize a reservation
// booking inside one transaction.
type Service struct {
	users    UserStore
	bookings BookingStore
	cards    CardFetcher
	notifier Notifier
	clk      clock.Clock
	logger   *zap.Logger
}

// NewService builds the webhook consumer. cards and notifier may be nil.
func NewService(users UserStore, bookings BookingStore, cards CardFetcher, notifier Notifier, clk clock.Clock, logger *zap.Logger) *Service {
	return &Service{
		users:    users,
		bookings: bookings,
		cards:    cards,
		notifier: notifier,
		clk:      clk,
		logger:   logger,
	}
}

// HandleEvent routes one verified event. A returned error means the caller
// must answer non-2xx so the processor redelivers; everything that is safe
// to lose is logged and swallowed instead.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			s.logger.Error("failed to decode checkout session", zap.String("event_id", event.ID), zap.Error(err))
			return nil
		}
		switch session.Mode {
		case stripe.CheckoutSessionModeSetup:
			s.handleSetupCompleted(ctx, &session)
			return nil
		case stripe.CheckoutSessionModePayment:
			return s.handlePaymentCompleted(ctx, &session)
		default:
			s.logger.Debug("ignoring checkout mode", zap.String("mode", string(session.Mode)))
			return nil
		}
	default:
		s.logger.Debug("ignoring event", zap.String("type", string(event.Type)))
		return nil
	}
}

// handleSetupCompleted persists the saved card onto the paying user.
// Failures here are logged, never redelivered: the card is retrievable from
// the processor at any time and the user can retry the setup flow.
func (s *Service) handleSetupCompleted(ctx context.Context, session *stripe.CheckoutSession) {
	customerID := ""
	if session.Customer != nil {
		customerID = session.Customer.ID
	}

	user, err := s.resolveUser(ctx, session.Metadata["userId"], customerID)
	if err != nil {
		s.logger.Error("setup completion: user lookup failed", zap.Error(err))
		return
	}
	if user == nil {
		s.logger.Warn("setup completion: no user for customer",
			zap.String("customer_id", customerID),
			zap.String("metadata_user", session.Metadata["userId"]),
		)
		return
	}

	var card models.SavedCard
	if s.cards != nil && session.SetupIntent != nil {
		card, err = s.cards.CardFromSetupIntent(ctx, session.SetupIntent.ID)
		if err != nil {
			// Still flag the user as payable; display details can be
			// backfilled on the next processor lookup.
			s.logger.Warn("setup completion: card details lookup failed",
				zap.String("setup_intent", session.SetupIntent.ID),
				zap.Error(err),
			)
			card = models.SavedCard{}
		}
	}

	if err := s.users.SavePaymentMethod(ctx, user.ID, card, customerID, s.clk.Now()); err != nil {
		s.logger.Error("setup completion: failed to persist payment method",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("payment method saved",
		zap.String("user_id", user.ID),
		zap.String("card_brand", card.Brand),
	)

	if s.notifier != nil && user.Email != "" {
		email := user.Email
		firstName := user.FirstName
		go func() {
			nctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = s.notifier.PaymentMethodAdded(nctx, email, firstName, card.Brand, card.Last4, card.ExpMonth, card.ExpYear)
		}()
	}
}

// resolveUser prefers the processor-side metadata, then falls back to the
// stored customer reference fields.
func (s *Service) resolveUser(ctx context.Context, metadataUserID, customerID string) (*models.User, error) {
	if metadataUserID != "" {
		user, err := s.users.GetByID(ctx, metadataUserID)
		if err != nil {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
	}
	if customerID == "" {
		return nil, nil
	}
	return s.users.FindByCustomerRef(ctx, customerID)
}

// handlePaymentCompleted finalizes the reservation. The returned error on a
// lost spot race is deliberate: the webhook answers non-2xx and the
// processor redelivers, at which point the transaction aborts again and the
// operator can refund.
func (s *Service) handlePaymentCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	userID := session.Metadata["userId"]
	eventID := session.Metadata["eventId"]
	spotID := session.Metadata["spotId"]
	if userID == "" || eventID == "" || spotID == "" {
		s.logger.Error("payment completion: missing metadata",
			zap.String("checkout_session", session.ID),
		)
		return nil
	}

	in := repository.BookingInput{
		UserID:          userID,
		EventID:         eventID,
		SpotID:          spotID,
		PricePaid:       float64(session.AmountTotal) / 100,
		StripeSessionID: session.ID,
	}
	if session.PaymentIntent != nil {
		in.PaymentIntent = session.PaymentIntent.ID
	}

	reservation, err := s.bookings.FinalizeBooking(ctx, in, s.clk.Now())
	if err != nil {
		return fmt.Errorf("payments: finalize booking: %w", err)
	}

	s.logger.Info("reservation created and spot locked",
		zap.String("reservation_id", reservation.ID),
		zap.String("spot_id", spotID),
		zap.String("user_id", userID),
	)
	return nil
}
