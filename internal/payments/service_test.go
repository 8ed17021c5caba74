package payments

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"

	"openspots/internal/clock"
	"openspots/internal/models"
	"openspots/internal/repository"
)

type fakeUserStore struct {
	mu         sync.Mutex
	users      map[string]*models.User
	savedUser  string
	savedCard  models.SavedCard
	savedCust  string
	saveCalled int
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	f := &fakeUserStore{users: make(map[string]*models.User)}
	for _, u := range users {
		cp := *u
		f.users[u.ID] = &cp
	}
	return f
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) FindByCustomerRef(_ context.Context, customerID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.StripeCustomerID == customerID || u.LegacyCustomerRef == customerID || u.LegacyCustomerID == customerID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) SavePaymentMethod(_ context.Context, userID string, card models.SavedCard, customerID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalled++
	f.savedUser = userID
	f.savedCard = card
	f.savedCust = customerID
	return nil
}

type fakeBookingStore struct {
	mu     sync.Mutex
	inputs []repository.BookingInput
	err    error
}

func (f *fakeBookingStore) FinalizeBooking(_ context.Context, in repository.BookingInput, at time.Time) (*models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &models.Reservation{ID: "res-1", UserID: in.UserID, SpotID: in.SpotID, CreatedAt: at}, nil
}

type fakeCardFetcher struct {
	card models.SavedCard
	err  error
}

func (f *fakeCardFetcher) CardFromSetupIntent(_ context.Context, _ string) (models.SavedCard, error) {
	return f.card, f.err
}

type fakeNotifier struct {
	added chan string
}

func (f *fakeNotifier) PaymentMethodAdded(_ context.Context, to, _, _, _ string, _, _ int64) error {
	f.added <- to
	return nil
}

func completedEvent(t *testing.T, session map[string]interface{}) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	return stripe.Event{
		ID:   "evt_1",
		Type: stripe.EventTypeCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: raw},
	}
}

func newTestService(users *fakeUserStore, bookings *fakeBookingStore, cards CardFetcher, notifier Notifier) *Service {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	return NewService(users, bookings, cards, notifier, clock.NewFixed(now), zap.NewNop())
}

func TestSetupCompletedSavesCard(t *testing.T) {
	users := newFakeUserStore(&models.User{ID: "u-1", Email: "driver@example.com"})
	cards := &fakeCardFetcher{card: models.SavedCard{Brand: "visa", Last4: "4242", ExpMonth: 12, ExpYear: 2030}}
	notifier := &fakeNotifier{added: make(chan string, 1)}
	svc := newTestService(users, &fakeBookingStore{}, cards, notifier)

	event := completedEvent(t, map[string]interface{}{
		"id":           "cs_1",
		"mode":         "setup",
		"customer":     map[string]interface{}{"id": "cus_1"},
		"setup_intent": map[string]interface{}{"id": "seti_1"},
		"metadata":     map[string]string{"userId": "u-1"},
	})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	users.mu.Lock()
	saved := users.savedUser
	card := users.savedCard
	cust := users.savedCust
	users.mu.Unlock()

	if saved != "u-1" {
		t.Fatalf("saved user = %q, want u-1", saved)
	}
	if card.Brand != "visa" || card.Last4 != "4242" {
		t.Fatalf("saved card = %+v", card)
	}
	if cust != "cus_1" {
		t.Fatalf("saved customer = %q, want cus_1", cust)
	}

	select {
	case to := <-notifier.added:
		if to != "driver@example.com" {
			t.Fatalf("confirmation email to %s", to)
		}
	case <-time.After(time.Second):
		t.Fatal("no confirmation email sent")
	}
}

func TestSetupCompletedFallsBackToCustomerRef(t *testing.T) {
	// Older documents carry the processor reference under legacy field
	// names and no metadata user id.
	users := newFakeUserStore(&models.User{ID: "u-legacy", LegacyCustomerID: "cus_old"})
	svc := newTestService(users, &fakeBookingStore{}, &fakeCardFetcher{}, nil)

	event := completedEvent(t, map[string]interface{}{
		"id":       "cs_1",
		"mode":     "setup",
		"customer": map[string]interface{}{"id": "cus_old"},
	})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	users.mu.Lock()
	defer users.mu.Unlock()
	if users.savedUser != "u-legacy" {
		t.Fatalf("saved user = %q, want u-legacy", users.savedUser)
	}
}

func TestSetupCompletedUnknownUserIsSwallowed(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestService(users, &fakeBookingStore{}, &fakeCardFetcher{}, nil)

	event := completedEvent(t, map[string]interface{}{
		"id":       "cs_1",
		"mode":     "setup",
		"customer": map[string]interface{}{"id": "cus_nobody"},
	})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	users.mu.Lock()
	defer users.mu.Unlock()
	if users.saveCalled != 0 {
		t.Fatal("payment method saved for unknown user")
	}
}

func TestSetupCompletedCardFetchFailureStillFlagsUser(t *testing.T) {
	users := newFakeUserStore(&models.User{ID: "u-1", Email: "driver@example.com"})
	cards := &fakeCardFetcher{err: errors.New("processor unreachable")}
	svc := newTestService(users, &fakeBookingStore{}, cards, nil)

	event := completedEvent(t, map[string]interface{}{
		"id":           "cs_1",
		"mode":         "setup",
		"setup_intent": map[string]interface{}{"id": "seti_1"},
		"metadata":     map[string]string{"userId": "u-1"},
	})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	users.mu.Lock()
	defer users.mu.Unlock()
	if users.saveCalled != 1 {
		t.Fatal("payment method flag not persisted after card fetch failure")
	}
	if users.savedCard.Brand != "" {
		t.Fatalf("card = %+v, want empty after fetch failure", users.savedCard)
	}
}

func TestPaymentCompletedFinalizesBooking(t *testing.T) {
	bookings := &fakeBookingStore{}
	svc := newTestService(newFakeUserStore(), bookings, nil, nil)

	event := completedEvent(t, map[string]interface{}{
		"id":             "cs_9",
		"mode":           "payment",
		"amount_total":   1500,
		"payment_intent": map[string]interface{}{"id": "pi_9"},
		"metadata": map[string]string{
			"userId":  "u-1",
			"eventId": "ev-1",
			"spotId":  "spot-1",
		},
	})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	bookings.mu.Lock()
	defer bookings.mu.Unlock()
	if len(bookings.inputs) != 1 {
		t.Fatalf("bookings = %d, want 1", len(bookings.inputs))
	}
	in := bookings.inputs[0]
	if in.UserID != "u-1" || in.EventID != "ev-1" || in.SpotID != "spot-1" {
		t.Fatalf("booking input = %+v", in)
	}
	if in.PricePaid != 15.00 {
		t.Fatalf("price paid = %v, want 15.00", in.PricePaid)
	}
	if in.StripeSessionID != "cs_9" || in.PaymentIntent != "pi_9" {
		t.Fatalf("processor refs = %+v", in)
	}
}

func TestPaymentCompletedLostSpotPropagates(t *testing.T) {
	bookings := &fakeBookingStore{err: repository.ErrSpotUnavailable}
	svc := newTestService(newFakeUserStore(), bookings, nil, nil)

	event := completedEvent(t, map[string]interface{}{
		"id":   "cs_9",
		"mode": "payment",
		"metadata": map[string]string{
			"userId":  "u-1",
			"eventId": "ev-1",
			"spotId":  "spot-1",
		},
	})

	err := svc.HandleEvent(context.Background(), event)
	if !errors.Is(err, repository.ErrSpotUnavailable) {
		t.Fatalf("err = %v, want ErrSpotUnavailable", err)
	}
}

func TestPaymentCompletedMissingMetadataIsSwallowed(t *testing.T) {
	bookings := &fakeBookingStore{}
	svc := newTestService(newFakeUserStore(), bookings, nil, nil)

	event := completedEvent(t, map[string]interface{}{
		"id":       "cs_9",
		"mode":     "payment",
		"metadata": map[string]string{"userId": "u-1"},
	})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	bookings.mu.Lock()
	defer bookings.mu.Unlock()
	if len(bookings.inputs) != 0 {
		t.Fatal("booking finalized despite missing metadata")
	}
}

func TestUnrelatedEventIgnored(t *testing.T) {
	bookings := &fakeBookingStore{}
	users := newFakeUserStore()
	svc := newTestService(users, bookings, nil, nil)

	event := stripe.Event{ID: "evt_2", Type: stripe.EventTypeInvoicePaid, Data: &stripe.EventData{Raw: []byte(`{}`)}}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
}
