package mailer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

const defaultFrom = "OpenSpots <no-reply@openspots.app>"

// Mailer sends transactional email through Resend. All sends are best-effort
// from the caller's point of view: failures are returned for logging, never
// for rollback.
type Mailer struct {
	client       *resend.Client
	from         string
	appURL       string
	supportEmail string
	logger       *zap.Logger
}

// New builds a Resend-backed mailer.
func New(apiKey, from, appURL, supportEmail string, logger *zap.Logger) (*Mailer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("mailer: api key is empty")
	}
	if strings.TrimSpace(from) == "" {
		from = defaultFrom
	}
	return &Mailer{
		client:       resend.NewClient(apiKey),
		from:         from,
		appURL:       appURL,
		supportEmail: supportEmail,
		logger:       logger,
	}, nil
}

// AppURL exposes the configured public base URL for template building.
func (m *Mailer) AppURL() string { return m.appURL }

// SupportEmail exposes the configured support address for template building.
func (m *Mailer) SupportEmail() string { return m.supportEmail }

// ParkingStarted notifies the user their session went ACTIVE.
func (m *Mailer) ParkingStarted(ctx context.Context, to, firstName, zoneNumber string, startedAt time.Time, ratePerHour float64) error {
	return m.Send(ctx, to, BuildParkingStarted(firstName, m.appURL, m.supportEmail, zoneNumber, startedAt, ratePerHour))
}

// ParkingReceipt sends the end-of-session receipt.
func (m *Mailer) ParkingReceipt(ctx context.Context, to, firstName, zoneNumber string, startTime, endTime time.Time, totalMinutes int64, totalAmount float64) error {
	return m.Send(ctx, to, BuildParkingReceipt(firstName, m.appURL, m.supportEmail, zoneNumber, startTime, endTime, totalMinutes, totalAmount))
}

// ParkingCancelled tells the user a pending session never materialized.
func (m *Mailer) ParkingCancelled(ctx context.Context, to, firstName, zoneNumber string) error {
	return m.Send(ctx, to, BuildParkingCancelled(firstName, m.appURL, m.supportEmail, zoneNumber))
}

// PaymentMethodAdded confirms a saved card.
func (m *Mailer) PaymentMethodAdded(ctx context.Context, to, firstName, cardBrand, last4 string, expMonth, expYear int64) error {
	return m.Send(ctx, to, BuildPaymentMethodAdded(firstName, m.appURL, m.supportEmail, cardBrand, last4, expMonth, expYear))
}

// Welcome greets a new signup.
func (m *Mailer) Welcome(ctx context.Context, to, firstName string) error {
	return m.Send(ctx, to, BuildWelcome(firstName, m.appURL, m.supportEmail))
}

// Send delivers one rendered message.
func (m *Mailer) Send(ctx context.Context, to string, msg Message) error {
	if strings.TrimSpace(to) == "" {
		return errors.New("mailer: recipient is empty")
	}
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	if _, err := m.client.Emails.SendWithContext(ctx, params); err != nil {
		m.logger.Warn("email send failed",
			zap.String("to", to),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return err
	}
	return nil
}
