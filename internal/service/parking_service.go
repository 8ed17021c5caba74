package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"openspots/internal/clock"
	"openspots/internal/models"
	"openspots/internal/ws"
)

const notifyTimeout = 10 * time.Second

// ParkingService drives the metered-session lifecycle: create PENDING,
// confirm to ACTIVE, end to COMPLETED, and the zone occupancy writes that
// pair with each transition.
type ParkingService struct {
	sessions  SessionStore
	zones     ZoneStore
	users     UserStore
	occupancy *Occupancy
	notifier  Notifier
	hub       Broadcaster
	clk       clock.Clock
	logger    *zap.Logger
}

// NewParkingService builds the service. notifier and hub may be nil.
func NewParkingService(
	sessions SessionStore,
	zones ZoneStore,
	users UserStore,
	occupancy *Occupancy,
	notifier Notifier,
	hub Broadcaster,
	clk clock.Clock,
	logger *zap.Logger,
) *ParkingService {
	return &ParkingService{
		sessions:  sessions,
		zones:     zones,
		users:     users,
		occupancy: occupancy,
		notifier:  notifier,
		hub:       hub,
		clk:       clk,
		logger:    logger,
	}
}

// CreatePendingInput identifies the zone either by document id or by the
// scanned human label.
type CreatePendingInput struct {
	UserID     string
	ZoneID     string
	ZoneNumber string
}

// CreatePending opens a PENDING session for the user in the zone. When the
// pair already has an open session, that session is returned instead of
// creating a duplicate; a client that finds it already ACTIVE skips
// straight to the active-session view.
func (s *ParkingService) CreatePending(ctx context.Context, in CreatePendingInput) (*models.Session, error) {
	zone, err := s.resolveZone(ctx, in.ZoneID, in.ZoneNumber)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	session := &models.Session{
		UserID:           in.UserID,
		ZoneID:           zone.ID,
		ZoneNumber:       zone.ZoneNumber,
		SensorID:         zone.SensorID,
		Status:           models.SessionStatusPending,
		PendingStartedAt: &now,
		RatePerMinute:    RatePerMinute(zone.RatePerHour),
		CreatedAt:        now,
		LastUpdated:      now,
	}

	session, created, err := s.sessions.CreateIfNoOpen(ctx, session)
	if err != nil {
		return nil, err
	}
	if !created {
		s.logger.Info("resuming open session",
			zap.String("session_id", session.ID),
			zap.String("user_id", in.UserID),
			zap.String("zone_id", zone.ID),
			zap.String("status", session.Status),
		)
		return session, nil
	}

	s.logger.Info("pending session created",
		zap.String("session_id", session.ID),
		zap.String("user_id", in.UserID),
		zap.String("zone_number", zone.ZoneNumber),
	)
	return session, nil
}

// Confirm transitions a PENDING session to ACTIVE and marks the zone
// occupied. Safe to call any number of times for the same session: a
// repeated or late call finds the session no longer PENDING and returns
// without side effects. The billing rate is re-derived from the zone at
// confirmation time; if the zone lookup fails the session still activates
// with a zero rate rather than stranding the user in PENDING.
func (s *ParkingService) Confirm(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Status != models.SessionStatusPending {
		return session, nil
	}

	rate := 0.0
	ratePerHour := 0.0
	zone, err := s.zones.GetByID(ctx, session.ZoneID)
	if err != nil || zone == nil {
		s.logger.Warn("zone lookup failed during confirm, activating with zero rate",
			zap.String("session_id", sessionID),
			zap.String("zone_id", session.ZoneID),
			zap.Error(err),
		)
		zone = nil
	} else {
		rate = RatePerMinute(zone.RatePerHour)
		ratePerHour = zone.RatePerHour
	}

	now := s.clk.Now()
	activated, err := s.sessions.Activate(ctx, sessionID, now, rate, "card")
	if err != nil {
		return nil, err
	}
	if !activated {
		// A concurrent confirm or sweeper activation won; nothing left to do.
		return s.sessions.GetByID(ctx, sessionID)
	}

	if zone != nil {
		if err := s.occupancy.SetOccupied(ctx, zone, true); err != nil {
			s.logger.Warn("failed to mark zone occupied after activation",
				zap.String("zone_id", zone.ID),
				zap.Error(err),
			)
		}
	}

	sessionsActivated.WithLabelValues("confirm").Inc()
	s.broadcastSession(sessionID, models.SessionStatusActive, session.ZoneNumber, now)
	s.notifyStarted(session.UserID, session.ZoneNumber, now, ratePerHour)

	s.logger.Info("session activated",
		zap.String("session_id", sessionID),
		zap.Float64("rate_per_minute", rate),
	)
	return s.sessions.GetByID(ctx, sessionID)
}

// End transitions an ACTIVE session to COMPLETED with a final accrual, frees
// the zone and sends the receipt. Ending an already-COMPLETED session is a
// no-op returning the session as is.
func (s *ParkingService) End(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Status != models.SessionStatusActive {
		return session, nil
	}

	now := s.clk.Now()
	minutes := session.TotalMinutes
	price := session.PriceCharged
	if session.ArrivalTime != nil {
		minutes = BillableMinutes(*session.ArrivalTime, now)
		price = RoundPrice(float64(minutes) * session.RatePerMinute)
	}

	completed, err := s.sessions.Complete(ctx, sessionID, now, minutes, price)
	if err != nil {
		return nil, err
	}
	if !completed {
		return s.sessions.GetByID(ctx, sessionID)
	}

	if zone, zerr := s.zones.GetByID(ctx, session.ZoneID); zerr == nil && zone != nil {
		if err := s.occupancy.SetOccupied(ctx, zone, false); err != nil {
			s.logger.Warn("failed to free zone after completion",
				zap.String("zone_id", zone.ID),
				zap.Error(err),
			)
		}
	}

	sessionsCompleted.Inc()
	s.broadcastSession(sessionID, models.SessionStatusCompleted, session.ZoneNumber, now)
	s.notifyReceipt(session, now, minutes, price)

	s.logger.Info("session completed",
		zap.String("session_id", sessionID),
		zap.Int64("total_minutes", minutes),
		zap.Float64("price_charged", price),
	)
	return s.sessions.GetByID(ctx, sessionID)
}

// MarkZoneOccupied records an occupancy claim on a zone without touching any
// session, backing both the session-start optimistic lock and the explicit
// lock-spot call.
func (s *ParkingService) MarkZoneOccupied(ctx context.Context, zoneID string) error {
	zone, err := s.zones.GetByID(ctx, zoneID)
	if err != nil {
		return err
	}
	if zone == nil {
		return ErrZoneNotFound
	}
	return s.occupancy.SetOccupied(ctx, zone, true)
}

// SessionsForUser returns the user's session history, newest first.
func (s *ParkingService) SessionsForUser(ctx context.Context, userID string, limit int64) ([]models.Session, error) {
	return s.sessions.ListByUser(ctx, userID, limit)
}

func (s *ParkingService) resolveZone(ctx context.Context, zoneID, zoneNumber string) (*models.Zone, error) {
	var zone *models.Zone
	var err error
	if zoneID != "" {
		zone, err = s.zones.GetByID(ctx, zoneID)
	} else if zoneNumber != "" {
		zone, err = s.zones.FindByZoneNumber(ctx, zoneNumber)
	}
	if err != nil {
		return nil, err
	}
	if zone == nil || !zone.Active {
		return nil, ErrZoneNotFound
	}
	return zone, nil
}

func (s *ParkingService) broadcastSession(sessionID, status, zoneNumber string, at time.Time) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastSession(ws.SessionUpdate{
		SessionID:  sessionID,
		Status:     status,
		ZoneNumber: zoneNumber,
		UpdatedAt:  at,
	})
}

func (s *ParkingService) notifyStarted(userID, zoneNumber string, startedAt time.Time, ratePerHour float64) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		user, err := s.users.GetByID(ctx, userID)
		if err != nil || user == nil || user.Email == "" {
			s.logger.Debug("skipping started email, no recipient", zap.String("user_id", userID), zap.Error(err))
			return
		}
		_ = s.notifier.ParkingStarted(ctx, user.Email, user.FirstName, zoneNumber, startedAt, ratePerHour)
	}()
}

func (s *ParkingService) notifyReceipt(session *models.Session, endedAt time.Time, minutes int64, price float64) {
	if s.notifier == nil {
		return
	}
	start := session.CreatedAt
	if session.ArrivalTime != nil {
		start = *session.ArrivalTime
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		user, err := s.users.GetByID(ctx, session.UserID)
		if err != nil || user == nil || user.Email == "" {
			s.logger.Debug("skipping receipt email, no recipient", zap.String("user_id", session.UserID), zap.Error(err))
			return
		}
		_ = s.notifier.ParkingReceipt(ctx, user.Email, user.FirstName, session.ZoneNumber, start, endedAt, minutes, price)
	}()
}
