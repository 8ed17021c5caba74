package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"openspots/internal/clock"
	"openspots/internal/models"
	"openspots/internal/ws"
)

// SweeperConfig carries the two loop intervals and the confirmation window.
type SweeperConfig struct {
	PendingWindow   time.Duration
	PendingInterval time.Duration
	AccrualInterval time.Duration
}

// DefaultSweeperConfig matches the production cadence: a 30 second
// confirmation window resolved every second, billing accrued every minute.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		PendingWindow:   30 * time.Second,
		PendingInterval: 1 * time.Second,
		AccrualInterval: 60 * time.Second,
	}
}

// Sweeper runs the two periodic jobs that resolve session state without
// user interaction: billing accrual on ACTIVE sessions and expiry of stale
// PENDING ones. The jobs share nothing between runs beyond the stores.
type Sweeper struct {
	sessions SessionStore
	zones    ZoneStore
	users    UserStore
	notifier Notifier
	hub      Broadcaster
	clk      clock.Clock
	cfg      SweeperConfig
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewSweeper builds the sweeper. notifier and hub may be nil.
func NewSweeper(
	sessions SessionStore,
	zones ZoneStore,
	users UserStore,
	notifier Notifier,
	hub Broadcaster,
	clk clock.Clock,
	cfg SweeperConfig,
	logger *zap.Logger,
) *Sweeper {
	if cfg.PendingWindow <= 0 {
		cfg.PendingWindow = DefaultSweeperConfig().PendingWindow
	}
	if cfg.PendingInterval <= 0 {
		cfg.PendingInterval = DefaultSweeperConfig().PendingInterval
	}
	if cfg.AccrualInterval <= 0 {
		cfg.AccrualInterval = DefaultSweeperConfig().AccrualInterval
	}
	return &Sweeper{
		sessions: sessions,
		zones:    zones,
		users:    users,
		notifier: notifier,
		hub:      hub,
		clk:      clk,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start launches both loops. They stop when ctx is cancelled; Wait blocks
// until both have drained so shutdown never races a closing store.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(2)
	go s.loop(ctx, "pending", s.cfg.PendingInterval, s.SweepPending)
	go s.loop(ctx, "accrual", s.cfg.AccrualInterval, s.SweepAccrual)
	s.logger.Info("sweeper started",
		zap.Duration("pending_window", s.cfg.PendingWindow),
		zap.Duration("pending_interval", s.cfg.PendingInterval),
		zap.Duration("accrual_interval", s.cfg.AccrualInterval),
	)
}

// Wait blocks until both loops exit.
func (s *Sweeper) Wait() {
	s.wg.Wait()
}

func (s *Sweeper) loop(ctx context.Context, job string, interval time.Duration, pass func(context.Context) error) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := pass(ctx); err != nil {
				s.logger.Error("sweep pass failed", zap.String("job", job), zap.Error(err))
				continue
			}
			sweepRuns.WithLabelValues(job).Inc()
		}
	}
}

// SweepAccrual recomputes billing accumulators for every ACTIVE session.
// The computation is a pure function of elapsed wall-clock time, so running
// it twice in quick succession writes the same or a slightly larger price.
func (s *Sweeper) SweepAccrual(ctx context.Context) error {
	sessions, err := s.sessions.ListByStatus(ctx, models.SessionStatusActive)
	if err != nil {
		return err
	}
	for i := range sessions {
		if err := s.accrue(ctx, &sessions[i]); err != nil {
			sweepItemErrors.WithLabelValues("accrual").Inc()
			s.logger.Warn("accrual failed for session",
				zap.String("session_id", sessions[i].ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *Sweeper) accrue(ctx context.Context, session *models.Session) error {
	if session.ArrivalTime == nil {
		return nil
	}
	now := s.clk.Now()
	minutes := BillableMinutes(*session.ArrivalTime, now)
	price := RoundPrice(float64(minutes) * session.RatePerMinute)

	// Accumulators are monotonically non-decreasing; never write a smaller
	// value after a clock adjustment.
	if minutes < session.TotalMinutes || price < session.PriceCharged {
		return nil
	}
	return s.sessions.UpdateAccrual(ctx, session.ID, minutes, price, now)
}

// SweepPending resolves PENDING sessions whose confirmation window has
// elapsed: activate when something occupies the zone, cancel when it is
// still vacant. An error on one session never aborts the rest of the pass.
func (s *Sweeper) SweepPending(ctx context.Context) error {
	sessions, err := s.sessions.ListByStatus(ctx, models.SessionStatusPending)
	if err != nil {
		return err
	}
	for i := range sessions {
		if err := s.resolvePending(ctx, &sessions[i]); err != nil {
			sweepItemErrors.WithLabelValues("pending").Inc()
			s.logger.Warn("pending resolution failed for session",
				zap.String("session_id", sessions[i].ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *Sweeper) resolvePending(ctx context.Context, session *models.Session) error {
	now := s.clk.Now()

	// Sessions created through paths that never stamped the window start
	// get stamped now and judged on a later pass.
	if session.PendingStartedAt == nil {
		return s.sessions.StampPendingStarted(ctx, session.ID, now)
	}
	if now.Sub(*session.PendingStartedAt) < s.cfg.PendingWindow {
		return nil
	}

	zone, err := s.zones.GetByID(ctx, session.ZoneID)
	if err != nil {
		return err
	}
	if zone == nil {
		// Zone was deprovisioned underneath the session.
		return s.cancel(ctx, session, now)
	}

	if !zone.IsAvailable {
		// Something occupies the space: the car showed up. Activate with
		// the rate frozen at creation, no re-derivation here.
		activated, err := s.sessions.ActivateWithStoredRate(ctx, session.ID, now)
		if err != nil {
			return err
		}
		if activated {
			sessionsActivated.WithLabelValues("sweeper").Inc()
			s.broadcast(session, models.SessionStatusActive, now)
			s.notifyStarted(session, now, zone.RatePerHour)
			s.logger.Info("pending session activated by occupancy",
				zap.String("session_id", session.ID),
				zap.String("zone_id", zone.ID),
			)
		}
		return nil
	}

	return s.cancel(ctx, session, now)
}

func (s *Sweeper) cancel(ctx context.Context, session *models.Session, now time.Time) error {
	cancelled, err := s.sessions.Cancel(ctx, session.ID, now)
	if err != nil {
		return err
	}
	if cancelled {
		sessionsCancelled.Inc()
		s.broadcast(session, models.SessionStatusCancelled, now)
		s.notifyCancelled(session)
		s.logger.Info("pending session cancelled, zone still vacant",
			zap.String("session_id", session.ID),
			zap.String("zone_id", session.ZoneID),
		)
	}
	return nil
}

func (s *Sweeper) broadcast(session *models.Session, status string, at time.Time) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastSession(ws.SessionUpdate{
		SessionID:  session.ID,
		Status:     status,
		ZoneNumber: session.ZoneNumber,
		UpdatedAt:  at,
	})
}

func (s *Sweeper) notifyStarted(session *models.Session, startedAt time.Time, ratePerHour float64) {
	if s.notifier == nil {
		return
	}
	userID := session.UserID
	zoneNumber := session.ZoneNumber
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		user, err := s.users.GetByID(ctx, userID)
		if err != nil || user == nil || user.Email == "" {
			return
		}
		_ = s.notifier.ParkingStarted(ctx, user.Email, user.FirstName, zoneNumber, startedAt, ratePerHour)
	}()
}

func (s *Sweeper) notifyCancelled(session *models.Session) {
	if s.notifier == nil {
		return
	}
	userID := session.UserID
	zoneNumber := session.ZoneNumber
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		user, err := s.users.GetByID(ctx, userID)
		if err != nil || user == nil || user.Email == "" {
			return
		}
		_ = s.notifier.ParkingCancelled(ctx, user.Email, user.FirstName, zoneNumber)
	}()
}
