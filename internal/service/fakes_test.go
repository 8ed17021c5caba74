package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"openspots/internal/models"
	"openspots/internal/ws"
)

// fakeClock is a movable clock for driving sweeps across time.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeSessionStore keeps sessions in memory with the same conditional
// transition semantics as the real repository.
type fakeSessionStore struct {
	mu          sync.Mutex
	sessions    map[string]*models.Session
	nextID      int
	listErr     error
	activateErr error
	accrualErr  map[string]error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions:   make(map[string]*models.Session),
		accrualErr: make(map[string]error),
	}
}

func (f *fakeSessionStore) put(s *models.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.sessions[s.ID] = &cp
}

func (f *fakeSessionStore) get(id string) *models.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

func (f *fakeSessionStore) CreateIfNoOpen(_ context.Context, session *models.Session) (*models.Session, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.sessions {
		if existing.UserID == session.UserID && existing.ZoneID == session.ZoneID && existing.Open() {
			cp := *existing
			return &cp, false, nil
		}
	}
	f.nextID++
	cp := *session
	cp.ID = fmt.Sprintf("s-%d", f.nextID)
	f.sessions[cp.ID] = &cp
	out := cp
	return &out, true, nil
}

func (f *fakeSessionStore) GetByID(_ context.Context, id string) (*models.Session, error) {
	return f.get(id), nil
}

func (f *fakeSessionStore) ListByStatus(_ context.Context, status string) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Session
	for _, s := range f.sessions {
		if s.Status == status {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) ListByUser(_ context.Context, userID string, limit int64) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
		if int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeSessionStore) Activate(_ context.Context, id string, at time.Time, ratePerMinute float64, paymentMethod string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activateErr != nil {
		return false, f.activateErr
	}
	s, ok := f.sessions[id]
	if !ok || s.Status != models.SessionStatusPending {
		return false, nil
	}
	s.Status = models.SessionStatusActive
	s.ActivatedAt = &at
	s.ArrivalTime = &at
	s.RatePerMinute = ratePerMinute
	s.PaymentMethod = paymentMethod
	s.TotalMinutes = 0
	s.PriceCharged = 0
	s.LastUpdated = at
	return true, nil
}

func (f *fakeSessionStore) ActivateWithStoredRate(_ context.Context, id string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.Status != models.SessionStatusPending {
		return false, nil
	}
	s.Status = models.SessionStatusActive
	s.ActivatedAt = &at
	s.ArrivalTime = &at
	s.TotalMinutes = 0
	s.PriceCharged = 0
	s.LastUpdated = at
	return true, nil
}

func (f *fakeSessionStore) StampPendingStarted(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok && s.PendingStartedAt == nil {
		s.PendingStartedAt = &at
	}
	return nil
}

func (f *fakeSessionStore) UpdateAccrual(_ context.Context, id string, totalMinutes int64, priceCharged float64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.accrualErr[id]; err != nil {
		return err
	}
	if s, ok := f.sessions[id]; ok {
		s.TotalMinutes = totalMinutes
		s.PriceCharged = priceCharged
		s.LastUpdated = at
	}
	return nil
}

func (f *fakeSessionStore) Complete(_ context.Context, id string, at time.Time, totalMinutes int64, priceCharged float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.Status != models.SessionStatusActive {
		return false, nil
	}
	s.Status = models.SessionStatusCompleted
	s.TotalMinutes = totalMinutes
	s.PriceCharged = priceCharged
	s.EndedAt = &at
	s.DepartureTime = &at
	s.LastUpdated = at
	return true, nil
}

func (f *fakeSessionStore) Cancel(_ context.Context, id string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.Status != models.SessionStatusPending {
		return false, nil
	}
	s.Status = models.SessionStatusCancelled
	s.EndedAt = &at
	s.LastUpdated = at
	return true, nil
}

// fakeZoneStore keeps zones in memory and records availability writes.
type fakeZoneStore struct {
	mu     sync.Mutex
	zones  map[string]*models.Zone
	writes []bool
}

func newFakeZoneStore(zones ...*models.Zone) *fakeZoneStore {
	f := &fakeZoneStore{zones: make(map[string]*models.Zone)}
	for _, z := range zones {
		cp := *z
		f.zones[z.ID] = &cp
	}
	return f
}

func (f *fakeZoneStore) GetByID(_ context.Context, id string) (*models.Zone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	z, ok := f.zones[id]
	if !ok {
		return nil, nil
	}
	cp := *z
	return &cp, nil
}

func (f *fakeZoneStore) FindByZoneNumber(_ context.Context, zoneNumber string) (*models.Zone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, z := range f.zones {
		if z.ZoneNumber == zoneNumber && z.Active {
			cp := *z
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeZoneStore) SetAvailability(_ context.Context, id string, available bool, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if z, ok := f.zones[id]; ok {
		z.IsAvailable = available
		z.LastUpdated = at
	}
	f.writes = append(f.writes, available)
	return nil
}

func (f *fakeZoneStore) setAvailable(id string, available bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if z, ok := f.zones[id]; ok {
		z.IsAvailable = available
	}
}

func (f *fakeZoneStore) availabilityWrites() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.writes))
	copy(out, f.writes)
	return out
}

// fakeUserStore answers user lookups.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
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

// startedEmail captures one ParkingStarted call.
type startedEmail struct {
	to          string
	zoneNumber  string
	ratePerHour float64
}

// fakeNotifier records lifecycle emails on buffered channels so tests can
// wait for the fire-and-forget goroutines with a bounded timeout.
type fakeNotifier struct {
	started   chan startedEmail
	receipts  chan float64
	cancelled chan string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		started:   make(chan startedEmail, 4),
		receipts:  make(chan float64, 4),
		cancelled: make(chan string, 4),
	}
}

func (f *fakeNotifier) ParkingStarted(_ context.Context, to, _, zoneNumber string, _ time.Time, ratePerHour float64) error {
	f.started <- startedEmail{to: to, zoneNumber: zoneNumber, ratePerHour: ratePerHour}
	return nil
}

func (f *fakeNotifier) ParkingReceipt(_ context.Context, _, _, _ string, _, _ time.Time, _ int64, totalAmount float64) error {
	f.receipts <- totalAmount
	return nil
}

func (f *fakeNotifier) ParkingCancelled(_ context.Context, to, _, _ string) error {
	f.cancelled <- to
	return nil
}

// fakeHub records broadcasts.
type fakeHub struct {
	mu       sync.Mutex
	sessions []ws.SessionUpdate
	zones    []ws.ZoneUpdate
}

func (f *fakeHub) BroadcastSession(update ws.SessionUpdate) {
	f.mu.Lock()
	f.sessions = append(f.sessions, update)
	f.mu.Unlock()
}

func (f *fakeHub) BroadcastZone(update ws.ZoneUpdate) {
	f.mu.Lock()
	f.zones = append(f.zones, update)
	f.mu.Unlock()
}

func (f *fakeHub) sessionUpdates() []ws.SessionUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ws.SessionUpdate, len(f.sessions))
	copy(out, f.sessions)
	return out
}
