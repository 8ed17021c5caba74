package ws

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SessionUpdate is pushed to watchers the moment a session changes status,
// so the client can cancel its countdown and redirect without polling.
type SessionUpdate struct {
	SessionID  string    `json:"session_id"`
	Status     string    `json:"status"`
	ZoneNumber string    `json:"zone_number,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ZoneUpdate mirrors the live occupancy feed to zone watchers.
type ZoneUpdate struct {
	ZoneID      string    `json:"zone_id"`
	ZoneNumber  string    `json:"zone_number,omitempty"`
	IsAvailable bool      `json:"is_available"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub fans session and zone updates out to connected watch clients.
type Hub struct {
	mu          sync.RWMutex
	sessionSubs map[string]map[*Client]struct{}
	zoneSubs    map[*Client]struct{}
	logger      *zap.Logger
}

// NewHub builds an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		sessionSubs: make(map[string]map[*Client]struct{}),
		zoneSubs:    make(map[*Client]struct{}),
		logger:      logger,
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.sessionID != "" {
		subs, ok := h.sessionSubs[c.sessionID]
		if !ok {
			subs = make(map[*Client]struct{})
			h.sessionSubs[c.sessionID] = subs
		}
		subs[c] = struct{}{}
	}
	if c.watchZones {
		h.zoneSubs[c] = struct{}{}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.sessionID != "" {
		if subs, ok := h.sessionSubs[c.sessionID]; ok {
			delete(subs, c)
			if len(subs) == 0 {
				delete(h.sessionSubs, c.sessionID)
			}
		}
	}
	delete(h.zoneSubs, c)
}

// BroadcastSession notifies watchers of one session.
func (h *Hub) BroadcastSession(update SessionUpdate) {
	payload, err := json.Marshal(envelope{Type: "session", Data: update})
	if err != nil {
		h.logger.Warn("failed to encode session update", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.sessionSubs[update.SessionID] {
		c.Send(payload)
	}
}

// BroadcastZone notifies all zone watchers.
func (h *Hub) BroadcastZone(update ZoneUpdate) {
	payload, err := json.Marshal(envelope{Type: "zone", Data: update})
	if err != nil {
		h.logger.Warn("failed to encode zone update", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.zoneSubs {
		c.Send(payload)
	}
}

// Watchers returns how many clients watch the given session.
func (h *Hub) Watchers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessionSubs[sessionID])
}
