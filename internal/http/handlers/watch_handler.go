package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"openspots/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NewWatchHandler returns GET /ws/watch handler. Clients subscribe to one
// session's transitions with ?session=<id>, to zone occupancy with
// ?zones=1, or both.
func NewWatchHandler(hub *ws.Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session")
		watchZones := r.URL.Query().Get("zones") == "1"
		if sessionID == "" && !watchZones {
			writeError(w, http.StatusBadRequest, "session or zones query required")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := ws.NewClient(hub, conn, sessionID, watchZones, 10*time.Second, logger)
		client.Start(r.Context())
	}
}
