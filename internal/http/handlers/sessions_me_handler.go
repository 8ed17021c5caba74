package handlers

import (
	"net/http"

	"openspots/internal/http/middleware"
	"openspots/internal/service"
)

const userIDHeader = "X-User-ID"

// NewSessionsMeHandler returns GET /api/sessions/me handler. The user comes
// from the auth context when present, otherwise from the gateway header.
func NewSessionsMeHandler(svc *service.ParkingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			userID = r.Header.Get(userIDHeader)
		}
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing user id")
			return
		}

		sessions, err := svc.SessionsForUser(r.Context(), userID, 50)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch sessions")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sessions": sessions,
		})
	}
}
