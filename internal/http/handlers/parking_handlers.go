package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"openspots/internal/http/middleware"
	"openspots/internal/service"
)

type createPendingRequest struct {
	UserID     string `json:"userId"`
	ZoneID     string `json:"zoneId"`
	ZoneNumber string `json:"zoneNumber"`
}

// NewCreatePendingHandler returns POST /api/parking/create-pending handler.
// The zone may be addressed by document id or by the painted zone number a
// driver scans.
func NewCreatePendingHandler(svc *service.ParkingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPendingRequest
		if err := decodeValid(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if uid, ok := middleware.UserIDFromContext(r.Context()); ok {
			req.UserID = uid
		}
		if req.UserID == "" {
			writeError(w, http.StatusBadRequest, "userId required")
			return
		}
		if req.ZoneID == "" && req.ZoneNumber == "" {
			writeError(w, http.StatusBadRequest, "zoneId or zoneNumber required")
			return
		}

		session, err := svc.CreatePending(r.Context(), service.CreatePendingInput{
			UserID:     req.UserID,
			ZoneID:     req.ZoneID,
			ZoneNumber: req.ZoneNumber,
		})
		if err != nil {
			if errors.Is(err, service.ErrZoneNotFound) {
				writeError(w, http.StatusNotFound, "zone not found")
				return
			}
			logger.Error("failed to create pending session", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to create session")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]interface{}{"session": session})
	}
}

type confirmSessionRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

// NewConfirmSessionHandler returns POST /api/parking/confirm-session
// handler. Confirming an already-confirmed or resolved session is a no-op
// that still answers 200 with the current state.
func NewConfirmSessionHandler(svc *service.ParkingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req confirmSessionRequest
		if err := decodeValid(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "sessionId required")
			return
		}

		session, err := svc.Confirm(r.Context(), req.SessionID)
		if err != nil {
			if errors.Is(err, service.ErrSessionNotFound) {
				writeError(w, http.StatusNotFound, "session not found")
				return
			}
			logger.Error("failed to confirm session",
				zap.String("session_id", req.SessionID),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "failed to confirm session")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
	}
}

type endSessionRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

// NewEndSessionHandler returns POST /end-metered-session handler.
func NewEndSessionHandler(svc *service.ParkingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req endSessionRequest
		if err := decodeValid(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "sessionId required")
			return
		}

		session, err := svc.End(r.Context(), req.SessionID)
		if err != nil {
			if errors.Is(err, service.ErrSessionNotFound) {
				writeError(w, http.StatusNotFound, "session not found")
				return
			}
			logger.Error("failed to end session",
				zap.String("session_id", req.SessionID),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "failed to end session")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"session":      session,
			"totalMinutes": session.TotalMinutes,
			"priceCharged": session.PriceCharged,
		})
	}
}

type lockSpotRequest struct {
	ZoneID string `json:"zoneId" validate:"required"`
}

// NewLockSpotHandler marks a zone occupied immediately, before the sensor
// confirms. Backs both POST /start-metered-session and
// POST /api/lock-metered-spot.
func NewLockSpotHandler(svc *service.ParkingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req lockSpotRequest
		if err := decodeValid(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "zoneId required")
			return
		}

		if err := svc.MarkZoneOccupied(r.Context(), req.ZoneID); err != nil {
			if errors.Is(err, service.ErrZoneNotFound) {
				writeError(w, http.StatusNotFound, "zone not found")
				return
			}
			logger.Error("failed to lock zone", zap.String("zone_id", req.ZoneID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to lock zone")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "locked"})
	}
}
