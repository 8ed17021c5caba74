package handlers

import (
	"context"
	"net/http"
	"strings"

	"openspots/internal/models"
	redisstore "openspots/internal/redis"
)

// ZoneGetter is the read slice the spot status endpoint needs.
type ZoneGetter interface {
	GetByID(ctx context.Context, id string) (*models.Zone, error)
}

// OccupancyReader returns the cached live sensor reading for an element.
type OccupancyReader interface {
	Get(ctx context.Context, elementID string) (*redisstore.Reading, error)
}

// NewSpotStatusHandler returns GET /api/spot/{zoneId} handler, the polling
// fallback for clients that cannot hold a watch socket. When the zone has a
// sensor and a cached reading exists, occupancy comes from the cache; the
// zone document is the fallback when occupancy is nil, the cache misses, or
// redis is down.
func NewSpotStatusHandler(zones ZoneGetter, occupancy OccupancyReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		zoneID := strings.TrimPrefix(r.URL.Path, "/api/spot/")
		if zoneID == "" || strings.Contains(zoneID, "/") {
			writeError(w, http.StatusBadRequest, "invalid zone id")
			return
		}

		zone, err := zones.GetByID(r.Context(), zoneID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch zone")
			return
		}
		if zone == nil {
			writeError(w, http.StatusNotFound, "zone not found")
			return
		}

		resp := map[string]interface{}{
			"zoneId":      zone.ID,
			"zoneNumber":  zone.ZoneNumber,
			"isAvailable": zone.IsAvailable,
			"ratePerHour": zone.RatePerHour,
			"lastUpdated": zone.LastUpdated,
		}

		if occupancy != nil && zone.SensorID != "" {
			if reading, err := occupancy.Get(r.Context(), zone.SensorID); err == nil && reading != nil {
				switch reading.Status {
				case 0:
					resp["isAvailable"] = true
				case 1:
					resp["isAvailable"] = false
				default:
					resp["sensorDown"] = true
				}
				resp["lastUpdated"] = reading.Timestamp
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
