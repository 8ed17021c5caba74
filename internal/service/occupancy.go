package service

import (
	"context"

	"go.uber.org/zap"

	"openspots/internal/clock"
	"openspots/internal/models"
	redisstore "openspots/internal/redis"
	"openspots/internal/ws"
)

// Occupancy is the single owner of the zone availability flag. Session
// start, confirmation, the sweeper and the sensor feed all route their
// is_available writes through here so the document, the live cache and the
// watch clients always move together.
type Occupancy struct {
	zones  ZoneStore
	cache  *redisstore.Store
	hub    Broadcaster
	clk    clock.Clock
	logger *zap.Logger
}

// NewOccupancy builds the occupancy writer. cache and hub may be nil.
func NewOccupancy(zones ZoneStore, cache *redisstore.Store, hub Broadcaster, clk clock.Clock, logger *zap.Logger) *Occupancy {
	return &Occupancy{
		zones:  zones,
		cache:  cache,
		hub:    hub,
		clk:    clk,
		logger: logger,
	}
}

// SetOccupied flips the zone's availability. The zone document write is the
// only required effect; cache and broadcast are best-effort.
func (o *Occupancy) SetOccupied(ctx context.Context, zone *models.Zone, occupied bool) error {
	now := o.clk.Now()
	if err := o.zones.SetAvailability(ctx, zone.ID, !occupied, now); err != nil {
		return err
	}

	if o.cache != nil && zone.SensorID != "" {
		status := 0
		if occupied {
			status = 1
		}
		reading := redisstore.Reading{
			ElementID: zone.SensorID,
			Status:    status,
			Timestamp: now,
		}
		if err := o.cache.Save(ctx, reading); err != nil {
			o.logger.Warn("failed to cache occupancy", zap.String("zone_id", zone.ID), zap.Error(err))
		}
	}

	if o.hub != nil {
		o.hub.BroadcastZone(ws.ZoneUpdate{
			ZoneID:      zone.ID,
			ZoneNumber:  zone.ZoneNumber,
			IsAvailable: !occupied,
			UpdatedAt:   now,
		})
	}
	return nil
}
