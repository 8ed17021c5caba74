package sensors

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"openspots/internal/models"
	redisstore "openspots/internal/redis"
)

const reconnectDelay = 3 * time.Second

// ZoneResolver maps a sensor element id to the zone it monitors.
type ZoneResolver interface {
	FindBySensorID(ctx context.Context, sensorID string) (*models.Zone, error)
}

// OccupancySetter is the single write path for zone availability.
type OccupancySetter interface {
	SetOccupied(ctx context.Context, zone *models.Zone, occupied bool) error
}

// reading matches the payload published by the curb sensor bridge.
type reading struct {
	Element    string `json:"element"`
	Phenomenon string `json:"phenomenon"`
	Value      int    `json:"value"`
	Timestamp  int64  `json:"timestamp"`
}

// Consumer drains sensor readings off a queue and folds them into zone
// occupancy. It reconnects forever until the context is cancelled.
type Consumer struct {
	url       string
	queue     string
	zones     ZoneResolver
	occupancy OccupancySetter
	cache     *redisstore.Store
	logger    *zap.Logger
}

// NewConsumer builds the sensor feed consumer. cache may be nil.
func NewConsumer(url, queue string, zones ZoneResolver, occupancy OccupancySetter, cache *redisstore.Store, logger *zap.Logger) *Consumer {
	return &Consumer{
		url:       url,
		queue:     queue,
		zones:     zones,
		occupancy: occupancy,
		cache:     cache,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled, reconnecting on broker failure.
func (c *Consumer) Run(ctx context.Context) {
	for {
		if err := c.consume(ctx); err != nil {
			c.logger.Warn("sensor feed disconnected", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return err
	}

	deliveries, err := ch.Consume(c.queue, "", true, false, false, false, nil)
	if err != nil {
		return err
	}

	c.logger.Info("sensor feed connected", zap.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return amqp.ErrClosed
			}
			c.handle(ctx, delivery.Body)
		}
	}
}

// handle applies one reading. Malformed or unknown readings are logged and
// dropped so a bad sensor cannot stall the feed.
func (c *Consumer) handle(ctx context.Context, body []byte) {
	var r reading
	if err := json.Unmarshal(body, &r); err != nil {
		c.logger.Warn("malformed sensor reading", zap.Error(err))
		return
	}
	if r.Element == "" {
		return
	}

	if c.cache != nil {
		at := time.Now().UTC()
		if r.Timestamp > 0 {
			at = time.UnixMilli(r.Timestamp).UTC()
		}
		_ = c.cache.Save(ctx, redisstore.Reading{
			ElementID:  r.Element,
			Status:     r.Value,
			Phenomenon: r.Phenomenon,
			Timestamp:  at,
		})
	}

	if r.Value < 0 {
		c.logger.Warn("sensor reported down", zap.String("element", r.Element))
		return
	}

	zone, err := c.zones.FindBySensorID(ctx, r.Element)
	if err != nil {
		c.logger.Error("zone lookup failed for sensor", zap.String("element", r.Element), zap.Error(err))
		return
	}
	if zone == nil {
		c.logger.Debug("reading for unmapped sensor", zap.String("element", r.Element))
		return
	}

	if err := c.occupancy.SetOccupied(ctx, zone, r.Value == 1); err != nil {
		c.logger.Error("failed to apply sensor reading",
			zap.String("zone_id", zone.ID),
			zap.Int("value", r.Value),
			zap.Error(err),
		)
	}
}
