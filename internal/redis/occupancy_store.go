package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Reading is the last sensor measurement cached per element.
// Status values follow the sensor feed: 0 free, 1 occupied, -1 down.
type Reading struct {
	ElementID  string    `json:"element_id"`
	Status     int       `json:"status"`
	Phenomenon string    `json:"phenomenon,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Store caches live occupancy readings so spot-status reads never hit the
// upstream sensor API.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns redis-backed cache.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) key(elementID string) string {
	return fmt.Sprintf("zones:occupancy:%s", elementID)
}

// Save caches a reading.
func (s *Store) Save(ctx context.Context, reading Reading) error {
	data, err := json.Marshal(reading)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(reading.ElementID), data, s.ttl).Err()
}

// Get returns the cached reading, or redis.Nil error when absent.
func (s *Store) Get(ctx context.Context, elementID string) (*Reading, error) {
	result, err := s.client.Get(ctx, s.key(elementID)).Result()
	if err != nil {
		return nil, err
	}
	var reading Reading
	if err := json.Unmarshal([]byte(result), &reading); err != nil {
		return nil, err
	}
	return &reading, nil
}
