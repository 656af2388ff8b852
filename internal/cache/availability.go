// internal/cache/availability.go

// Package cache holds the optional Redis-backed availability cache. The
// server remains the arbiter of slot state; cached entries are a
// short-lived read optimization invalidated after every booking attempt
// and court edit. All methods are safe on a nil cache (caching disabled).
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/quickcourt/quickcourt/internal/booking"
)

type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(addr, password string, db int, ttl time.Duration) *AvailabilityCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &AvailabilityCache{client: rdb, ttl: ttl}
}

func key(courtID int64, date string) string {
	return fmt.Sprintf("avail:%d:%s", courtID, date)
}

// Get returns the cached resolved slots for (court, date). Any cache
// failure is treated as a miss.
func (c *AvailabilityCache) Get(ctx context.Context, courtID int64, date string) ([]booking.TimeSlot, bool) {
	if c == nil {
		return nil, false
	}
	val, err := c.client.Get(ctx, key(courtID, date)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("court_id", courtID).Msg("Availability cache read failed")
		return nil, false
	}
	var slots []booking.TimeSlot
	if err := json.Unmarshal([]byte(val), &slots); err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("court_id", courtID).Msg("Availability cache entry corrupt")
		return nil, false
	}
	return slots, true
}

func (c *AvailabilityCache) Set(ctx context.Context, courtID int64, date string, slots []booking.TimeSlot) {
	if c == nil {
		return
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(courtID, date), data, c.ttl).Err(); err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("court_id", courtID).Msg("Availability cache write failed")
	}
}

// Invalidate drops the cached entry after a mutating operation.
func (c *AvailabilityCache) Invalidate(ctx context.Context, courtID int64, date string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, key(courtID, date)).Err(); err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("court_id", courtID).Msg("Availability cache invalidation failed")
	}
}

// InvalidateCourt drops every cached date for one court (court edits).
func (c *AvailabilityCache) InvalidateCourt(ctx context.Context, courtID int64) {
	if c == nil {
		return
	}
	pattern := fmt.Sprintf("avail:%d:*", courtID)
	keys, err := c.client.Keys(ctx, pattern).Result()
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("court_id", courtID).Msg("Availability cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("court_id", courtID).Msg("Availability cache invalidation failed")
	}
}

func (c *AvailabilityCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
