// Package cache holds the Redis-backed seat availability cache used by the
// section listing endpoints. The cache is advisory only: enrollment decisions
// are always made against locked database counts, never cached values.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SeatAvailability is the cached per-section seat summary.
type SeatAvailability struct {
	Enrolled   int `json:"enrolled"`
	Waitlisted int `json:"waitlisted"`
}

// SeatCache caches section availability with a short TTL and explicit
// invalidation after every seat mutation.
type SeatCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewSeatCache creates a seat cache over the given Redis client.
func NewSeatCache(rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *SeatCache {
	return &SeatCache{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func seatKey(sectionID int64) string {
	return fmt.Sprintf("section:%d:seats", sectionID)
}

// Get returns the cached availability for a section, or false on miss.
// Redis errors are treated as misses so the caller falls back to the database.
func (c *SeatCache) Get(ctx context.Context, sectionID int64) (*SeatAvailability, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}

	raw, err := c.rdb.Get(ctx, seatKey(sectionID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Int64("sectionId", sectionID).Msg("Seat cache read failed")
		}
		return nil, false
	}

	var availability SeatAvailability
	if err := json.Unmarshal(raw, &availability); err != nil {
		c.logger.Warn().Err(err).Int64("sectionId", sectionID).Msg("Seat cache entry corrupt, ignoring")
		return nil, false
	}

	return &availability, true
}

// Set stores the availability for a section, best-effort.
func (c *SeatCache) Set(ctx context.Context, sectionID int64, availability SeatAvailability) {
	if c == nil || c.rdb == nil {
		return
	}

	raw, err := json.Marshal(availability)
	if err != nil {
		return
	}

	if err := c.rdb.Set(ctx, seatKey(sectionID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Int64("sectionId", sectionID).Msg("Seat cache write failed")
	}
}

// Invalidate drops the cached availability for the given sections.
func (c *SeatCache) Invalidate(ctx context.Context, sectionIDs ...int64) {
	if c == nil || c.rdb == nil || len(sectionIDs) == 0 {
		return
	}

	keys := make([]string, 0, len(sectionIDs))
	for _, id := range sectionIDs {
		keys = append(keys, seatKey(id))
	}

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("Seat cache invalidation failed")
	}
}
