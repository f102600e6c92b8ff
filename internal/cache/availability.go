package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BruksfildServices01/erms-api/internal/models"
)

const (
	availabilityKeyPrefix = "erms:availability:"
	// noRecord marks a technician known to have no availability row.
	noRecord = "null"
	// storeTimeout bounds post-commit cache writes, which outlive the request.
	storeTimeout = 2 * time.Second
)

// AvailabilitySource is the authoritative store behind the cache.
type AvailabilitySource interface {
	GetAvailability(ctx context.Context, technicianID uint) (*models.Availability, error)
}

// AvailabilityCache is the technicianId -> latest availability index. Reads
// fall back to the source and fill with SETNX; writers call Store with the
// committed record, which always wins over a concurrent fill.
// A nil kv disables caching.
type AvailabilityCache struct {
	kv     KVStore
	source AvailabilitySource
	ttl    time.Duration
	log    *zap.Logger
}

func NewAvailabilityCache(
	kv KVStore,
	source AvailabilitySource,
	ttl time.Duration,
	log *zap.Logger,
) *AvailabilityCache {
	return &AvailabilityCache{
		kv:     kv,
		source: source,
		ttl:    ttl,
		log:    log,
	}
}

func availabilityKey(technicianID uint) string {
	return fmt.Sprintf("%s%d", availabilityKeyPrefix, technicianID)
}

func (c *AvailabilityCache) Lookup(ctx context.Context, technicianID uint) (*models.Availability, error) {
	key := availabilityKey(technicianID)

	if c.kv != nil {
		raw, err := c.kv.Get(ctx, key)
		switch {
		case err == nil:
			if raw == noRecord {
				return nil, nil
			}
			var av models.Availability
			if jerr := json.Unmarshal([]byte(raw), &av); jerr == nil {
				return &av, nil
			}
			c.log.Warn("availability cache entry corrupt", zap.String("key", key))
		case errors.Is(err, ErrCacheMiss):
		default:
			c.log.Warn("availability cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	av, err := c.source.GetAvailability(ctx, technicianID)
	if err != nil {
		return nil, err
	}

	if c.kv != nil {
		payload := noRecord
		if av != nil {
			b, merr := json.Marshal(av)
			if merr != nil {
				return av, nil
			}
			payload = string(b)
		}
		// a read that raced a commit must not replace the writer's record
		if _, serr := c.kv.SetNX(ctx, key, payload, c.ttl); serr != nil {
			c.log.Warn("availability cache write failed", zap.String("key", key), zap.Error(serr))
		}
	}
	return av, nil
}

// Store writes the committed record. It runs detached from ctx so a client
// that hung up after the commit cannot leave the previous state cached.
func (c *AvailabilityCache) Store(ctx context.Context, av models.Availability) {
	if c.kv == nil {
		return
	}
	key := availabilityKey(av.UserID)

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	b, err := json.Marshal(av)
	if err == nil {
		err = c.kv.Set(wctx, key, string(b), c.ttl)
	}
	if err == nil {
		return
	}
	c.log.Warn("availability cache store failed",
		zap.Uint("technician_id", av.UserID),
		zap.Error(err),
	)
	if derr := c.kv.Del(wctx, key); derr != nil {
		c.log.Warn("availability cache evict failed",
			zap.Uint("technician_id", av.UserID),
			zap.Error(derr),
		)
	}
}
