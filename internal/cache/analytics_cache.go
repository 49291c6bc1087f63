package cache

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskmanager/internal/analytics"
)

// AnalyticsCache keeps computed summaries in Redis for a short time. A nil
// cache, a nil client or a zero TTL disables it; Redis failures are logged
// and treated as misses.
type AnalyticsCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewAnalyticsCache(client *redis.Client, ttl time.Duration) *AnalyticsCache {
	if ttl < 0 {
		ttl = 0
	}
	return &AnalyticsCache{redis: client, ttl: ttl}
}

func (c *AnalyticsCache) enabled() bool {
	return c != nil && c.redis != nil && c.ttl > 0
}

// Load returns the cached summary of ownerID, if any
func (c *AnalyticsCache) Load(ctx context.Context, ownerID uuid.UUID) (*analytics.Summary, bool) {
	if !c.enabled() {
		return nil, false
	}
	key := analyticsKey(ownerID)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.WithError(err).WithField("key", key).Warn("analytics cache read failed")
		}
		return nil, false
	}

	var summary analytics.Summary
	if err := sonic.Unmarshal(data, &summary); err != nil {
		log.WithError(err).WithField("key", key).Warn("dropping corrupt analytics cache entry")
		if err := c.redis.Del(ctx, key).Err(); err != nil {
			log.WithError(err).WithField("key", key).Warn("analytics cache eviction failed")
		}
		return nil, false
	}
	return &summary, true
}

// Store saves summary for ownerID
func (c *AnalyticsCache) Store(ctx context.Context, ownerID uuid.UUID, summary *analytics.Summary) {
	if !c.enabled() || summary == nil {
		return
	}
	key := analyticsKey(ownerID)
	data, err := sonic.Marshal(summary)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("analytics summary encoding failed")
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.WithError(err).WithField("key", key).Warn("analytics cache write failed")
	}
}

// Evict drops the cached summary of ownerID
func (c *AnalyticsCache) Evict(ctx context.Context, ownerID uuid.UUID) {
	if c == nil || c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, analyticsKey(ownerID)).Err(); err != nil {
		log.WithError(err).Warn("analytics cache eviction failed")
	}
}

func analyticsKey(ownerID uuid.UUID) string {
	return "analytics:" + ownerID.String()
}
