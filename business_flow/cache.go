package businessflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/showbook-app/showbook/config"
	"github.com/showbook-app/showbook/utils"
)

// promotionStatusCache caches evaluated promotion standings in redis. Each
// entry records the promotion it was computed against, so an entry cached for
// a superseded promotion reads as a miss. Selection mutations invalidate the
// scope's entry directly.
type promotionStatusCache struct {
	rc  *redis.Client
	cfg *config.CacheConfig
}

// cachedStanding is the stored envelope. PromotionUUID pins the entry to one
// promotion generation; tier changes rotate the active promotion row.
type cachedStanding struct {
	PromotionUUID string               `json:"promotion_uuid"`
	Calculation   PromotionCalculation `json:"calculation"`
}

func newPromotionStatusCache(rc *redis.Client, cfg *config.CacheConfig) *promotionStatusCache {
	return &promotionStatusCache{rc: rc, cfg: cfg}
}

func (c *promotionStatusCache) enabled() bool {
	return c != nil && c.rc != nil && c.cfg != nil && c.cfg.Enabled
}

func (c *promotionStatusCache) key(vendorID string, customerID uint) string {
	return redisKey(*c.cfg, fmt.Sprintf("%s:%s:%d", utils.PromotionStatusCacheKey, vendorID, customerID))
}

// Get returns the cached calculation, or false on miss or disabled cache.
// Entries stored against a different promotion generation are misses.
func (c *promotionStatusCache) Get(ctx context.Context, promotionUUID, vendorID string, customerID uint) (*PromotionCalculation, bool) {
	if !c.enabled() {
		return nil, false
	}

	bs, err := c.rc.Get(ctx, c.key(vendorID, customerID)).Bytes()
	if err != nil || len(bs) == 0 {
		promotionCacheHitsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	var entry cachedStanding
	if err := json.Unmarshal(bs, &entry); err != nil {
		promotionCacheHitsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	if entry.PromotionUUID != promotionUUID {
		promotionCacheHitsTotal.WithLabelValues("stale").Inc()
		return nil, false
	}

	promotionCacheHitsTotal.WithLabelValues("hit").Inc()
	return &entry.Calculation, true
}

// Set stores a calculation with the configured TTL. Failures are ignored; the
// cache is an optimization, not a source of truth.
func (c *promotionStatusCache) Set(ctx context.Context, promotionUUID, vendorID string, customerID uint, calc PromotionCalculation) {
	if !c.enabled() {
		return
	}

	bs, err := json.Marshal(cachedStanding{PromotionUUID: promotionUUID, Calculation: calc})
	if err != nil {
		return
	}
	_ = c.rc.Set(ctx, c.key(vendorID, customerID), bs, c.cfg.PromotionStatusTTL).Err()
}

// Invalidate drops the cached calculation for one customer/vendor scope
func (c *promotionStatusCache) Invalidate(ctx context.Context, vendorID string, customerID uint) {
	if !c.enabled() {
		return
	}
	_ = c.rc.Del(ctx, c.key(vendorID, customerID)).Err()
}
