package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/registrapos/backend/pkg/db/models"
	"github.com/registrapos/backend/pkg/enums"
	"github.com/registrapos/backend/pkg/logger"
	"github.com/registrapos/backend/pkg/redis"
)

// TierSource supplies the price tiers of a presentation at a location.
type TierSource interface {
	ListPriceTiers(ctx context.Context, presentationID, locationID uuid.UUID, tierType enums.PriceTierType) ([]models.Price, error)
}

// CachedTierSource is a read-through redis cache in front of a TierSource.
// Price lists change rarely compared to how often the register re-resolves
// them, so a short TTL absorbs most reads. Cache failures degrade to the
// underlying source.
type CachedTierSource struct {
	source TierSource
	cache  *redis.Client
	ttl    time.Duration
	logg   *logger.Logger
}

// NewCachedTierSource wraps source with a redis cache.
func NewCachedTierSource(source TierSource, cache *redis.Client, ttl time.Duration, logg *logger.Logger) (*CachedTierSource, error) {
	if source == nil {
		return nil, fmt.Errorf("tier source required")
	}
	if cache == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedTierSource{source: source, cache: cache, ttl: ttl, logg: logg}, nil
}

func (c *CachedTierSource) ListPriceTiers(ctx context.Context, presentationID, locationID uuid.UUID, tierType enums.PriceTierType) ([]models.Price, error) {
	key := c.cache.PricingKey(presentationID.String(), locationID.String(), tierType.String())

	if raw, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		var tiers []models.Price
		if err := json.Unmarshal([]byte(raw), &tiers); err == nil {
			return tiers, nil
		}
		// corrupt entry: drop it and fall through to the source
		_ = c.cache.Del(ctx, key)
	} else if err != nil && c.logg != nil {
		c.logg.Warn(ctx, "pricing cache read failed")
	}

	tiers, err := c.source.ListPriceTiers(ctx, presentationID, locationID, tierType)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(tiers); err == nil {
		if err := c.cache.Set(ctx, key, string(payload), c.ttl); err != nil && c.logg != nil {
			c.logg.Warn(ctx, "pricing cache write failed")
		}
	}
	return tiers, nil
}

// Invalidate drops the cached price list for one presentation/location/tier.
func (c *CachedTierSource) Invalidate(ctx context.Context, presentationID, locationID uuid.UUID, tierType enums.PriceTierType) error {
	return c.cache.Del(ctx, c.cache.PricingKey(presentationID.String(), locationID.String(), tierType.String()))
}
