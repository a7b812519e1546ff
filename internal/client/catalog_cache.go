package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/The-Hawkeye/go-ecommerce/internal/domain"
	"github.com/The-Hawkeye/go-ecommerce/pkg/apperr"
	"github.com/The-Hawkeye/go-ecommerce/pkg/mylogger"
)

// cachedCatalogClient keeps the last known product snapshots in redis.
// It is a read-through cache with one twist: when the catalog is down it
// serves the stale snapshot instead of failing checkout outright, and the
// Reserve call later is what actually enforces stock.
type cachedCatalogClient struct {
	next        CatalogClient
	redisClient *redis.Client
	logger      *zap.Logger
	cacheTTL    time.Duration
}

func NewCachedCatalogClient(next CatalogClient, redisClient *redis.Client, logger *zap.Logger) CatalogClient {
	return &cachedCatalogClient{
		next:        next,
		redisClient: redisClient,
		logger:      logger,
		cacheTTL:    time.Minute * 10,
	}
}

func productKey(productID string) string {
	return fmt.Sprintf("product:%s", productID)
}

func (c *cachedCatalogClient) GetMany(ctx context.Context, productIDs []string) (map[string]domain.ProductSnapshot, error) {
	result, err := c.next.GetMany(ctx, productIDs)
	if err == nil {
		for _, p := range result {
			if data, merr := json.Marshal(p); merr == nil {
				c.redisClient.Set(ctx, productKey(p.ID), data, c.cacheTTL)
			}
		}
		return result, nil
	}

	if !apperr.IsCode(err, apperr.CodeUnavailable) {
		return nil, err
	}

	// Catalog is down. Try the cache; any miss means we genuinely cannot
	// price the cart and the original error stands.
	cached := make(map[string]domain.ProductSnapshot, len(productIDs))
	for _, id := range productIDs {
		val, gerr := c.redisClient.Get(ctx, productKey(id)).Result()
		if gerr != nil {
			return nil, err
		}

		var p domain.ProductSnapshot
		if uerr := json.Unmarshal([]byte(val), &p); uerr != nil {
			return nil, err
		}

		cached[id] = p
	}

	mylogger.Warn(
		ctx,
		c.logger,
		"Serving product snapshots from cache",
		zap.Int("products_count", len(cached)),
		zap.Error(err),
	)

	return cached, nil
}

func (c *cachedCatalogClient) Reserve(ctx context.Context, productID string, quantity int32, idemKey string) error {
	if err := c.next.Reserve(ctx, productID, quantity, idemKey); err != nil {
		return err
	}

	c.redisClient.Del(ctx, productKey(productID))
	return nil
}

func (c *cachedCatalogClient) Release(ctx context.Context, productID string, quantity int32, idemKey string) error {
	if err := c.next.Release(ctx, productID, quantity, idemKey); err != nil {
		return err
	}

	c.redisClient.Del(ctx, productKey(productID))
	return nil
}
