package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	allProductsKey  = "products:all"
	notFoundMarker  = "notfound"
	notFoundTTL     = time.Minute
	defaultCacheTTL = 5 * time.Minute
)

// CachedProductRepository serves product reads from Redis and falls back to
// the wrapped repository on a miss or a Redis failure. Writes go to the
// wrapped repository and drop the affected keys.
type CachedProductRepository struct {
	realRepo repository.ProductRepository
	redis    *redis.Client
	ttl      time.Duration
	logger   *zap.Logger
}

var _ repository.ProductRepository = (*CachedProductRepository)(nil)

// NewCachedProductRepository wraps realRepo. A non-positive ttl uses five minutes.
func NewCachedProductRepository(realRepo repository.ProductRepository, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedProductRepository {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedProductRepository{
		realRepo: realRepo,
		redis:    rdb,
		ttl:      ttl,
		logger:   logger,
	}
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (c *CachedProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	key := productKey(id)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			return nil, repository.ErrProductNotFound
		}

		var product domain.Product
		if err := json.Unmarshal(data, &product); err == nil {
			return &product, nil
		}
		c.logger.Warn("Failed to decode cached product, reading database", zap.String("key", key))

	case errors.Is(err, redis.Nil):

	default:
		c.logger.Warn("Redis read failed, reading database", zap.String("key", key), zap.Error(err))
	}

	product, err := c.realRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			c.set(ctx, key, notFoundMarker, notFoundTTL)
		}
		return nil, err
	}

	c.setJSON(ctx, key, product)
	return product, nil
}

func (c *CachedProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	data, err := c.redis.Get(ctx, allProductsKey).Bytes()
	switch {
	case err == nil:
		var products []*domain.Product
		if err := json.Unmarshal(data, &products); err == nil && products != nil {
			return products, nil
		}
		c.logger.Warn("Failed to decode cached catalog, reading database")

	case errors.Is(err, redis.Nil):

	default:
		c.logger.Warn("Redis read failed, reading database", zap.String("key", allProductsKey), zap.Error(err))
	}

	products, err := c.realRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	c.setJSON(ctx, allProductsKey, products)
	return products, nil
}

// Search always reads through to the wrapped repository.
func (c *CachedProductRepository) Search(ctx context.Context, term string) ([]*domain.Product, error) {
	return c.realRepo.Search(ctx, term)
}

func (c *CachedProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if err := c.realRepo.Create(ctx, product); err != nil {
		return err
	}
	c.invalidate(ctx, product.ID)
	return nil
}

func (c *CachedProductRepository) Update(ctx context.Context, product *domain.Product) error {
	err := c.realRepo.Update(ctx, product)
	c.invalidate(ctx, product.ID)
	return err
}

func (c *CachedProductRepository) Delete(ctx context.Context, id int64) error {
	err := c.realRepo.Delete(ctx, id)
	c.invalidate(ctx, id)
	return err
}

func (c *CachedProductRepository) invalidate(ctx context.Context, id int64) {
	if err := c.redis.Del(ctx, productKey(id), allProductsKey).Err(); err != nil {
		c.logger.Warn("Failed to invalidate product cache", zap.Int64("product_id", id), zap.Error(err))
	}
}

func (c *CachedProductRepository) setJSON(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("Failed to encode value for cache", zap.String("key", key), zap.Error(err))
		return
	}
	c.set(ctx, key, data, c.ttl)
}

func (c *CachedProductRepository) set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if err := c.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("Failed to write cache", zap.String("key", key), zap.Error(err))
	}
}
