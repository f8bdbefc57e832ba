package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"storefront-backend/internal/models"
	"storefront-backend/internal/repository"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const notFoundSentinel = "notfound"

// CachedProductRepository decorates the product repository with a
// Redis read-through cache. Catalog reads are the hot path of the
// storefront; order placement never reads through here, its stock
// checks always hit committed rows inside the transaction.
type CachedProductRepository struct {
	realRepo repository.ProductRepository
	redis    *redis.Client
	ttl      time.Duration
}

func NewCachedProductRepository(realRepo repository.ProductRepository, redis *redis.Client) *CachedProductRepository {
	return &CachedProductRepository{
		realRepo: realRepo,
		redis:    redis,
		ttl:      5 * time.Minute,
	}
}

func productKey(id int) string {
	return fmt.Sprintf("product:%d", id)
}

func (c *CachedProductRepository) GetByID(ctx context.Context, id int) (*models.Product, error) {
	key := productKey(id)

	data, err := c.redis.Get(ctx, key).Bytes()

	switch {
	case err == nil:
		if string(data) == notFoundSentinel {
			return nil, repository.ErrNotFound
		}

		var product models.Product
		if err := json.Unmarshal(data, &product); err != nil {
			log.WithError(err).Warn("failed to unmarshal cached product, falling through to DB")
			break
		}

		return &product, nil

	case errors.Is(err, redis.Nil):

	default:
		log.WithError(err).Warn("redis error, falling through to DB")
	}

	product, err := c.realRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if setErr := c.redis.Set(ctx, key, notFoundSentinel, 1*time.Minute).Err(); setErr != nil {
				log.WithError(setErr).Warn("failed to cache notfound marker")
			}
		}
		return nil, err
	}

	jsonData, err := json.Marshal(product)
	if err != nil {
		log.WithError(err).Warn("failed to marshal product for cache")
		return product, nil
	}

	if err := c.redis.Set(ctx, key, jsonData, c.ttl).Err(); err != nil {
		log.WithError(err).Warn("failed to cache product")
	}

	return product, nil
}

func (c *CachedProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	return c.realRepo.GetAll(ctx)
}

func (c *CachedProductRepository) GetByCategory(ctx context.Context, category string) ([]models.Product, error) {
	return c.realRepo.GetByCategory(ctx, category)
}

func (c *CachedProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := c.realRepo.Create(ctx, product); err != nil {
		return err
	}

	// A notfound marker may be cached for a recycled id.
	c.Invalidate(ctx, product.ProductID)
	return nil
}

func (c *CachedProductRepository) Update(ctx context.Context, id int, patch *models.ProductPatch) (*models.Product, error) {
	product, err := c.realRepo.Update(ctx, id, patch)
	if err != nil {
		c.Invalidate(ctx, id)
		return nil, err
	}

	c.Invalidate(ctx, id)
	return product, nil
}

func (c *CachedProductRepository) Delete(ctx context.Context, id int) error {
	if err := c.realRepo.Delete(ctx, id); err != nil {
		return err
	}

	c.Invalidate(ctx, id)
	return nil
}

// Invalidate drops the cached entry for a product. Called after every
// mutation, including the stock decrements a committed order performs.
func (c *CachedProductRepository) Invalidate(ctx context.Context, productID int) {
	if err := c.redis.Del(ctx, productKey(productID)).Err(); err != nil {
		log.WithError(err).WithField("product_id", productID).Warn("failed to invalidate product cache")
	}
}
