// Package cache decora el Catalog Lookup con un cache-aside en Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/caja-api/internal/domain/entity"
	"github.com/jhoicas/caja-api/internal/domain/repository"
)

var _ repository.CatalogLookup = (*CatalogCache)(nil)

const keyPrefix = "catalog:product:"

type cachedProduct struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand"`
	SaleValue decimal.Decimal `json:"sale_value"`
	Category  string          `json:"category"`
}

// CatalogCache consulta Redis y, si no está, el catálogo subyacente. Los misses concurrentes
// del mismo producto se colapsan en una sola lectura. Si Redis falla se sigue sin caché.
type CatalogCache struct {
	client redis.Cmdable
	next   repository.CatalogLookup
	ttl    time.Duration
	group  singleflight.Group
	log    zerolog.Logger
}

// NewCatalogCache construye el decorador.
func NewCatalogCache(client redis.Cmdable, next repository.CatalogLookup, ttl time.Duration, log zerolog.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CatalogCache{
		client: client,
		next:   next,
		ttl:    ttl,
		log:    log.With().Str("component", "catalog_cache").Logger(),
	}
}

// Key clave Redis de un producto.
func Key(productID int64) string {
	return keyPrefix + strconv.FormatInt(productID, 10)
}

func (c *CatalogCache) GetProduct(ctx context.Context, productID int64) (*entity.ProductSnapshot, error) {
	key := Key(productID)
	if p, ok := c.get(ctx, key); ok {
		return p, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if p, ok := c.get(ctx, key); ok {
			return p, nil
		}
		p, err := c.next.GetProduct(ctx, productID)
		if err != nil || p == nil {
			return p, err
		}
		c.set(ctx, key, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	p, _ := v.(*entity.ProductSnapshot)
	if p == nil {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (c *CatalogCache) get(ctx context.Context, key string) (*entity.ProductSnapshot, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("redis no disponible, se consulta el catálogo")
		}
		return nil, false
	}
	var cp cachedProduct
	if err := json.Unmarshal(raw, &cp); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("entrada de caché corrupta")
		return nil, false
	}
	return &entity.ProductSnapshot{
		ID:        cp.ID,
		Name:      cp.Name,
		Brand:     cp.Brand,
		SaleValue: cp.SaleValue,
		Category:  cp.Category,
	}, true
}

func (c *CatalogCache) set(ctx context.Context, key string, p *entity.ProductSnapshot) {
	raw, err := json.Marshal(cachedProduct{
		ID:        p.ID,
		Name:      p.Name,
		Brand:     p.Brand,
		SaleValue: p.SaleValue,
		Category:  p.Category,
	})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("no se pudo escribir en caché")
	}
}
