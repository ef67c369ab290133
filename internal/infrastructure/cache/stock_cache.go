// Package cache guarda en Redis la vista pública del stock por unos segundos.
// Solo la usan los GET públicos; las ventas y ajustes nunca la consultan.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/vitrina-stock/internal/application/dto"
	"github.com/jhoicas/vitrina-stock/pkg/slug"
)

const keyPrefix = "stock:public:"

// Loader lee el valor real cuando no está en caché.
type Loader func(ctx context.Context) (*dto.PublicInventoryResponse, error)

// StockCache caché read-through con TTL; los misses concurrentes de la misma clave se agrupan.
type StockCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	log    zerolog.Logger
}

// NewStockCache construye la caché. ttl debe ser mayor a cero.
func NewStockCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) *StockCache {
	return &StockCache{client: client, ttl: ttl, log: log}
}

// Key clave de un producto de una tienda (slug normalizado).
func Key(storeSlug string, productID int64) string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, slug.Normalize(storeSlug), productID)
}

// GetPublic devuelve el valor cacheado o lo carga con load y lo guarda.
// Si Redis falla se sirve directo desde load; los errores de load no se cachean.
func (c *StockCache) GetPublic(ctx context.Context, storeSlug string, productID int64, load Loader) (*dto.PublicInventoryResponse, error) {
	key := Key(storeSlug, productID)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v dto.PublicInventoryResponse
		if jsonErr := json.Unmarshal(raw, &v); jsonErr == nil {
			return &v, nil
		}
		c.log.Warn().Str("key", key).Msg("valor de caché corrupto, se recarga")
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Str("key", key).Msg("redis no disponible, lectura directa")
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		val, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if body, mErr := json.Marshal(val); mErr == nil {
			if sErr := c.client.Set(ctx, key, body, c.ttl).Err(); sErr != nil {
				c.log.Warn().Err(sErr).Str("key", key).Msg("no se pudo guardar en caché")
			}
		}
		return val, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*dto.PublicInventoryResponse), nil
}

// Invalidate borra las claves de los productos tras una mutación confirmada (best effort).
func (c *StockCache) Invalidate(ctx context.Context, storeSlug string, productIDs ...int64) {
	if len(productIDs) == 0 || storeSlug == "" {
		return
	}
	keys := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		keys = append(keys, Key(storeSlug, id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn().Err(err).Strs("keys", keys).Msg("no se pudo invalidar la caché")
	}
}
