// Package refdata caches the slowly-changing dimension tables (countries,
// markets, sectors, instruments) with a long TTL and explicit invalidation.
// Write-side collaborators call InvalidateAll synchronously after commit;
// entries are never partially invalidated because the tables are small and
// cross-referenced.
package refdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"FreshSnap/internal/domain/models"
	"FreshSnap/internal/domain/repository"
	svcache "FreshSnap/internal/service/cache"
	applogger "FreshSnap/pkg/logger"
)

const keyPrefix = "static:"

// Invalidator is the post-write hook: any component that creates, updates,
// deletes, or restores a dimension row invokes it after commit.
type Invalidator interface {
	InvalidateAll() error
}

// Cache is the TTL + explicit-invalidation reference-data cache.
type Cache struct {
	src   repository.ReferenceStore
	bytes svcache.BytesCache
	ttl   time.Duration
	log   *applogger.Logger

	mu   sync.Mutex
	keys map[string]struct{} // every key ever written, for InvalidateAll
}

func NewCache(src repository.ReferenceStore, bytes svcache.BytesCache, ttl time.Duration, log *applogger.Logger) *Cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{
		src:   src,
		bytes: bytes,
		ttl:   ttl,
		log:   log,
		keys:  make(map[string]struct{}),
	}
}

// getCached returns the cached value for key, loading and storing it on a
// miss. Cache backend errors degrade to a direct load, never to a failure.
func getCached[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if b, ok, err := c.bytes.GetBytes(key); err == nil && ok {
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			return v, nil
		}
		// Corrupt entry: drop it and fall through to the loader.
		_ = c.bytes.DeleteBytes(key)
	} else if err != nil {
		c.log.Warn("reference cache read failed", applogger.String("key", key), applogger.Error(err))
	}

	v, err := load(ctx)
	if err != nil {
		return zero, fmt.Errorf("load %s: %w", key, err)
	}
	if b, err := json.Marshal(v); err == nil {
		if err := c.bytes.SetBytes(key, b, c.ttl); err != nil {
			c.log.Warn("reference cache write failed", applogger.String("key", key), applogger.Error(err))
		} else {
			c.mu.Lock()
			c.keys[key] = struct{}{}
			c.mu.Unlock()
		}
	}
	return v, nil
}

func (c *Cache) Countries(ctx context.Context) ([]models.Country, error) {
	return getCached(ctx, c, keyPrefix+"countries", c.src.Countries)
}

func (c *Cache) Markets(ctx context.Context) ([]models.Market, error) {
	return getCached(ctx, c, keyPrefix+"markets", c.src.Markets)
}

func (c *Cache) Sectors(ctx context.Context) ([]models.Sector, error) {
	return getCached(ctx, c, keyPrefix+"sectors", c.src.Sectors)
}

func (c *Cache) Instruments(ctx context.Context) ([]models.Instrument, error) {
	return getCached(ctx, c, keyPrefix+"instruments:all", c.src.Instruments)
}

func (c *Cache) InstrumentsByMarket(ctx context.Context, marketID string) ([]models.Instrument, error) {
	key := keyPrefix + "instruments:market:" + marketID
	return getCached(ctx, c, key, func(ctx context.Context) ([]models.Instrument, error) {
		return c.src.InstrumentsByMarket(ctx, marketID)
	})
}

func (c *Cache) InstrumentsBySector(ctx context.Context, sectorID string) ([]models.Instrument, error) {
	key := keyPrefix + "instruments:sector:" + sectorID
	return getCached(ctx, c, key, func(ctx context.Context) ([]models.Instrument, error) {
		return c.src.InstrumentsBySector(ctx, sectorID)
	})
}

// MarketByCode resolves one market from the cached table.
func (c *Cache) MarketByCode(ctx context.Context, code string) (*models.Market, error) {
	markets, err := c.Markets(ctx)
	if err != nil {
		return nil, err
	}
	for i := range markets {
		if markets[i].Code == code {
			return &markets[i], nil
		}
	}
	return nil, nil
}

// InvalidateAll drops every cached entry. Dimension tables are small and
// cross-referenced, so per-kind invalidation is not offered.
func (c *Cache) InvalidateAll() error {
	c.mu.Lock()
	keys := make([]string, 0, len(c.keys))
	for k := range c.keys {
		keys = append(keys, k)
	}
	c.keys = make(map[string]struct{})
	c.mu.Unlock()

	if len(keys) == 0 {
		return nil
	}
	if err := c.bytes.DeleteBytes(keys...); err != nil {
		return fmt.Errorf("invalidate reference cache: %w", err)
	}
	c.log.Info("reference cache invalidated", applogger.Int("keys", len(keys)))
	return nil
}

// WarmAll populates every cache entry, including the per-market and
// per-sector instrument lists. Returns counts per kind for operator output.
func (c *Cache) WarmAll(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)

	countries, err := c.Countries(ctx)
	if err != nil {
		return nil, err
	}
	counts["countries"] = len(countries)

	markets, err := c.Markets(ctx)
	if err != nil {
		return nil, err
	}
	counts["markets"] = len(markets)

	sectors, err := c.Sectors(ctx)
	if err != nil {
		return nil, err
	}
	counts["sectors"] = len(sectors)

	instruments, err := c.Instruments(ctx)
	if err != nil {
		return nil, err
	}
	counts["instruments"] = len(instruments)

	for _, m := range markets {
		if _, err := c.InstrumentsByMarket(ctx, m.ID); err != nil {
			return nil, err
		}
	}
	for _, s := range sectors {
		if _, err := c.InstrumentsBySector(ctx, s.ID); err != nil {
			return nil, err
		}
	}
	return counts, nil
}

var _ Invalidator = (*Cache)(nil)
