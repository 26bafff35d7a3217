package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"FreshSnap/internal/domain/repository"
	pkgcache "FreshSnap/pkg/cache"
	applogger "FreshSnap/pkg/logger"
)

var (
	statsMarketKey = pkgcache.GenerateKey("stats:prediction_counts", "market")
	statsSectorKey = pkgcache.GenerateKey("stats:prediction_counts", "sector")
)

// Stats serves prediction count aggregations with a short TTL. Unlike the
// dimension tables these are recomputed on expiry, never invalidated; a
// count that lags by up to the TTL is acceptable.
type Stats struct {
	src   repository.ReferenceStore
	cache pkgcache.Service
	ttl   time.Duration
	log   *applogger.Logger
}

func NewStats(src repository.ReferenceStore, cache pkgcache.Service, ttl time.Duration, log *applogger.Logger) *Stats {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Stats{src: src, cache: cache, ttl: ttl, log: log}
}

// Warm ensures both aggregates are cached. Keys already present are left
// alone so a warm does not reset their TTL clock.
func (s *Stats) Warm(ctx context.Context) error {
	cached, err := pkgcache.MGetTyped[map[string]int64](ctx, s.cache, statsMarketKey, statsSectorKey)
	if err != nil {
		s.log.Warn("stats cache bulk read failed", applogger.Error(err))
		cached = map[string]map[string]int64{}
	}
	if _, ok := cached[statsMarketKey]; !ok {
		if _, err := s.CountsByMarket(ctx); err != nil {
			return err
		}
	}
	if _, ok := cached[statsSectorKey]; !ok {
		if _, err := s.CountsBySector(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stats) CountsByMarket(ctx context.Context) (map[string]int64, error) {
	return s.counts(ctx, statsMarketKey, s.src.PredictionCountsByMarket)
}

func (s *Stats) CountsBySector(ctx context.Context) (map[string]int64, error) {
	return s.counts(ctx, statsSectorKey, s.src.PredictionCountsBySector)
}

func (s *Stats) counts(ctx context.Context, key string, load func(context.Context) (map[string]int64, error)) (map[string]int64, error) {
	var raw string
	err := s.cache.Get(ctx, key, &raw)
	if err == nil {
		var counts map[string]int64
		if jerr := json.Unmarshal([]byte(raw), &counts); jerr == nil {
			return counts, nil
		}
		_ = s.cache.Delete(ctx, key)
	} else if !errors.Is(err, pkgcache.ErrCacheMiss) {
		s.log.Warn("stats cache read failed", applogger.String("key", key), applogger.Error(err))
	}

	counts, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if b, jerr := json.Marshal(counts); jerr == nil {
		if cerr := s.cache.Set(ctx, key, string(b), s.ttl); cerr != nil {
			s.log.Warn("stats cache write failed", applogger.String("key", key), applogger.Error(cerr))
		}
	}
	return counts, nil
}
