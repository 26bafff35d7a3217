package usecase

import (
	"context"
	"errors"
	"time"

	"FreshSnap/internal/engine"
	"FreshSnap/internal/refdata"
	"FreshSnap/internal/service/search"
	pkgcache "FreshSnap/pkg/cache"
	applogger "FreshSnap/pkg/logger"
)

// ErrWarmInFlight is returned when another warm holds the lock.
var ErrWarmInFlight = errors.New("warm already in progress")

const warmLockKey = "ops:warm:lock"

// Ops bundles the operator actions exposed under /api/ops.
type Ops struct {
	ref    *refdata.Cache
	stats  *refdata.Stats
	sched  *engine.Scheduler
	locks  pkgcache.Service
	search *search.Client
	log    *applogger.Logger
}

func NewOps(ref *refdata.Cache, stats *refdata.Stats, sched *engine.Scheduler, locks pkgcache.Service, searchCli *search.Client, log *applogger.Logger) *Ops {
	return &Ops{ref: ref, stats: stats, sched: sched, locks: locks, search: searchCli, log: log}
}

// Warm preloads the reference cache and the stats aggregates, then forces
// one refresh cycle so the snapshot reflects the warmed data immediately.
// Single flight: a concurrent warm gets ErrWarmInFlight instead of hitting
// the reference store twice. Returns counts per kind.
func (o *Ops) Warm(ctx context.Context) (map[string]int, error) {
	ok, err := o.locks.TryLock(ctx, warmLockKey, time.Minute)
	if err != nil {
		// lock backend down; warming twice beats not warming at all
		o.log.Warn("warm lock unavailable, proceeding", applogger.Error(err))
	} else if !ok {
		return nil, ErrWarmInFlight
	} else {
		defer func() { _ = o.locks.Unlock(ctx, warmLockKey) }()
	}

	counts, err := o.ref.WarmAll(ctx)
	if err != nil {
		return nil, err
	}
	if o.stats != nil {
		if serr := o.stats.Warm(ctx); serr != nil {
			o.log.Warn("stats warm failed", applogger.Error(serr))
		}
	}
	o.sched.TriggerRefresh(ctx)
	o.log.Info("reference cache warmed", applogger.Any("counts", counts))
	return counts, nil
}

// Clear drops the reference cache; the next read reloads from the store.
// Search is nudged to reindex since its rankings were built from the data
// just dropped; failure there degrades search, not the clear.
func (o *Ops) Clear(ctx context.Context) error {
	if err := o.ref.InvalidateAll(); err != nil {
		return err
	}
	if o.search != nil {
		if err := o.search.Reindex(ctx); err != nil {
			o.log.Warn("search reindex failed", applogger.Error(err))
		}
	}
	return nil
}

// Refresh requests an immediate snapshot rebuild. Returns false when a
// cycle was already in flight and the request coalesced into it.
func (o *Ops) Refresh(ctx context.Context) bool {
	return o.sched.TriggerRefresh(ctx)
}
