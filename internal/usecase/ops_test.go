package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"FreshSnap/internal/domain/models"
	"FreshSnap/internal/engine"
	"FreshSnap/internal/freshness"
	"FreshSnap/internal/refdata"
	svcache "FreshSnap/internal/service/cache"
	pkgcache "FreshSnap/pkg/cache"
)

func newTestOps(t *testing.T, instruments []models.Instrument, prices []*models.PricePoint, locks pkgcache.Service) (*Ops, *engine.SnapshotStore) {
	t.Helper()
	log := queryTestLogger(t)
	src := &fakeRefStore{instruments: instruments}
	ref := refdata.NewCache(src, svcache.NewTTLCache(), time.Hour, log)
	stats := refdata.NewStats(src, pkgcache.NewMemoryCache(), time.Minute, log)

	series := &fakeSeriesStore{prices: prices}
	p := engine.NewProjector(series, ref, freshness.NewClassifier(nil), nopMetrics{}, log)
	store := engine.NewSnapshotStore()
	sched := engine.NewScheduler(p, store, time.Hour, 0, nopMetrics{}, log)

	return NewOps(ref, stats, sched, locks, nil, log), store
}

func TestWarmPublishesSnapshot(t *testing.T) {
	instruments := []models.Instrument{ins("X", "XOM", "Exxon", "m1", "s1")}
	prices := []*models.PricePoint{{PID: "X", Timestamp: 100, Last: 10}}
	ops, store := newTestOps(t, instruments, prices, pkgcache.NewMemoryCache())

	counts, err := ops.Warm(context.Background())
	if err != nil {
		t.Fatalf("warm: %v", err)
	}
	if counts["instruments"] != 1 {
		t.Fatalf("counts = %v, want 1 instrument", counts)
	}
	if store.Current() == nil {
		t.Fatalf("warm must publish a snapshot, not wait for the next tick")
	}
}

func TestWarmSingleFlight(t *testing.T) {
	locks := pkgcache.NewMemoryCache()
	ops, _ := newTestOps(t, nil, nil, locks)

	ok, err := locks.TryLock(context.Background(), warmLockKey, time.Minute)
	if err != nil || !ok {
		t.Fatalf("pre-hold lock: ok=%v err=%v", ok, err)
	}

	if _, err := ops.Warm(context.Background()); !errors.Is(err, ErrWarmInFlight) {
		t.Fatalf("err = %v, want ErrWarmInFlight", err)
	}
}
