package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"FreshSnap/internal/domain/models"
	"FreshSnap/internal/freshness"
)

func newTestScheduler(t *testing.T, src *fakeSeries, uni *fakeUniverse) (*Scheduler, *SnapshotStore) {
	t.Helper()
	p := NewProjector(src, uni, freshness.NewClassifier(nil), nopMetrics{}, testLogger(t))
	p.SetNow(func() time.Time { return time.Unix(100000, 0) })
	store := NewSnapshotStore()
	return NewScheduler(p, store, time.Hour, 0, nopMetrics{}, testLogger(t)), store
}

func TestRunCyclePublishes(t *testing.T) {
	src := &fakeSeries{prices: []*models.PricePoint{price("X", 99000, 10)}}
	uni := &fakeUniverse{instruments: []models.Instrument{instrument("X")}}
	sched, store := newTestScheduler(t, src, uni)

	if !sched.RunCycle(context.Background()) {
		t.Fatalf("cycle must run")
	}
	sn := store.Current()
	if sn == nil || sn.Version != 1 {
		t.Fatalf("expected published snapshot v1, got %+v", sn)
	}
}

func TestFailedCycleRetainsPrevious(t *testing.T) {
	src := &fakeSeries{prices: []*models.PricePoint{price("X", 99000, 10)}}
	uni := &fakeUniverse{instruments: []models.Instrument{instrument("X")}}
	sched, store := newTestScheduler(t, src, uni)

	sched.RunCycle(context.Background())
	good := store.Current()
	if good == nil {
		t.Fatalf("first cycle must publish")
	}

	src.priceErr = errors.New("source down")
	sched.RunCycle(context.Background())
	if store.Current() != good {
		t.Fatalf("failed cycle must keep the previous snapshot")
	}
}

func TestEmptyUniverseProtocol(t *testing.T) {
	src := &fakeSeries{prices: []*models.PricePoint{price("X", 99000, 10)}}
	uni := &fakeUniverse{}
	sched, store := newTestScheduler(t, src, uni)

	// before anything was published an empty universe is believable
	sched.RunCycle(context.Background())
	first := store.Current()
	if first == nil || len(first.Prices) != 0 {
		t.Fatalf("first cycle with empty universe must publish an empty snapshot")
	}

	// once a real snapshot exists, a suddenly empty universe is treated as a
	// transient outage and the old snapshot survives
	uni.instruments = []models.Instrument{instrument("X")}
	sched.RunCycle(context.Background())
	populated := store.Current()
	if len(populated.Prices) != 1 {
		t.Fatalf("expected populated snapshot")
	}

	uni.instruments = nil
	sched.RunCycle(context.Background())
	if store.Current() != populated {
		t.Fatalf("empty universe after a populated publish must retain the old snapshot")
	}
}

// blockingSeries lets a test hold a cycle open to provoke overlap.
type blockingSeries struct {
	fakeSeries
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSeries) ScanPrices(ctx context.Context, fn func(p *models.PricePoint) error) error {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.fakeSeries.ScanPrices(ctx, fn)
}

func TestOverlappingCycleDropped(t *testing.T) {
	src := &blockingSeries{
		fakeSeries: fakeSeries{prices: []*models.PricePoint{price("X", 99000, 10)}},
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	uni := &fakeUniverse{instruments: []models.Instrument{instrument("X")}}
	p := NewProjector(src, uni, freshness.NewClassifier(nil), nopMetrics{}, testLogger(t))
	p.SetNow(func() time.Time { return time.Unix(100000, 0) })
	store := NewSnapshotStore()
	sched := NewScheduler(p, store, time.Hour, 0, nopMetrics{}, testLogger(t))

	done := make(chan bool)
	go func() { done <- sched.RunCycle(context.Background()) }()
	<-src.entered

	// a trigger while the first cycle is in flight coalesces
	if sched.TriggerRefresh(context.Background()) {
		t.Fatalf("overlapping trigger must be dropped")
	}
	if !sched.Running() {
		t.Fatalf("scheduler must report a running cycle")
	}

	close(src.release)
	if !<-done {
		t.Fatalf("first cycle must have held the slot")
	}
	if store.Current() == nil {
		t.Fatalf("held cycle must still publish")
	}
}

func TestStopWaitsForInFlightCycle(t *testing.T) {
	src := &blockingSeries{
		fakeSeries: fakeSeries{prices: []*models.PricePoint{price("X", 99000, 10)}},
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	uni := &fakeUniverse{instruments: []models.Instrument{instrument("X")}}
	p := NewProjector(src, uni, freshness.NewClassifier(nil), nopMetrics{}, testLogger(t))
	p.SetNow(func() time.Time { return time.Unix(100000, 0) })
	store := NewSnapshotStore()
	sched := NewScheduler(p, store, time.Hour, 0, nopMetrics{}, testLogger(t))

	done := make(chan bool)
	go func() { done <- sched.RunCycle(context.Background()) }()
	<-src.entered

	stopDone := make(chan struct{})
	go func() {
		sched.Stop()
		close(stopDone)
	}()

	// Stop must block on the manually triggered cycle, not just on the ticker
	select {
	case <-stopDone:
		t.Fatalf("Stop returned while a cycle was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(src.release)
	<-stopDone
	if !<-done {
		t.Fatalf("in-flight cycle must complete")
	}
	if store.Current() == nil {
		t.Fatalf("cycle finishing before Stop returned must have published")
	}
	if sched.RunCycle(context.Background()) {
		t.Fatalf("cycles must be refused after Stop")
	}
}
