package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"FreshSnap/internal/domain/repository"
	applogger "FreshSnap/pkg/logger"
)

// Scheduler drives the projector on a fixed interval and on demand. At most
// one rebuild is in flight; ticks and manual triggers that arrive while a
// cycle runs are dropped, not queued. The in-flight run reflects the latest
// source state anyway, or the next tick will.
type Scheduler struct {
	projector *Projector
	store     *SnapshotStore
	interval  time.Duration
	timeout   time.Duration
	metrics   repository.Metrics
	log       *applogger.Logger

	mu       sync.Mutex
	stopped  bool
	running  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewScheduler(projector *Projector, store *SnapshotStore, interval, scanTimeout time.Duration, metrics repository.Metrics, log *applogger.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		projector: projector,
		store:     store,
		interval:  interval,
		timeout:   scanTimeout,
		metrics:   metrics,
		log:       log,
		stopCh:    make(chan struct{}),
	}
}

// Start runs one immediate cycle, then ticks until Stop or ctx cancellation.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.RunCycle(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				if !s.RunCycle(ctx) {
					s.log.Debug("refresh tick dropped, cycle still running")
				}
			}
		}
	}()
}

// Stop halts the ticker, refuses new cycles, and waits for any in-flight
// cycle (ticked or manually triggered) to finish. After Stop returns nothing
// can publish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// begin claims the single cycle slot. Refuses once Stop has been called;
// the slot is registered in the WaitGroup before the claim is visible so
// Stop always waits it out.
func (s *Scheduler) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if !s.running.CompareAndSwap(false, true) {
		return false
	}
	s.wg.Add(1)
	return true
}

// TriggerRefresh requests an immediate cycle. Returns false when a cycle is
// already running and the request was coalesced into a no-op.
func (s *Scheduler) TriggerRefresh(ctx context.Context) bool {
	return s.RunCycle(ctx)
}

// Running reports whether a cycle is currently in flight.
func (s *Scheduler) Running() bool { return s.running.Load() }

// RunCycle executes one rebuild. Returns false if another cycle held the
// slot or the scheduler was stopped. All failures are contained here: the
// previously published snapshot always survives a failed cycle.
func (s *Scheduler) RunCycle(ctx context.Context) bool {
	if !s.begin() {
		return false
	}
	defer func() {
		s.running.Store(false)
		s.wg.Done()
	}()

	cycleCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	snap, err := s.projector.Build(cycleCtx)

	switch {
	case err == nil:
		s.store.Publish(snap)
		s.metrics.RecordCycle("ok", time.Since(start).Seconds())
		s.metrics.RecordSnapshotSize(len(snap.Prices), len(snap.Predictions))
		s.metrics.RecordSnapshotAge(0)
		s.log.Info("snapshot published",
			applogger.Uint64("version", snap.Version),
			applogger.Int("prices", len(snap.Prices)),
			applogger.Int("predictions", len(snap.Predictions)),
			applogger.Int("skipped", snap.Skipped),
			applogger.Duration("duration", time.Since(start)),
		)

	case errors.Is(err, ErrEmptyUniverse):
		// An empty universe is only believable before anything was ever
		// published; afterwards it looks like a transient reference-data
		// outage and the old snapshot is kept.
		if s.store.Current() == nil {
			s.store.Publish(snap)
			s.metrics.RecordCycle("empty", time.Since(start).Seconds())
			s.log.Warn("published empty snapshot, instrument universe is empty")
		} else {
			s.metrics.RecordCycle("empty_retained", time.Since(start).Seconds())
			s.log.Warn("empty instrument universe, keeping previous snapshot")
		}

	default:
		s.metrics.RecordCycle("error", time.Since(start).Seconds())
		s.metrics.RecordError("refresh_cycle")
		s.log.Error("refresh cycle failed, keeping previous snapshot",
			applogger.Error(err),
			applogger.Duration("duration", time.Since(start)),
		)
	}

	if cur := s.store.Current(); cur != nil {
		s.metrics.RecordSnapshotAge(time.Since(cur.AsOf).Seconds())
	}
	return true
}
