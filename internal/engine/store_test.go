package engine

import (
	"sync"
	"testing"
	"time"

	"FreshSnap/internal/domain/models"
)

func emptySnapshot(asOf time.Time) *models.Snapshot {
	return models.NewSnapshot(asOf,
		map[string]*models.LatestPrice{},
		map[models.PredictionKey]*models.LatestPrediction{},
		map[string][]*models.LatestPrediction{}, 0)
}

func TestPublishAssignsIncreasingVersions(t *testing.T) {
	s := NewSnapshotStore()
	if s.Current() != nil {
		t.Fatalf("fresh store must hold no snapshot")
	}

	for want := uint64(1); want <= 5; want++ {
		sn := emptySnapshot(time.Now())
		s.Publish(sn)
		if sn.Version != want {
			t.Fatalf("version = %d, want %d", sn.Version, want)
		}
		if s.Current() != sn {
			t.Fatalf("Current must return the last published snapshot")
		}
	}
}

func TestConcurrentReadersNeverBlock(t *testing.T) {
	s := NewSnapshotStore()
	s.Publish(emptySnapshot(time.Now()))

	stop := make(chan struct{})
	var wg sync.WaitGroup

	// writers republish continuously
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.Publish(emptySnapshot(time.Now()))
		}
		close(stop)
	}()

	// readers must always observe a complete snapshot with a version that
	// never goes backwards
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last uint64
			for {
				select {
				case <-stop:
					return
				default:
				}
				sn := s.Current()
				if sn == nil {
					t.Errorf("reader saw nil after first publish")
					return
				}
				if sn.Version < last {
					t.Errorf("version went backwards: %d -> %d", last, sn.Version)
					return
				}
				last = sn.Version
			}
		}()
	}
	wg.Wait()
}

func TestStale(t *testing.T) {
	s := NewSnapshotStore()
	now := time.Now()

	// no snapshot at all counts as stale
	if !s.Stale(now, time.Minute) {
		t.Fatalf("empty store must be stale")
	}

	s.Publish(emptySnapshot(now.Add(-30 * time.Second)))
	if s.Stale(now, time.Minute) {
		t.Fatalf("30s old snapshot must not be stale at 1m threshold")
	}
	if !s.Stale(now, 10*time.Second) {
		t.Fatalf("30s old snapshot must be stale at 10s threshold")
	}
}
