package engine

import (
	"sync/atomic"
	"time"

	"FreshSnap/internal/domain/models"
)

// SnapshotStore holds the currently published snapshot and swaps it
// atomically. Readers load the pointer once and complete against whichever
// snapshot they captured; Publish never blocks them and they never observe a
// half-replaced projection. The store owns snapshot versioning: Publish
// stamps the version before the swap makes the snapshot visible.
type SnapshotStore struct {
	cur     atomic.Pointer[models.Snapshot]
	version atomic.Uint64
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Publish makes sn the visible snapshot. sn must not be mutated afterwards.
func (s *SnapshotStore) Publish(sn *models.Snapshot) {
	sn.Version = s.version.Add(1)
	s.cur.Store(sn)
}

// Current returns the published snapshot, or nil before the first publish.
// The returned snapshot is immutable and safe to hold across the next
// publish.
func (s *SnapshotStore) Current() *models.Snapshot {
	return s.cur.Load()
}

// Price returns the latest price record for pid from the current snapshot.
func (s *SnapshotStore) Price(pid string) (*models.LatestPrice, bool) {
	sn := s.cur.Load()
	if sn == nil {
		return nil, false
	}
	return sn.Price(pid)
}

// Prediction returns the latest prediction for (pid, horizon).
func (s *SnapshotStore) Prediction(pid, hz string) (*models.LatestPrediction, bool) {
	sn := s.cur.Load()
	if sn == nil {
		return nil, false
	}
	return sn.Prediction(pid, hz)
}

// PredictionsFor returns all horizon records for pid, shortest first.
func (s *SnapshotStore) PredictionsFor(pid string) []*models.LatestPrediction {
	sn := s.cur.Load()
	if sn == nil {
		return nil
	}
	return sn.PredictionsFor(pid)
}

// Stale reports whether the published snapshot is older than threshold at
// now. True when nothing has been published yet: callers should degrade
// (show a delayed-data indicator) rather than treat old data as current.
func (s *SnapshotStore) Stale(now time.Time, threshold time.Duration) bool {
	sn := s.cur.Load()
	if sn == nil {
		return true
	}
	return sn.Age(now) > threshold
}
