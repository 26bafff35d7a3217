package models

import (
	"time"

	"FreshSnap/internal/freshness"
)

// LatestPrice is the projected latest price record for one instrument.
// Derived on every refresh cycle, never persisted on its own.
type LatestPrice struct {
	PID        string           `json:"pid"`
	Price      float64          `json:"price"`
	High       float64          `json:"high"`
	Low        float64          `json:"low"`
	LastClose  float64          `json:"last_close"`
	ChangePct  float64          `json:"change_pct"`
	Volume     float64          `json:"volume"`
	Timestamp  int64            `json:"timestamp"`
	Freshness  freshness.Bucket `json:"freshness"`
	AgeSeconds int64            `json:"age_seconds"`
	HoursAgo   int              `json:"hours_ago"`
}

// LatestPrediction is the projected latest prediction for one
// (instrument, horizon) pair.
type LatestPrediction struct {
	PID             string           `json:"pid"`
	Symbol          string           `json:"symbol"`
	Model           string           `json:"model"`
	Horizon         string           `json:"horizon"`
	HorizonMinutes  int              `json:"horizon_minutes"`
	HorizonLabel    string           `json:"horizon_label"`
	Predicted       float64          `json:"predicted"`
	Confidence      float64          `json:"confidence"`
	ExpectedGainPct float64          `json:"expected_gain_pct"`
	Timestamp       int64            `json:"timestamp"`
	Freshness       freshness.Bucket `json:"freshness"`
	AgeMinutes      int64            `json:"age_minutes"`
	MinutesToTarget int64            `json:"minutes_to_target"`
	DaysOld         int              `json:"days_old"`
}

// PredictionKey identifies one prediction record inside a snapshot.
type PredictionKey struct {
	PID     string
	Horizon string
}

// Snapshot is an immutable latest-value projection of the whole key space.
// It is created by the projector, published exactly once, and must not be
// mutated afterwards; readers share it without locks.
type Snapshot struct {
	Version     uint64
	AsOf        time.Time
	Prices      map[string]*LatestPrice
	Predictions map[PredictionKey]*LatestPrediction

	// byPID indexes prediction records per instrument, horizon-ordered.
	// Built once at assembly time.
	byPID map[string][]*LatestPrediction

	// Skipped counts malformed points dropped during this rebuild.
	Skipped int
}

// NewSnapshot assembles an immutable snapshot. predictionsByPID must index
// the same records as predictions.
func NewSnapshot(asOf time.Time, prices map[string]*LatestPrice, predictions map[PredictionKey]*LatestPrediction, byPID map[string][]*LatestPrediction, skipped int) *Snapshot {
	return &Snapshot{
		AsOf:        asOf,
		Prices:      prices,
		Predictions: predictions,
		byPID:       byPID,
		Skipped:     skipped,
	}
}

// Price returns the latest price record for pid.
func (s *Snapshot) Price(pid string) (*LatestPrice, bool) {
	p, ok := s.Prices[pid]
	return p, ok
}

// Prediction returns the latest prediction for (pid, horizon).
func (s *Snapshot) Prediction(pid, hz string) (*LatestPrediction, bool) {
	p, ok := s.Predictions[PredictionKey{PID: pid, Horizon: hz}]
	return p, ok
}

// PredictionsFor returns all horizon records for pid, shortest horizon first.
func (s *Snapshot) PredictionsFor(pid string) []*LatestPrediction {
	return s.byPID[pid]
}

// Age returns how old the snapshot is at now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.AsOf)
}
