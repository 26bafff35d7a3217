package engine

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"FreshSnap/internal/domain/models"
	"FreshSnap/internal/freshness"
	applogger "FreshSnap/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordCycle(string, float64)      {}
func (nopMetrics) RecordSnapshotSize(int, int)      {}
func (nopMetrics) RecordSnapshotAge(float64)        {}
func (nopMetrics) RecordSkippedPoint(string)        {}
func (nopMetrics) RecordError(string)               {}
func (nopMetrics) RecordMessageSent(string, string) {}
func (nopMetrics) RecordLatency(string, float64)    {}

type fakeSeries struct {
	prices        []*models.PricePoint
	predictions   []*models.PredictionPoint
	priceErr      error
	predictionErr error
}

func (f *fakeSeries) ScanPrices(ctx context.Context, fn func(p *models.PricePoint) error) error {
	if f.priceErr != nil {
		return f.priceErr
	}
	for _, p := range f.prices {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSeries) ScanPredictions(ctx context.Context, fn func(p *models.PredictionPoint) error) error {
	if f.predictionErr != nil {
		return f.predictionErr
	}
	for _, p := range f.predictions {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSeries) AppendPrice(ctx context.Context, p *models.PricePoint) error { return nil }
func (f *fakeSeries) AppendPrices(ctx context.Context, points []*models.PricePoint) error {
	return nil
}
func (f *fakeSeries) AppendPrediction(ctx context.Context, p *models.PredictionPoint) error {
	return nil
}
func (f *fakeSeries) Health(ctx context.Context) error { return nil }
func (f *fakeSeries) Close() error                     { return nil }

type fakeUniverse struct {
	instruments []models.Instrument
	err         error
}

func (f *fakeUniverse) Instruments(ctx context.Context) ([]models.Instrument, error) {
	return f.instruments, f.err
}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newTestProjector(t *testing.T, src *fakeSeries, uni *fakeUniverse, now time.Time) *Projector {
	t.Helper()
	p := NewProjector(src, uni, freshness.NewClassifier(nil), nopMetrics{}, testLogger(t))
	p.SetNow(func() time.Time { return now })
	return p
}

func instrument(pid string) models.Instrument {
	return models.Instrument{ID: pid, PID: pid, Symbol: "S" + pid, Name: "N" + pid, Status: "active"}
}

func price(pid string, ts int64, last float64) *models.PricePoint {
	return &models.PricePoint{PID: pid, Timestamp: ts, Last: last}
}

func prediction(pid, hz string, ts int64, val float64) *models.PredictionPoint {
	return &models.PredictionPoint{PID: pid, Symbol: "S" + pid, Model: "m1", Timestamp: ts, Predicted: val, Confidence: 0.9, Horizon: hz}
}

func TestBuildPicksLatestPerPID(t *testing.T) {
	now := time.Unix(260, 0)
	src := &fakeSeries{prices: []*models.PricePoint{
		price("X", 200, 12),
		price("X", 100, 10),
		price("Z", 50, 3),
	}}
	uni := &fakeUniverse{instruments: []models.Instrument{instrument("X"), instrument("Z")}}

	sn, err := newTestProjector(t, src, uni, now).Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	lp, ok := sn.Price("X")
	if !ok {
		t.Fatalf("no price for X")
	}
	if lp.Price != 12 || lp.Timestamp != 200 {
		t.Fatalf("X latest = (%v, %d), want (12, 200)", lp.Price, lp.Timestamp)
	}
	if lp.AgeSeconds != 60 {
		t.Fatalf("X age = %d, want 60", lp.AgeSeconds)
	}
	if _, ok := sn.Price("Z"); !ok {
		t.Fatalf("no price for Z")
	}
}

func TestBuildGroupsPredictionsPerHorizon(t *testing.T) {
	now := time.Unix(100000, 0)
	src := &fakeSeries{predictions: []*models.PredictionPoint{
		prediction("Y", "1hour", 90000, 105),
		prediction("Y", "1day", 80000, 110),
		prediction("Y", "1hour", 95000, 106),
	}}
	uni := &fakeUniverse{instruments: []models.Instrument{instrument("Y")}}

	sn, err := newTestProjector(t, src, uni, now).Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// both horizons survive independently
	recs := sn.PredictionsFor("Y")
	if len(recs) != 2 {
		t.Fatalf("expected 2 horizon records, got %d", len(recs))
	}
	// shortest horizon first
	if recs[0].Horizon != "1hour" || recs[1].Horizon != "1day" {
		t.Fatalf("horizon order wrong: %s, %s", recs[0].Horizon, recs[1].Horizon)
	}

	hour, ok := sn.Prediction("Y", "1hour")
	if !ok || hour.Predicted != 106 || hour.Timestamp != 95000 {
		t.Fatalf("1hour latest wrong: %+v", hour)
	}
	day, ok := sn.Prediction("Y", "1day")
	if !ok || day.Predicted != 110 {
		t.Fatalf("1day latest wrong: %+v", day)
	}
	if day.HorizonMinutes != 1440 || day.HorizonLabel != "1D" {
		t.Fatalf("1day horizon meta wrong: %+v", day)
	}
}

func TestBuildEqualTimestampsLaterRowWins(t *testing.T) {
	now := time.Unix(1000, 0)
	src := &fakeSeries{prices: []*models.PricePoint{
		price("X", 500, 10),
		price("X", 500, 11),
	}}
	uni := &fakeUniverse{instruments: []models.Instrument{instrument("X")}}

	sn, err := newTestProjector(t, src, uni, now).Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	lp, _ := sn.Price("X")
	if lp.Price != 11 {
		t.Fatalf("equal-timestamp pick = %v, want the later row (11)", lp.Price)
	}
}

func TestBuildSkipsMalformedPoints(t *testing.T) {
	now := time.Unix(1000, 0)
	src := &fakeSeries{
		prices: []*models.PricePoint{
			price("", 500, 10),           // missing pid
			price("X", 0, 10),            // missing timestamp
			price("X", 500, math.NaN()),  // non-finite
			price("X", 400, math.Inf(1)), // non-finite
			price("GHOST", 500, 5),       // not in universe
			price("X", 300, 7),           // the only valid one
		},
		predictions: []*models.PredictionPoint{
			prediction("X", "4hour", 500, 9), // unknown horizon
			prediction("X", "1hour", 500, 9),
		},
	}
	uni := &fakeUniverse{instruments: []models.Instrument{instrument("X")}}

	sn, err := newTestProjector(t, src, uni, now).Build(context.Background())
	if err != nil {
		t.Fatalf("build must not fail on malformed points: %v", err)
	}

	lp, ok := sn.Price("X")
	if !ok || lp.Price != 7 {
		t.Fatalf("valid point lost among malformed ones: %+v", lp)
	}
	if _, ok := sn.Prediction("X", "1hour"); !ok {
		t.Fatalf("valid prediction lost")
	}
	if _, ok := sn.Prediction("X", "4hour"); ok {
		t.Fatalf("unknown horizon must be dropped")
	}
	if sn.Skipped != 6 {
		t.Fatalf("skipped = %d, want 6", sn.Skipped)
	}
}

func TestBuildExcludesRetiredInstruments(t *testing.T) {
	now := time.Unix(1000, 0)
	retired := instrument("R")
	retired.Status = models.StatusRetired
	src := &fakeSeries{prices: []*models.PricePoint{price("R", 500, 10), price("X", 500, 20)}}
	uni := &fakeUniverse{instruments: []models.Instrument{retired, instrument("X")}}

	sn, err := newTestProjector(t, src, uni, now).Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, ok := sn.Price("R"); ok {
		t.Fatalf("retired instrument must not appear in the snapshot")
	}
	if _, ok := sn.Price("X"); !ok {
		t.Fatalf("active instrument missing")
	}
}

func TestBuildEmptyUniverse(t *testing.T) {
	now := time.Unix(1000, 0)
	src := &fakeSeries{prices: []*models.PricePoint{price("X", 500, 10)}}
	uni := &fakeUniverse{}

	sn, err := newTestProjector(t, src, uni, now).Build(context.Background())
	if !errors.Is(err, ErrEmptyUniverse) {
		t.Fatalf("err = %v, want ErrEmptyUniverse", err)
	}
	if sn == nil || len(sn.Prices) != 0 {
		t.Fatalf("empty universe must still yield a valid empty snapshot")
	}
}

func TestBuildSourceFailure(t *testing.T) {
	now := time.Unix(1000, 0)
	src := &fakeSeries{priceErr: errors.New("connection refused")}
	uni := &fakeUniverse{instruments: []models.Instrument{instrument("X")}}

	sn, err := newTestProjector(t, src, uni, now).Build(context.Background())
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
	if sn != nil {
		t.Fatalf("no snapshot must be produced on scan failure")
	}
}

func TestBuildIdempotent(t *testing.T) {
	now := time.Unix(100000, 0)
	src := &fakeSeries{
		prices: []*models.PricePoint{
			price("A", 90000, 10), price("B", 91000, 20), price("A", 89000, 9),
		},
		predictions: []*models.PredictionPoint{
			prediction("A", "1hour", 90000, 11),
		},
	}
	uni := &fakeUniverse{instruments: []models.Instrument{instrument("A"), instrument("B")}}
	p := newTestProjector(t, src, uni, now)

	first, err := p.Build(context.Background())
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	second, err := p.Build(context.Background())
	if err != nil {
		t.Fatalf("second build: %v", err)
	}

	if len(first.Prices) != len(second.Prices) {
		t.Fatalf("rebuild changed price count: %d vs %d", len(first.Prices), len(second.Prices))
	}
	for pid, a := range first.Prices {
		b, ok := second.Prices[pid]
		if !ok || a.Price != b.Price || a.Timestamp != b.Timestamp {
			t.Fatalf("rebuild differs for %s: %+v vs %+v", pid, a, b)
		}
	}
}

func TestBuildExpectedGain(t *testing.T) {
	now := time.Unix(100000, 0)
	src := &fakeSeries{
		prices:      []*models.PricePoint{price("A", 99000, 100)},
		predictions: []*models.PredictionPoint{prediction("A", "1day", 99000, 110)},
	}
	uni := &fakeUniverse{instruments: []models.Instrument{instrument("A")}}

	sn, err := newTestProjector(t, src, uni, now).Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	rec, _ := sn.Prediction("A", "1day")
	if math.Abs(rec.ExpectedGainPct-10) > 1e-9 {
		t.Fatalf("ExpectedGainPct = %v, want 10", rec.ExpectedGainPct)
	}
}
