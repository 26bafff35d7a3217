package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"FreshSnap/internal/domain/models"
	"FreshSnap/internal/domain/repository"
	"FreshSnap/internal/freshness"
	"FreshSnap/internal/horizon"
	applogger "FreshSnap/pkg/logger"
)

// Universe supplies the instrument key space for a rebuild. Implemented by
// the reference cache.
type Universe interface {
	Instruments(ctx context.Context) ([]models.Instrument, error)
}

// Projector rebuilds the latest-value projection from scratch: one full
// ordered scan per series, reduced to the argmax-timestamp row per group key
// (pid for prices, pid+horizon for predictions). No incremental merging; a
// later cycle self-heals anything an earlier cycle got wrong.
type Projector struct {
	source   repository.TimeSeriesStore
	universe Universe
	class    *freshness.Classifier
	metrics  repository.Metrics
	log      *applogger.Logger

	// now is swappable for tests.
	now func() time.Time
}

func NewProjector(source repository.TimeSeriesStore, universe Universe, class *freshness.Classifier, metrics repository.Metrics, log *applogger.Logger) *Projector {
	return &Projector{
		source:   source,
		universe: universe,
		class:    class,
		metrics:  metrics,
		log:      log,
		now:      time.Now,
	}
}

// SetNow overrides the projector clock. Tests only.
func (p *Projector) SetNow(now func() time.Time) { p.now = now }

// pricePick tracks the current argmax candidate for one pid.
type pricePick struct {
	point *models.PricePoint
	row   int64
}

type predictionPick struct {
	point *models.PredictionPoint
	row   int64
}

// Build scans both series and assembles a new immutable snapshot.
// Returns ErrEmptyUniverse (with a valid empty snapshot) when the reference
// cache yields no instruments, and ErrSourceUnavailable when a scan fails;
// in the latter case no snapshot is returned and the caller keeps the old
// one. Individual malformed points are skipped and counted, never fatal.
func (p *Projector) Build(ctx context.Context) (*models.Snapshot, error) {
	now := p.now()

	instruments, err := p.universe.Instruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load instrument universe: %w", err)
	}
	universe := make(map[string]struct{}, len(instruments))
	for i := range instruments {
		if instruments[i].Retired() {
			continue
		}
		universe[instruments[i].PID] = struct{}{}
	}
	if len(universe) == 0 {
		return models.NewSnapshot(now, map[string]*models.LatestPrice{}, map[models.PredictionKey]*models.LatestPrediction{}, map[string][]*models.LatestPrediction{}, 0), ErrEmptyUniverse
	}

	skipped := 0
	skip := func(reason string) {
		skipped++
		p.metrics.RecordSkippedPoint(reason)
	}

	// Price series: argmax by pid. Equal timestamps resolve to the later
	// scan row so a rebuild over an unchanged source is deterministic.
	var rowNo int64
	prices := make(map[string]*pricePick)
	err = p.source.ScanPrices(ctx, func(pt *models.PricePoint) error {
		rowNo++
		if pt.PID == "" || pt.Timestamp <= 0 {
			skip("price_invalid_key")
			return nil
		}
		if !isFinite(pt.Last) {
			skip("price_non_finite")
			return nil
		}
		if _, ok := universe[pt.PID]; !ok {
			skip("price_unknown_instrument")
			return nil
		}
		cur, ok := prices[pt.PID]
		if !ok || pt.Timestamp > cur.point.Timestamp ||
			(pt.Timestamp == cur.point.Timestamp && rowNo > cur.row) {
			prices[pt.PID] = &pricePick{point: pt, row: rowNo}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan prices: %v", ErrSourceUnavailable, err)
	}

	// Prediction series: same reduction, but grouped by (pid, horizon).
	// Collapsing by pid alone would silently drop all but one horizon.
	rowNo = 0
	predictions := make(map[models.PredictionKey]*predictionPick)
	err = p.source.ScanPredictions(ctx, func(pt *models.PredictionPoint) error {
		rowNo++
		if pt.PID == "" || pt.Timestamp <= 0 {
			skip("prediction_invalid_key")
			return nil
		}
		if !horizon.Known(pt.Horizon) {
			skip("prediction_unknown_horizon")
			return nil
		}
		if !isFinite(pt.Predicted) {
			skip("prediction_non_finite")
			return nil
		}
		if _, ok := universe[pt.PID]; !ok {
			skip("prediction_unknown_instrument")
			return nil
		}
		key := models.PredictionKey{PID: pt.PID, Horizon: pt.Horizon}
		cur, ok := predictions[key]
		if !ok || pt.Timestamp > cur.point.Timestamp ||
			(pt.Timestamp == cur.point.Timestamp && rowNo > cur.row) {
			predictions[key] = &predictionPick{point: pt, row: rowNo}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan predictions: %v", ErrSourceUnavailable, err)
	}

	return p.assemble(now, prices, predictions, skipped), nil
}

// assemble attaches freshness to the selected points and freezes the result.
func (p *Projector) assemble(now time.Time, prices map[string]*pricePick, predictions map[models.PredictionKey]*predictionPick, skipped int) *models.Snapshot {
	latestPrices := make(map[string]*models.LatestPrice, len(prices))
	for pid, pick := range prices {
		pt := pick.point
		latestPrices[pid] = &models.LatestPrice{
			PID:        pid,
			Price:      pt.Last,
			High:       pt.High,
			Low:        pt.Low,
			LastClose:  pt.LastClose,
			ChangePct:  pt.ChangePct,
			Volume:     pt.Volume,
			Timestamp:  pt.Timestamp,
			Freshness:  p.class.Price(now, pt.Timestamp),
			AgeSeconds: freshness.AgeSeconds(now, pt.Timestamp),
			HoursAgo:   freshness.HoursAgo(now, pt.Timestamp),
		}
	}

	latestPredictions := make(map[models.PredictionKey]*models.LatestPrediction, len(predictions))
	byPID := make(map[string][]*models.LatestPrediction)
	for key, pick := range predictions {
		pt := pick.point
		mins := horizon.Minutes(pt.Horizon)
		rec := &models.LatestPrediction{
			PID:             pt.PID,
			Symbol:          pt.Symbol,
			Model:           pt.Model,
			Horizon:         pt.Horizon,
			HorizonMinutes:  mins,
			HorizonLabel:    horizon.Label(pt.Horizon),
			Predicted:       pt.Predicted,
			Confidence:      pt.Confidence,
			Timestamp:       pt.Timestamp,
			Freshness:       p.class.Prediction(now, pt.Timestamp),
			AgeMinutes:      freshness.AgeMinutes(now, pt.Timestamp),
			MinutesToTarget: freshness.MinutesToTarget(now, pt.Timestamp, mins),
			DaysOld:         p.class.DaysOld(now, pt.Timestamp),
		}
		if price, ok := latestPrices[pt.PID]; ok && price.Price > 0 {
			rec.ExpectedGainPct = (pt.Predicted - price.Price) / price.Price * 100
		}
		latestPredictions[key] = rec
		byPID[pt.PID] = append(byPID[pt.PID], rec)
	}
	for pid := range byPID {
		recs := byPID[pid]
		sort.Slice(recs, func(i, j int) bool {
			return recs[i].HorizonMinutes < recs[j].HorizonMinutes
		})
	}

	return models.NewSnapshot(now, latestPrices, latestPredictions, byPID, skipped)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
