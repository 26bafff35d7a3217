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
	applogger "FreshSnap/pkg/logger"
)

type fakeRefStore struct {
	instruments []models.Instrument
}

func (f *fakeRefStore) Countries(ctx context.Context) ([]models.Country, error) { return nil, nil }
func (f *fakeRefStore) Markets(ctx context.Context) ([]models.Market, error)   { return nil, nil }
func (f *fakeRefStore) Sectors(ctx context.Context) ([]models.Sector, error)   { return nil, nil }
func (f *fakeRefStore) Instruments(ctx context.Context) ([]models.Instrument, error) {
	return f.instruments, nil
}
func (f *fakeRefStore) InstrumentsByMarket(ctx context.Context, marketID string) ([]models.Instrument, error) {
	var out []models.Instrument
	for _, i := range f.instruments {
		if i.MarketID == marketID {
			out = append(out, i)
		}
	}
	return out, nil
}
func (f *fakeRefStore) InstrumentsBySector(ctx context.Context, sectorID string) ([]models.Instrument, error) {
	var out []models.Instrument
	for _, i := range f.instruments {
		if i.SectorID == sectorID {
			out = append(out, i)
		}
	}
	return out, nil
}
func (f *fakeRefStore) PredictionCountsByMarket(ctx context.Context) (map[string]int64, error) {
	return nil, nil
}
func (f *fakeRefStore) PredictionCountsBySector(ctx context.Context) (map[string]int64, error) {
	return nil, nil
}

func queryTestLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func ins(pid, symbol, name, market, sector string) models.Instrument {
	return models.Instrument{ID: pid, PID: pid, Symbol: symbol, Name: name, MarketID: market, SectorID: sector, Status: "active"}
}

func lp(pid string, price float64, bucket freshness.Bucket) *models.LatestPrice {
	return &models.LatestPrice{PID: pid, Price: price, Timestamp: 1000, Freshness: bucket}
}

func publishSnapshot(store *engine.SnapshotStore, asOf time.Time, prices map[string]*models.LatestPrice, predictions map[models.PredictionKey]*models.LatestPrediction, byPID map[string][]*models.LatestPrediction) *models.Snapshot {
	if prices == nil {
		prices = map[string]*models.LatestPrice{}
	}
	if predictions == nil {
		predictions = map[models.PredictionKey]*models.LatestPrediction{}
	}
	if byPID == nil {
		byPID = map[string][]*models.LatestPrediction{}
	}
	sn := models.NewSnapshot(asOf, prices, predictions, byPID, 0)
	store.Publish(sn)
	return sn
}

func newTestQuery(t *testing.T, instruments []models.Instrument) (*SnapshotQuery, *engine.SnapshotStore) {
	t.Helper()
	store := engine.NewSnapshotStore()
	ref := refdata.NewCache(&fakeRefStore{instruments: instruments}, svcache.NewTTLCache(), time.Hour, queryTestLogger(t))
	return NewSnapshotQuery(store, ref, nil, nil, time.Minute), store
}

func TestListPricesNoSnapshot(t *testing.T) {
	q, _ := newTestQuery(t, nil)
	_, err := q.ListPrices(context.Background(), &models.PricesRequest{Page: 1, PerPage: 50})
	if !errors.Is(err, engine.ErrNoSnapshot) {
		t.Fatalf("err = %v, want ErrNoSnapshot", err)
	}
}

func TestListPricesFilters(t *testing.T) {
	instruments := []models.Instrument{
		ins("A", "AAPL", "Apple", "m1", "s1"),
		ins("B", "BBVA", "BBVA", "m2", "s2"),
		ins("C", "CSCO", "Cisco", "m1", "s2"),
	}
	q, store := newTestQuery(t, instruments)
	publishSnapshot(store, time.Now(), map[string]*models.LatestPrice{
		"A": lp("A", 10, freshness.BucketLive),
		"B": lp("B", 20, freshness.BucketToday),
		"C": lp("C", 30, freshness.BucketLive),
	}, nil, nil)

	ctx := context.Background()

	out, err := q.ListPrices(ctx, &models.PricesRequest{Market: "m1", Page: 1, PerPage: 50})
	if err != nil {
		t.Fatalf("by market: %v", err)
	}
	if out.Total != 2 || len(out.Rows) != 2 {
		t.Fatalf("market filter: total %d rows %d, want 2/2", out.Total, len(out.Rows))
	}

	out, err = q.ListPrices(ctx, &models.PricesRequest{Market: "m1", Sector: "s2", Page: 1, PerPage: 50})
	if err != nil {
		t.Fatalf("by market+sector: %v", err)
	}
	if out.Total != 1 || out.Rows[0].Symbol != "CSCO" {
		t.Fatalf("market+sector filter wrong: %+v", out.Rows)
	}

	out, err = q.ListPrices(ctx, &models.PricesRequest{Freshness: "today", Page: 1, PerPage: 50})
	if err != nil {
		t.Fatalf("by freshness: %v", err)
	}
	if out.Total != 1 || out.Rows[0].Symbol != "BBVA" {
		t.Fatalf("freshness filter wrong: %+v", out.Rows)
	}
}

func TestListPricesSubstringFallback(t *testing.T) {
	instruments := []models.Instrument{
		ins("A", "AAPL", "Apple", "m1", "s1"),
		ins("B", "MSFT", "Microsoft", "m1", "s1"),
	}
	q, store := newTestQuery(t, instruments)
	publishSnapshot(store, time.Now(), map[string]*models.LatestPrice{
		"A": lp("A", 10, freshness.BucketLive),
		"B": lp("B", 20, freshness.BucketLive),
	}, nil, nil)

	// no search collaborator configured: case-insensitive substring match on
	// symbol or name
	out, err := q.ListPrices(context.Background(), &models.PricesRequest{Search: "soft", Page: 1, PerPage: 50})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if out.Total != 1 || out.Rows[0].Symbol != "MSFT" {
		t.Fatalf("substring fallback wrong: %+v", out.Rows)
	}
}

func TestListPricesSkipsRetiredAndUnpriced(t *testing.T) {
	retired := ins("R", "RET", "Retired Co", "m1", "s1")
	retired.Status = models.StatusRetired
	instruments := []models.Instrument{
		retired,
		ins("A", "AAPL", "Apple", "m1", "s1"),
		ins("N", "NOPX", "No Price Yet", "m1", "s1"),
	}
	q, store := newTestQuery(t, instruments)
	publishSnapshot(store, time.Now(), map[string]*models.LatestPrice{
		"R": lp("R", 5, freshness.BucketLive),
		"A": lp("A", 10, freshness.BucketLive),
	}, nil, nil)

	out, err := q.ListPrices(context.Background(), &models.PricesRequest{Page: 1, PerPage: 50})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if out.Total != 1 || out.Rows[0].Symbol != "AAPL" {
		t.Fatalf("retired and unpriced instruments must be skipped: %+v", out.Rows)
	}
}

func TestListPricesPagination(t *testing.T) {
	instruments := []models.Instrument{
		ins("A", "A", "A", "m1", "s1"),
		ins("B", "B", "B", "m1", "s1"),
		ins("C", "C", "C", "m1", "s1"),
		ins("D", "D", "D", "m1", "s1"),
		ins("E", "E", "E", "m1", "s1"),
	}
	prices := make(map[string]*models.LatestPrice)
	for _, i := range instruments {
		prices[i.PID] = lp(i.PID, 1, freshness.BucketLive)
	}
	q, store := newTestQuery(t, instruments)
	publishSnapshot(store, time.Now(), prices, nil, nil)

	ctx := context.Background()

	out, err := q.ListPrices(ctx, &models.PricesRequest{Page: 3, PerPage: 2})
	if err != nil {
		t.Fatalf("page 3: %v", err)
	}
	if out.Total != 5 || len(out.Rows) != 1 {
		t.Fatalf("page 3 of 2: total %d rows %d, want 5/1", out.Total, len(out.Rows))
	}

	out, err = q.ListPrices(ctx, &models.PricesRequest{Page: 9, PerPage: 2})
	if err != nil {
		t.Fatalf("past end: %v", err)
	}
	if out.Total != 5 || len(out.Rows) != 0 {
		t.Fatalf("page past end: total %d rows %d, want 5/0", out.Total, len(out.Rows))
	}
}

func TestPointLookups(t *testing.T) {
	instruments := []models.Instrument{ins("A", "AAPL", "Apple", "m1", "s1")}
	q, store := newTestQuery(t, instruments)

	hour := &models.LatestPrediction{PID: "A", Horizon: "1hour", HorizonMinutes: 60, Predicted: 11}
	day := &models.LatestPrediction{PID: "A", Horizon: "1day", HorizonMinutes: 1440, Predicted: 12}
	publishSnapshot(store, time.Now(),
		map[string]*models.LatestPrice{"A": lp("A", 10, freshness.BucketLive)},
		map[models.PredictionKey]*models.LatestPrediction{
			{PID: "A", Horizon: "1hour"}: hour,
			{PID: "A", Horizon: "1day"}:  day,
		},
		map[string][]*models.LatestPrediction{"A": {hour, day}},
	)

	p, err := q.PriceByPID("A")
	if err != nil || p == nil || p.Price != 10 {
		t.Fatalf("PriceByPID = %+v, %v", p, err)
	}
	if p, err := q.PriceByPID("GHOST"); err != nil || p != nil {
		t.Fatalf("unknown pid must be nil, nil")
	}

	recs, err := q.PredictionsByPID("A")
	if err != nil || len(recs) != 2 {
		t.Fatalf("PredictionsByPID = %d records, %v", len(recs), err)
	}
	if recs[0].Horizon != "1hour" {
		t.Fatalf("horizon order wrong: %s", recs[0].Horizon)
	}

	rec, err := q.PredictionByPIDHorizon("A", "1day")
	if err != nil || rec == nil || rec.Predicted != 12 {
		t.Fatalf("PredictionByPIDHorizon = %+v, %v", rec, err)
	}
	if rec, err := q.PredictionByPIDHorizon("A", "1year"); err != nil || rec != nil {
		t.Fatalf("absent horizon must be nil, nil")
	}
}

func TestHealth(t *testing.T) {
	q, store := newTestQuery(t, nil)

	if _, err := q.Health(); !errors.Is(err, engine.ErrNoSnapshot) {
		t.Fatalf("err = %v, want ErrNoSnapshot", err)
	}

	now := time.Now()
	sn := models.NewSnapshot(now.Add(-30*time.Second),
		map[string]*models.LatestPrice{"A": lp("A", 10, freshness.BucketLive)},
		map[models.PredictionKey]*models.LatestPrediction{},
		map[string][]*models.LatestPrediction{}, 2)
	store.Publish(sn)

	q.now = func() time.Time { return now }
	h, err := q.Health()
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if h.Version != sn.Version || h.Prices != 1 || h.Predictions != 0 || h.Skipped != 2 {
		t.Fatalf("health counters wrong: %+v", h)
	}
	if h.AgeSeconds != 30 {
		t.Fatalf("AgeSeconds = %d, want 30", h.AgeSeconds)
	}
	if h.Stale {
		t.Fatalf("30s old snapshot must not be stale at 1m threshold")
	}
}
