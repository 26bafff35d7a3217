package refdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"FreshSnap/internal/domain/models"
	svcache "FreshSnap/internal/service/cache"
	applogger "FreshSnap/pkg/logger"
)

// fakeStore counts loader calls so tests can assert the cache actually
// short-circuits repeat reads.
type fakeStore struct {
	countries   []models.Country
	markets     []models.Market
	sectors     []models.Sector
	instruments []models.Instrument
	err         error

	calls map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		countries: []models.Country{{ID: "c1", Code: "US", Name: "United States"}},
		markets: []models.Market{
			{ID: "m1", Code: "NASDAQ", Name: "Nasdaq", CountryID: "c1"},
			{ID: "m2", Code: "NYSE", Name: "NYSE", CountryID: "c1"},
		},
		sectors: []models.Sector{{ID: "s1", Name: "Tech"}},
		instruments: []models.Instrument{
			{ID: "i1", PID: "AAPL.1", Symbol: "AAPL", Name: "Apple", MarketID: "m1", SectorID: "s1", Status: "active"},
			{ID: "i2", PID: "IBM.1", Symbol: "IBM", Name: "IBM", MarketID: "m2", SectorID: "s1", Status: "active"},
		},
		calls: make(map[string]int),
	}
}

func (f *fakeStore) Countries(ctx context.Context) ([]models.Country, error) {
	f.calls["countries"]++
	return f.countries, f.err
}

func (f *fakeStore) Markets(ctx context.Context) ([]models.Market, error) {
	f.calls["markets"]++
	return f.markets, f.err
}

func (f *fakeStore) Sectors(ctx context.Context) ([]models.Sector, error) {
	f.calls["sectors"]++
	return f.sectors, f.err
}

func (f *fakeStore) Instruments(ctx context.Context) ([]models.Instrument, error) {
	f.calls["instruments"]++
	return f.instruments, f.err
}

func (f *fakeStore) InstrumentsByMarket(ctx context.Context, marketID string) ([]models.Instrument, error) {
	f.calls["instruments:market:"+marketID]++
	var out []models.Instrument
	for _, i := range f.instruments {
		if i.MarketID == marketID {
			out = append(out, i)
		}
	}
	return out, f.err
}

func (f *fakeStore) InstrumentsBySector(ctx context.Context, sectorID string) ([]models.Instrument, error) {
	f.calls["instruments:sector:"+sectorID]++
	var out []models.Instrument
	for _, i := range f.instruments {
		if i.SectorID == sectorID {
			out = append(out, i)
		}
	}
	return out, f.err
}

func (f *fakeStore) PredictionCountsByMarket(ctx context.Context) (map[string]int64, error) {
	f.calls["counts:market"]++
	return map[string]int64{"m1": 12, "m2": 3}, f.err
}

func (f *fakeStore) PredictionCountsBySector(ctx context.Context) (map[string]int64, error) {
	f.calls["counts:sector"]++
	return map[string]int64{"s1": 15}, f.err
}

func testLog(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newTestCache(t *testing.T) (*Cache, *fakeStore, *svcache.TTLCache) {
	t.Helper()
	src := newFakeStore()
	bytes := svcache.NewTTLCache()
	return NewCache(src, bytes, time.Hour, testLog(t)), src, bytes
}

func TestCacheShortCircuitsRepeatReads(t *testing.T) {
	ctx := context.Background()
	c, src, _ := newTestCache(t)

	for i := 0; i < 3; i++ {
		markets, err := c.Markets(ctx)
		if err != nil {
			t.Fatalf("markets: %v", err)
		}
		if len(markets) != 2 {
			t.Fatalf("got %d markets, want 2", len(markets))
		}
	}
	if src.calls["markets"] != 1 {
		t.Fatalf("source hit %d times, want 1", src.calls["markets"])
	}
}

func TestInvalidateAllForcesReload(t *testing.T) {
	ctx := context.Background()
	c, src, _ := newTestCache(t)

	if _, err := c.Instruments(ctx); err != nil {
		t.Fatalf("instruments: %v", err)
	}
	if _, err := c.InstrumentsByMarket(ctx, "m1"); err != nil {
		t.Fatalf("by market: %v", err)
	}

	if err := c.InvalidateAll(); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	if _, err := c.Instruments(ctx); err != nil {
		t.Fatalf("instruments after invalidate: %v", err)
	}
	if src.calls["instruments"] != 2 {
		t.Fatalf("source hit %d times after invalidation, want 2", src.calls["instruments"])
	}

	// a second InvalidateAll with nothing tracked is a no-op
	if err := c.InvalidateAll(); err != nil {
		t.Fatalf("second invalidate: %v", err)
	}
}

func TestCorruptEntryRecovers(t *testing.T) {
	ctx := context.Background()
	c, src, bytes := newTestCache(t)

	if err := bytes.SetBytes("static:sectors", []byte("{not json"), time.Hour); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sectors, err := c.Sectors(ctx)
	if err != nil {
		t.Fatalf("sectors: %v", err)
	}
	if len(sectors) != 1 || src.calls["sectors"] != 1 {
		t.Fatalf("corrupt entry must fall through to the loader")
	}
}

func TestSourceFailurePropagates(t *testing.T) {
	ctx := context.Background()
	c, src, _ := newTestCache(t)
	src.err = errors.New("connection refused")

	if _, err := c.Countries(ctx); err == nil {
		t.Fatalf("expected loader error on cold cache")
	}
}

func TestWarmAll(t *testing.T) {
	ctx := context.Background()
	c, src, _ := newTestCache(t)

	counts, err := c.WarmAll(ctx)
	if err != nil {
		t.Fatalf("warm: %v", err)
	}
	want := map[string]int{"countries": 1, "markets": 2, "sectors": 1, "instruments": 2}
	for k, v := range want {
		if counts[k] != v {
			t.Fatalf("counts[%s] = %d, want %d", k, counts[k], v)
		}
	}
	// per-market and per-sector lists were preloaded too
	if src.calls["instruments:market:m1"] != 1 || src.calls["instruments:market:m2"] != 1 {
		t.Fatalf("per-market lists not warmed: %v", src.calls)
	}
	if src.calls["instruments:sector:s1"] != 1 {
		t.Fatalf("per-sector lists not warmed: %v", src.calls)
	}

	// everything warm: no further source hits
	if _, err := c.InstrumentsByMarket(ctx, "m2"); err != nil {
		t.Fatalf("by market: %v", err)
	}
	if src.calls["instruments:market:m2"] != 1 {
		t.Fatalf("warmed entry reloaded")
	}
}

func TestMarketByCode(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)

	m, err := c.MarketByCode(ctx, "NYSE")
	if err != nil {
		t.Fatalf("by code: %v", err)
	}
	if m == nil || m.ID != "m2" {
		t.Fatalf("got %+v, want m2", m)
	}

	unknown, err := c.MarketByCode(ctx, "LSE")
	if err != nil || unknown != nil {
		t.Fatalf("unknown code must resolve to nil, nil")
	}
}
