package usecase

import (
	"context"
	"strings"
	"time"

	"FreshSnap/internal/domain/models"
	"FreshSnap/internal/engine"
	"FreshSnap/internal/horizon"
	"FreshSnap/internal/refdata"
	"FreshSnap/internal/service/search"
)

// SnapshotQuery serves the read surface from the published snapshot. Every
// read sees exactly one snapshot version; filters and pagination are applied
// over it without touching the series store.
type SnapshotQuery struct {
	store          *engine.SnapshotStore
	ref            *refdata.Cache
	stats          *refdata.Stats
	search         *search.Client
	staleThreshold time.Duration
	now            func() time.Time
}

func NewSnapshotQuery(store *engine.SnapshotStore, ref *refdata.Cache, stats *refdata.Stats, searchClient *search.Client, staleThreshold time.Duration) *SnapshotQuery {
	return &SnapshotQuery{
		store:          store,
		ref:            ref,
		stats:          stats,
		search:         searchClient,
		staleThreshold: staleThreshold,
		now:            time.Now,
	}
}

// PriceRow is one listing row: the snapshot record joined with its
// instrument identity.
type PriceRow struct {
	Symbol string              `json:"symbol"`
	Name   string              `json:"name"`
	Price  *models.LatestPrice `json:"price"`
}

// PriceListing is the paginated price listing with snapshot provenance.
type PriceListing struct {
	Rows    []PriceRow `json:"rows"`
	Total   int64      `json:"total"`
	Version uint64     `json:"version"`
	AsOf    time.Time  `json:"as_of"`
	Stale   bool       `json:"stale"`
}

// ListPrices lists latest prices filtered by market, sector, freshness
// bucket, and search query, in instrument order (or relevance order when
// the search collaborator served the query).
func (q *SnapshotQuery) ListPrices(ctx context.Context, req *models.PricesRequest) (*PriceListing, error) {
	sn := q.store.Current()
	if sn == nil {
		return nil, engine.ErrNoSnapshot
	}

	instruments, ranked, err := q.candidates(ctx, req)
	if err != nil {
		return nil, err
	}

	rows := make([]PriceRow, 0, len(instruments))
	for i := range instruments {
		ins := &instruments[i]
		if ins.Retired() {
			continue
		}
		lp, ok := sn.Price(ins.PID)
		if !ok {
			continue
		}
		if req.Freshness != "" && string(lp.Freshness) != req.Freshness {
			continue
		}
		if !ranked && req.Search != "" && !matchesQuery(ins, req.Search) {
			continue
		}
		rows = append(rows, PriceRow{Symbol: ins.Symbol, Name: ins.Name, Price: lp})
	}

	total := int64(len(rows))
	rows = paginate(rows, req.Page, req.PerPage)

	return &PriceListing{
		Rows:    rows,
		Total:   total,
		Version: sn.Version,
		AsOf:    sn.AsOf,
		Stale:   q.store.Stale(q.now(), q.staleThreshold),
	}, nil
}

// candidates resolves the instrument list for a listing request. ranked is
// true when the search collaborator already ordered the result, in which
// case no further substring filtering applies.
func (q *SnapshotQuery) candidates(ctx context.Context, req *models.PricesRequest) ([]models.Instrument, bool, error) {
	if req.Search != "" && q.search != nil && q.search.Available() {
		pids, err := q.search.Query(ctx, req.Search, req.PerPage*req.Page)
		if err == nil {
			all, lerr := q.ref.Instruments(ctx)
			if lerr != nil {
				return nil, false, lerr
			}
			byPID := make(map[string]*models.Instrument, len(all))
			for i := range all {
				byPID[all[i].PID] = &all[i]
			}
			out := make([]models.Instrument, 0, len(pids))
			for _, pid := range pids {
				ins, ok := byPID[pid]
				if !ok {
					continue
				}
				if req.Market != "" && ins.MarketID != req.Market {
					continue
				}
				if req.Sector != "" && ins.SectorID != req.Sector {
					continue
				}
				out = append(out, *ins)
			}
			return out, true, nil
		}
		// collaborator failed mid-flight; fall back to substring matching
	}

	switch {
	case req.Market != "":
		out, err := q.ref.InstrumentsByMarket(ctx, req.Market)
		if err != nil {
			return nil, false, err
		}
		if req.Sector != "" {
			out = filterSector(out, req.Sector)
		}
		return out, false, nil
	case req.Sector != "":
		out, err := q.ref.InstrumentsBySector(ctx, req.Sector)
		return out, false, err
	default:
		out, err := q.ref.Instruments(ctx)
		return out, false, err
	}
}

func filterSector(instruments []models.Instrument, sectorID string) []models.Instrument {
	out := instruments[:0]
	for _, ins := range instruments {
		if ins.SectorID == sectorID {
			out = append(out, ins)
		}
	}
	return out
}

func matchesQuery(ins *models.Instrument, query string) bool {
	query = strings.ToLower(query)
	return strings.Contains(strings.ToLower(ins.Symbol), query) ||
		strings.Contains(strings.ToLower(ins.Name), query)
}

func paginate(rows []PriceRow, page, perPage int) []PriceRow {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}
	start := (page - 1) * perPage
	if start >= len(rows) {
		return []PriceRow{}
	}
	end := start + perPage
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// PriceByPID returns the latest price for one instrument, nil when the
// snapshot holds no record for it.
func (q *SnapshotQuery) PriceByPID(pid string) (*models.LatestPrice, error) {
	sn := q.store.Current()
	if sn == nil {
		return nil, engine.ErrNoSnapshot
	}
	lp, _ := sn.Price(pid)
	return lp, nil
}

// PredictionsByPID returns all horizon records for one instrument, shortest
// horizon first. Empty slice when none exist.
func (q *SnapshotQuery) PredictionsByPID(pid string) ([]*models.LatestPrediction, error) {
	sn := q.store.Current()
	if sn == nil {
		return nil, engine.ErrNoSnapshot
	}
	return sn.PredictionsFor(pid), nil
}

// PredictionByPIDHorizon returns one (pid, horizon) record, nil when absent.
func (q *SnapshotQuery) PredictionByPIDHorizon(pid, hz string) (*models.LatestPrediction, error) {
	sn := q.store.Current()
	if sn == nil {
		return nil, engine.ErrNoSnapshot
	}
	lp, _ := sn.Prediction(pid, hz)
	return lp, nil
}

// Horizons returns the known horizon set for select inputs.
func (q *SnapshotQuery) Horizons() []horizon.Option {
	return horizon.Options()
}

// StatsByMarket returns cached prediction counts per market.
func (q *SnapshotQuery) StatsByMarket(ctx context.Context) (map[string]int64, error) {
	return q.stats.CountsByMarket(ctx)
}

// StatsBySector returns cached prediction counts per sector.
func (q *SnapshotQuery) StatsBySector(ctx context.Context) (map[string]int64, error) {
	return q.stats.CountsBySector(ctx)
}

// SnapshotHealth describes the published snapshot for operators.
type SnapshotHealth struct {
	Version     uint64    `json:"version"`
	AsOf        time.Time `json:"as_of"`
	AgeSeconds  int64     `json:"age_seconds"`
	Stale       bool      `json:"stale"`
	Prices      int       `json:"prices"`
	Predictions int       `json:"predictions"`
	Skipped     int       `json:"skipped"`
}

// Health reports the snapshot state. A stale snapshot is still served; the
// flag tells operators the refresh loop has fallen behind.
func (q *SnapshotQuery) Health() (*SnapshotHealth, error) {
	sn := q.store.Current()
	if sn == nil {
		return nil, engine.ErrNoSnapshot
	}
	now := q.now()
	return &SnapshotHealth{
		Version:     sn.Version,
		AsOf:        sn.AsOf,
		AgeSeconds:  int64(sn.Age(now).Seconds()),
		Stale:       q.store.Stale(now, q.staleThreshold),
		Prices:      len(sn.Prices),
		Predictions: len(sn.Predictions),
		Skipped:     sn.Skipped,
	}, nil
}
