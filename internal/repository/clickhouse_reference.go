package repository

import (
	"context"
	"database/sql"
	"fmt"

	"FreshSnap/internal/domain/models"
	"FreshSnap/internal/domain/repository"
)

// ClickHouseReference implements ReferenceStore over the dimension tables.
// Table names are fixed; only small full-table listings and two GROUP BY
// aggregates run here, everything hot is served from the reference cache.
type ClickHouseReference struct {
	db *sql.DB
}

// NewClickHouseReference creates ClickHouse reference storage.
func NewClickHouseReference(db *sql.DB) repository.ReferenceStore {
	return &ClickHouseReference{db: db}
}

func (s *ClickHouseReference) Countries(ctx context.Context) ([]models.Country, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, code, name FROM countries ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Country
	for rows.Next() {
		var c models.Country
		if err := rows.Scan(&c.ID, &c.Code, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *ClickHouseReference) Markets(ctx context.Context) ([]models.Market, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, code, name, country_id FROM markets ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Market
	for rows.Next() {
		var m models.Market
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &m.CountryID); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *ClickHouseReference) Sectors(ctx context.Context) ([]models.Sector, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM sectors ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Sector
	for rows.Next() {
		var sec models.Sector
		if err := rows.Scan(&sec.ID, &sec.Name); err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

const instrumentCols = "id, pid, symbol, name, market_id, sector_id, country_id, status"

func (s *ClickHouseReference) Instruments(ctx context.Context) ([]models.Instrument, error) {
	q := fmt.Sprintf("SELECT %s FROM instruments ORDER BY symbol", instrumentCols)
	return s.queryInstruments(ctx, q)
}

func (s *ClickHouseReference) InstrumentsByMarket(ctx context.Context, marketID string) ([]models.Instrument, error) {
	q := fmt.Sprintf("SELECT %s FROM instruments WHERE market_id = ? ORDER BY symbol", instrumentCols)
	return s.queryInstruments(ctx, q, marketID)
}

func (s *ClickHouseReference) InstrumentsBySector(ctx context.Context, sectorID string) ([]models.Instrument, error) {
	q := fmt.Sprintf("SELECT %s FROM instruments WHERE sector_id = ? ORDER BY symbol", instrumentCols)
	return s.queryInstruments(ctx, q, sectorID)
}

func (s *ClickHouseReference) queryInstruments(ctx context.Context, q string, args ...interface{}) ([]models.Instrument, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Instrument
	for rows.Next() {
		var ins models.Instrument
		if err := rows.Scan(&ins.ID, &ins.PID, &ins.Symbol, &ins.Name, &ins.MarketID, &ins.SectorID, &ins.CountryID, &ins.Status); err != nil {
			return nil, err
		}
		out = append(out, ins)
	}
	return out, rows.Err()
}

func (s *ClickHouseReference) PredictionCountsByMarket(ctx context.Context) (map[string]int64, error) {
	q := `SELECT i.market_id, count() AS c
		FROM prediction_points AS p
		INNER JOIN instruments AS i ON i.pid = p.pid
		WHERE i.status != ?
		GROUP BY i.market_id`
	return s.queryCounts(ctx, q, models.StatusRetired)
}

func (s *ClickHouseReference) PredictionCountsBySector(ctx context.Context) (map[string]int64, error) {
	q := `SELECT i.sector_id, count() AS c
		FROM prediction_points AS p
		INNER JOIN instruments AS i ON i.pid = p.pid
		WHERE i.status != ?
		GROUP BY i.sector_id`
	return s.queryCounts(ctx, q, models.StatusRetired)
}

func (s *ClickHouseReference) queryCounts(ctx context.Context, q string, args ...interface{}) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var id string
		var c int64
		if err := rows.Scan(&id, &c); err != nil {
			return nil, err
		}
		counts[id] = c
	}
	return counts, rows.Err()
}
