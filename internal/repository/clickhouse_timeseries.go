package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FreshSnap/internal/domain/models"
	"FreshSnap/internal/domain/repository"
)

// ClickHouseTimeSeries implements TimeSeriesStore for ClickHouse.
type ClickHouseTimeSeries struct {
	db              *sql.DB
	priceTable      string
	predictionTable string
}

// NewClickHouseTimeSeries creates ClickHouse time-series storage.
func NewClickHouseTimeSeries(db *sql.DB, priceTable, predictionTable string) repository.TimeSeriesStore {
	return &ClickHouseTimeSeries{db: db, priceTable: priceTable, predictionTable: predictionTable}
}

// ScanPrices streams every price row ordered by (pid ASC, timestamp DESC).
// The ordering is part of the contract: within a pid the newest row arrives
// first and equal timestamps keep their insertion order.
func (s *ClickHouseTimeSeries) ScanPrices(ctx context.Context, fn func(p *models.PricePoint) error) error {
	q := fmt.Sprintf(
		"SELECT pid, ts, last, bid, ask, high, low, last_close, change_pct, volume FROM %s ORDER BY pid ASC, ts DESC",
		s.priceTable)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p models.PricePoint
		var ts time.Time
		if err := rows.Scan(&p.PID, &ts, &p.Last, &p.Bid, &p.Ask, &p.High, &p.Low, &p.LastClose, &p.ChangePct, &p.Volume); err != nil {
			return err
		}
		p.Timestamp = ts.Unix()
		if err := fn(&p); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ScanPredictions streams every prediction row, same ordering contract as
// ScanPrices.
func (s *ClickHouseTimeSeries) ScanPredictions(ctx context.Context, fn func(p *models.PredictionPoint) error) error {
	q := fmt.Sprintf(
		"SELECT pid, symbol, model, ts, predicted, confidence, horizon FROM %s ORDER BY pid ASC, ts DESC",
		s.predictionTable)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p models.PredictionPoint
		var ts time.Time
		if err := rows.Scan(&p.PID, &p.Symbol, &p.Model, &ts, &p.Predicted, &p.Confidence, &p.Horizon); err != nil {
			return err
		}
		p.Timestamp = ts.Unix()
		if err := fn(&p); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *ClickHouseTimeSeries) AppendPrice(ctx context.Context, p *models.PricePoint) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (pid, ts, last, bid, ask, high, low, last_close, change_pct, volume) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		s.priceTable)
	_, err := s.db.ExecContext(ctx, q,
		p.PID,
		time.Unix(p.Timestamp, 0),
		p.Last,
		p.Bid,
		p.Ask,
		p.High,
		p.Low,
		p.LastClose,
		p.ChangePct,
		p.Volume,
	)
	return err
}

func (s *ClickHouseTimeSeries) AppendPrices(ctx context.Context, points []*models.PricePoint) error {
	if len(points) == 0 {
		return nil
	}
	// Multi-row VALUES insert to reduce round-trips, 2000 rows per chunk.
	const chunkSize = 2000
	for start := 0; start < len(points); start += chunkSize {
		end := start + chunkSize
		if end > len(points) {
			end = len(points)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*10)
		for _, p := range points[start:end] {
			if p == nil || p.PID == "" || p.Timestamp == 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				p.PID,
				time.Unix(p.Timestamp, 0),
				p.Last,
				p.Bid,
				p.Ask,
				p.High,
				p.Low,
				p.LastClose,
				p.ChangePct,
				p.Volume,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf(
			"INSERT INTO %s (pid, ts, last, bid, ask, high, low, last_close, change_pct, volume) VALUES %s",
			s.priceTable, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseTimeSeries) AppendPrediction(ctx context.Context, p *models.PredictionPoint) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (pid, symbol, model, ts, predicted, confidence, horizon) VALUES (?, ?, ?, ?, ?, ?, ?)",
		s.predictionTable)
	_, err := s.db.ExecContext(ctx, q,
		p.PID,
		p.Symbol,
		p.Model,
		time.Unix(p.Timestamp, 0),
		p.Predicted,
		p.Confidence,
		p.Horizon,
	)
	return err
}

func (s *ClickHouseTimeSeries) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseTimeSeries) Close() error {
	return nil // Managed by pkg
}
