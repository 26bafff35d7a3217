package repository

import (
	"context"

	"FreshSnap/internal/domain/models"
)

// TimeSeriesStore is the contract the persistence collaborator implements.
// Scans yield every row of a series ordered by (pid ASC, timestamp DESC);
// the projector depends on that ordering being declared, not on a cursor.
// Appends are used by the ingestion collaborators only; rows are append-only.
type TimeSeriesStore interface {
	ScanPrices(ctx context.Context, fn func(p *models.PricePoint) error) error
	ScanPredictions(ctx context.Context, fn func(p *models.PredictionPoint) error) error
	AppendPrice(ctx context.Context, p *models.PricePoint) error
	AppendPrices(ctx context.Context, points []*models.PricePoint) error
	AppendPrediction(ctx context.Context, p *models.PredictionPoint) error
	Health(ctx context.Context) error
	Close() error
}

// ReferenceStore loads dimension tables and derived aggregates from the
// authoritative store. Callers go through the reference cache, not here.
type ReferenceStore interface {
	Countries(ctx context.Context) ([]models.Country, error)
	Markets(ctx context.Context) ([]models.Market, error)
	Sectors(ctx context.Context) ([]models.Sector, error)
	Instruments(ctx context.Context) ([]models.Instrument, error)
	InstrumentsByMarket(ctx context.Context, marketID string) ([]models.Instrument, error)
	InstrumentsBySector(ctx context.Context, sectorID string) ([]models.Instrument, error)
	PredictionCountsByMarket(ctx context.Context) (map[string]int64, error)
	PredictionCountsBySector(ctx context.Context) (map[string]int64, error)
}

// MarketStream is a live price feed (websocket collaborator).
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.PricePoint, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher forwards feed points to the message broker backend.
type Publisher interface {
	Publish(ctx context.Context, p *models.PricePoint) error
	PublishBatch(ctx context.Context, points []*models.PricePoint) error
	Close() error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordCycle(result string, seconds float64)
	RecordSnapshotSize(prices, predictions int)
	RecordSnapshotAge(seconds float64)
	RecordSkippedPoint(reason string)
	RecordError(kind string)
	RecordMessageSent(backend, pid string)
	RecordLatency(op string, seconds float64)
}
