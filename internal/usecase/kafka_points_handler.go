package usecase

import (
	"context"
	"encoding/json"
	"time"

	"FreshSnap/internal/domain/models"
	domrepo "FreshSnap/internal/domain/repository"
	pkgkafka "FreshSnap/pkg/kafka"
)

// KafkaPricesHandler consumes price point messages and appends them to the
// series table.
type KafkaPricesHandler struct {
	topic   string
	storage domrepo.TimeSeriesStore
	metrics domrepo.Metrics
}

func NewKafkaPricesHandler(topic string, storage domrepo.TimeSeriesStore, metrics domrepo.Metrics) *KafkaPricesHandler {
	return &KafkaPricesHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaPricesHandler) Topic() string { return h.topic }

func (h *KafkaPricesHandler) Handle(ctx context.Context, b []byte) error {
	var pt models.PricePoint
	if err := json.Unmarshal(b, &pt); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if pt.Timestamp > 1e11 { // ms
		pt.Timestamp = pt.Timestamp / 1000
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(pt.Timestamp, 0)).Seconds())

	start := time.Now()
	err := h.storage.AppendPrice(ctx, &pt)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordMessageSent("clickhouse", pt.PID)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaPricesHandler)(nil)

// KafkaPredictionsHandler consumes prediction point messages produced by the
// model runners and appends them to the series table.
type KafkaPredictionsHandler struct {
	topic   string
	storage domrepo.TimeSeriesStore
	metrics domrepo.Metrics
}

func NewKafkaPredictionsHandler(topic string, storage domrepo.TimeSeriesStore, metrics domrepo.Metrics) *KafkaPredictionsHandler {
	return &KafkaPredictionsHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaPredictionsHandler) Topic() string { return h.topic }

func (h *KafkaPredictionsHandler) Handle(ctx context.Context, b []byte) error {
	var pt models.PredictionPoint
	if err := json.Unmarshal(b, &pt); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if pt.Timestamp > 1e11 { // ms
		pt.Timestamp = pt.Timestamp / 1000
	}

	start := time.Now()
	err := h.storage.AppendPrediction(ctx, &pt)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordMessageSent("clickhouse", pt.PID)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaPredictionsHandler)(nil)
