package di

import (
	"context"
	"fmt"
	"net"
	"time"

	"FreshSnap/internal/domain/repository"
	"FreshSnap/internal/engine"
	"FreshSnap/internal/freshness"
	"FreshSnap/internal/handler/api"
	mid "FreshSnap/internal/middleware"
	"FreshSnap/internal/refdata"
	internalrepo "FreshSnap/internal/repository"
	svcache "FreshSnap/internal/service/cache"
	"FreshSnap/internal/service/feed"
	"FreshSnap/internal/service/ratelimit"
	"FreshSnap/internal/service/search"
	"FreshSnap/internal/usecase"
	pkgcache "FreshSnap/pkg/cache"
	pkgch "FreshSnap/pkg/clickhouse"
	"FreshSnap/pkg/config"
	xhttp "FreshSnap/pkg/http"
	pkgkafka "FreshSnap/pkg/kafka"
	applogger "FreshSnap/pkg/logger"
	"FreshSnap/pkg/metrics"
	"FreshSnap/pkg/server"
	"FreshSnap/pkg/util"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS freshsnap",
		"CREATE TABLE IF NOT EXISTS freshsnap.price_points (pid String, ts DateTime, last Float64, bid Float64, ask Float64, high Float64, low Float64, last_close Float64, change_pct Float64, volume Float64) ENGINE=MergeTree ORDER BY (pid, ts)",
		"CREATE TABLE IF NOT EXISTS freshsnap.prediction_points (pid String, symbol String, model String, ts DateTime, predicted Float64, confidence Float64, horizon String) ENGINE=MergeTree ORDER BY (pid, horizon, ts)",
		"CREATE TABLE IF NOT EXISTS freshsnap.countries (id String, code String, name String) ENGINE=MergeTree ORDER BY id",
		"CREATE TABLE IF NOT EXISTS freshsnap.markets (id String, code String, name String, country_id String) ENGINE=MergeTree ORDER BY id",
		"CREATE TABLE IF NOT EXISTS freshsnap.sectors (id String, name String) ENGINE=MergeTree ORDER BY id",
		"CREATE TABLE IF NOT EXISTS freshsnap.instruments (id String, pid String, symbol String, name String, market_id String, sector_id String, country_id String, status String) ENGINE=MergeTree ORDER BY id",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideTimeSeriesStore creates ClickHouse time-series storage.
func ProvideTimeSeriesStore(chClient *pkgch.Client, cfg *config.Config) repository.TimeSeriesStore {
	priceTable := cfg.ClickHouse.PriceTable
	if priceTable == "" {
		priceTable = cfg.ClickHouse.Database + ".price_points"
	}
	predictionTable := cfg.ClickHouse.PredictionTable
	if predictionTable == "" {
		predictionTable = cfg.ClickHouse.Database + ".prediction_points"
	}
	return internalrepo.NewClickHouseTimeSeries(chClient.DB(), priceTable, predictionTable)
}

// ProvideReferenceStore creates ClickHouse reference storage.
func ProvideReferenceStore(chClient *pkgch.Client) repository.ReferenceStore {
	return internalrepo.NewClickHouseReference(chClient.DB())
}

// ProvidePointPublisher creates Kafka publisher repository.
func ProvidePointPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.PricesTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaHandlers registers handlers for the price and prediction topics.
func ProvideKafkaHandlers(store repository.TimeSeriesStore, m repository.Metrics, cfg *config.Config) []pkgkafka.MessageHandler {
	handlers := make([]pkgkafka.MessageHandler, 0, 2)
	if cfg.Kafka.PricesTopic != "" {
		handlers = append(handlers, usecase.NewKafkaPricesHandler(cfg.Kafka.PricesTopic, store, m))
	}
	if cfg.Kafka.PredictionsTopic != "" {
		handlers = append(handlers, usecase.NewKafkaPredictionsHandler(cfg.Kafka.PredictionsTopic, store, m))
	}
	return handlers
}

// ProvideBytesCache selects the reference cache backend: Redis when enabled,
// the in-process TTL cache otherwise.
func ProvideBytesCache(cfg *config.Config) svcache.BytesCache {
	if cfg.Reference.Redis.Enabled {
		return svcache.NewRedisCache(svcache.RedisConfig{
			Addr:     cfg.Reference.Redis.Addr,
			Password: cfg.Reference.Redis.Password,
			DB:       cfg.Reference.Redis.DB,
		})
	}
	return svcache.NewTTLCache()
}

// ProvideCacheService creates the short-TTL stats cache backend: layered
// memory-over-Redis when Redis is configured, plain memory otherwise.
func ProvideCacheService(cfg *config.Config, log *applogger.Logger) pkgcache.Service {
	if cfg.Reference.Redis.Enabled {
		host, port := splitHostPort(cfg.Reference.Redis.Addr)
		redisCache, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(cfg.Reference.Redis.Password),
			pkgcache.WithRedisDB(cfg.Reference.Redis.DB),
		)
		if err != nil {
			log.Warn("redis stats cache unavailable, using memory", applogger.Error(err))
			return pkgcache.NewMemoryCache()
		}
		return pkgcache.NewLayeredCache(redisCache)
	}
	return pkgcache.NewMemoryCache()
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	return host, util.ParseIntDefault(portStr, 6379)
}

// ProvideReferenceCache creates the reference-data cache.
func ProvideReferenceCache(src repository.ReferenceStore, bytes svcache.BytesCache, cfg *config.Config, log *applogger.Logger) *refdata.Cache {
	return refdata.NewCache(src, bytes, cfg.Reference.TTL, log)
}

// ProvideStats creates the prediction counts stats cache.
func ProvideStats(src repository.ReferenceStore, cache pkgcache.Service, cfg *config.Config, log *applogger.Logger) *refdata.Stats {
	return refdata.NewStats(src, cache, cfg.Reference.CountsTTL, log)
}

// ProvideClassifier creates the freshness classifier for the configured
// timezone. Config validation already checked the zone name.
func ProvideClassifier(cfg *config.Config) (*freshness.Classifier, error) {
	if cfg.Engine.Timezone == "" {
		return freshness.NewClassifier(nil), nil
	}
	loc, err := time.LoadLocation(cfg.Engine.Timezone)
	if err != nil {
		return nil, fmt.Errorf("engine timezone: %w", err)
	}
	return freshness.NewClassifier(loc), nil
}

// ProvideSnapshotStore creates the published snapshot holder.
func ProvideSnapshotStore() *engine.SnapshotStore {
	return engine.NewSnapshotStore()
}

// ProvideProjector creates the snapshot projector.
func ProvideProjector(
	source repository.TimeSeriesStore,
	ref *refdata.Cache,
	class *freshness.Classifier,
	m repository.Metrics,
	log *applogger.Logger,
) *engine.Projector {
	return engine.NewProjector(source, ref, class, m, log)
}

// ProvideScheduler creates the refresh scheduler.
func ProvideScheduler(
	projector *engine.Projector,
	store *engine.SnapshotStore,
	cfg *config.Config,
	m repository.Metrics,
	log *applogger.Logger,
) *engine.Scheduler {
	return engine.NewScheduler(projector, store, cfg.Engine.RefreshInterval, cfg.Engine.ScanTimeout, m, log)
}

// ProvideSearchClient creates the search collaborator client.
func ProvideSearchClient(cfg *config.Config, log *applogger.Logger) *search.Client {
	timeout := cfg.Search.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	httpClient := xhttp.NewClient(xhttp.WithTimeout(timeout))
	return search.NewClient(httpClient, cfg.Search.BaseURL, log)
}

// ProvideSnapshotQuery creates the read-surface use case.
func ProvideSnapshotQuery(
	store *engine.SnapshotStore,
	ref *refdata.Cache,
	stats *refdata.Stats,
	searchCli *search.Client,
	cfg *config.Config,
) *usecase.SnapshotQuery {
	return usecase.NewSnapshotQuery(store, ref, stats, searchCli, staleThreshold(cfg))
}

func staleThreshold(cfg *config.Config) time.Duration {
	interval := cfg.Engine.RefreshInterval
	if interval <= 0 {
		interval = time.Minute
	}
	mult := cfg.Engine.StaleMultiplier
	if mult <= 0 {
		mult = 3
	}
	return time.Duration(mult) * interval
}

// ProvideOps creates the operator action use case. The warm lock rides the
// same cache backend as the stats aggregates, so with Redis enabled it is
// cluster-wide.
func ProvideOps(ref *refdata.Cache, stats *refdata.Stats, sched *engine.Scheduler, cache pkgcache.Service, searchCli *search.Client, log *applogger.Logger) *usecase.Ops {
	return usecase.NewOps(ref, stats, sched, cache, searchCli, log)
}

// ProvideHTTPHandler groups all route handlers.
func ProvideHTTPHandler(
	log *applogger.Logger,
	query *usecase.SnapshotQuery,
	ops *usecase.Ops,
	ref *refdata.Cache,
) xhttp.Handler {
	return xhttp.Handlers{
		api.NewSnapshotEchoHandler(log, query),
		api.NewReferenceEchoHandler(log, ref),
		api.NewOpsEchoHandler(log, ops, ratelimit.New()),
	}
}

// ProvidePointProcessor creates the point processor use case.
func ProvidePointProcessor(
	pub repository.Publisher,
	store repository.TimeSeriesStore,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.PointProcessor {
	return usecase.NewPointProcessor(
		pub,
		store,
		m,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvidePointCollector creates the feed collector, or nil when the feed is
// disabled in config.
func ProvidePointCollector(
	cfg *config.Config,
	processor *usecase.PointProcessor,
	m repository.Metrics,
) *usecase.PointCollector {
	if !cfg.Feed.Enabled {
		return nil
	}
	stream := feed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.PIDs,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
	pipe := mid.NewRealtimePipeline(processor, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewPointCollector(stream, processor, m, pipe)
}

// kafkaLogPublisher adapts the Kafka producer to the aggregated log sink.
type kafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

func (k kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.producer.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	scheduler *engine.Scheduler,
	collector *usecase.PointCollector,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	handlers []pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	searchCli *search.Client,
	httpHandler xhttp.Handler,
	processor *usecase.PointProcessor,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	if producer != nil && cfg.Kafka.ErrorLogsTopic != "" {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.ErrorLogsTopic,
			Publisher:      kafkaLogPublisher{producer: producer},
		})
	}
	app := server.New(cfg, log, scheduler, collector, consumer, handlers, chClient, searchCli, httpHandler)
	app.PointProc = processor
	return app
}
