//go:build wireinject
// +build wireinject

package di

import (
	"FreshSnap/pkg/config"
	"FreshSnap/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideTimeSeriesStore,
		ProvideReferenceStore,
		ProvidePointPublisher,

		// Caches
		ProvideBytesCache,
		ProvideCacheService,
		ProvideReferenceCache,
		ProvideStats,

		// Engine
		ProvideClassifier,
		ProvideSnapshotStore,
		ProvideProjector,
		ProvideScheduler,

		// Collaborators
		ProvideSearchClient,

		// Use cases
		ProvideSnapshotQuery,
		ProvideOps,
		ProvidePointProcessor,
		ProvidePointCollector,
		ProvideKafkaHandlers,

		// HTTP
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
