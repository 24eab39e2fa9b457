//go:build wireinject
// +build wireinject

package di

import (
	"KabuFeed/pkg/config"
	"KabuFeed/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideCredentials,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideClickHouseStorage,
		ProvideKafkaProducer,

		// Repositories
		ProvideMarketSource,
		ProvideStorage,
		ProvideFeatureStore,
		ProvidePublisher,

		// Kafka consumer path
		ProvideKafkaConsumer,
		ProvideKafkaFeaturesHandler,

		// Use cases
		ProvideTracker,
		ProvideFeatureProcessor,
		ProvideFeaturePipeline,
		ProvideIngest,
		ProvidePredictor,
		ProvideRanking,
		ProvideSharedCache,
		ProvideMarketQuery,
		ProvideBackfillJob,
		ProvideJobQueue,

		// HTTP surface
		ProvideHub,
		ProvideAPIHandler,
		ProvideScheduler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
