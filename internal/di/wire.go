//go:build wireinject
// +build wireinject

package di

import (
	"TravelFX/pkg/config"
	"TravelFX/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideRootContext,

		// Run recording
		ProvideClickHouseClient,
		ProvideRunStorage,
		ProvideRunPublisher,
		ProvideForecastProcessor,
		ProvideSinkPipeline,

		// Forecasting
		ProvideCache,
		ProvideMarketData,
		ProvideSpotRates,
		ProvideHistoryFetcher,
		ProvideRateResolver,
		ProvideModelFactory,
		ProvidePool,
		ProvideForecastService,

		// Intake
		ProvideHTTPHandler,
		ProvideMiddleware,
		ProvideKafkaConsumer,
		ProvideRequestsHandler,
		ProvideWarmer,

		ProvideApp,
	)
	return &server.App{}, nil
}
