package di

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	kafkago "github.com/segmentio/kafka-go"

	"TravelFX/internal/domain/repository"
	"TravelFX/internal/handler/api"
	mid "TravelFX/internal/middleware"
	internalrepo "TravelFX/internal/repository"
	"TravelFX/internal/scheduler"
	"TravelFX/internal/service/erapi"
	"TravelFX/internal/service/ratelimit"
	"TravelFX/internal/service/yahoo"
	"TravelFX/internal/services/forecasting"
	"TravelFX/internal/usecase"
	pkgcache "TravelFX/pkg/cache"
	pkgch "TravelFX/pkg/clickhouse"
	"TravelFX/pkg/config"
	xhttp "TravelFX/pkg/http"
	pkgkafka "TravelFX/pkg/kafka"
	"TravelFX/pkg/logger"
	"TravelFX/pkg/metrics"
	"TravelFX/pkg/queue"
	"TravelFX/pkg/server"
)

// forecastRunTable holds one row per forecast day.
const forecastRunTable = "forecast_runs"

// ProvideLogger creates the app logger. With the collector enabled, repeated
// errors are aggregated and shipped through producer.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Collector.Enabled && producer != nil {
		l.AddCollector(&logger.CollectionConfig{
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.CountThreshold,
			Topic:          cfg.Kafka.CollectorTopic,
			Publisher:      producer,
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideRootContext creates the context cancelled at shutdown.
func ProvideRootContext() *server.RootContext {
	return server.NewRootContext()
}

// ProvideKafkaProducer creates a Kafka producer, or nil when no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
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

// ProvideClickHouseClient connects only when forecast runs are stored in ClickHouse.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Backend.Type != usecase.BackendClickHouse {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideRunStorage creates the forecast run table and returns its storage.
func ProvideRunStorage(client *pkgch.Client, cfg *config.Config) (repository.Storage, error) {
	if client == nil {
		return nil, nil
	}
	store := internalrepo.NewClickHouseStorage(client.DB(), cfg.ClickHouse.Database, forecastRunTable)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideRunPublisher publishes forecast runs when the kafka backend is selected.
func ProvideRunPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil || cfg.Backend.Type != usecase.BackendKafka {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideForecastProcessor routes runs to the configured backend.
func ProvideForecastProcessor(
	pub repository.Publisher,
	store repository.Storage,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.ForecastProcessor {
	return usecase.NewForecastProcessor(pub, store, m, cfg.Backend.Type)
}

// ProvideSinkPipeline buffers runs between the forecast service and the
// processor. It is nil when no backend records runs.
func ProvideSinkPipeline(proc *usecase.ForecastProcessor, m repository.Metrics, l *logger.Logger, cfg *config.Config) *mid.SinkPipeline {
	if cfg.Backend.Type == usecase.BackendNone {
		return nil
	}
	return mid.NewSinkPipeline(proc, m, l,
		mid.WithBufferSize(cfg.Backend.BufferSize),
		mid.WithBatch(cfg.Backend.BatchSize, cfg.Backend.BatchTimeout),
	)
}

// ProvideCache layers memory over Redis when Redis is enabled and reachable,
// otherwise it falls back to the in-process cache.
func ProvideCache(cfg *config.Config, l *logger.Logger) pkgcache.Service {
	if cfg.Redis.Enabled {
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisAddr(cfg.Redis.Addr),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
			pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err == nil {
			return pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemoryTTL(cfg.Redis.L1TTL))
		}
		l.Warn("redis unavailable, using memory cache", logger.String("addr", cfg.Redis.Addr), logger.Error(err))
	}
	return pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(1024))
}

// ProvideMarketData creates the Yahoo daily history client.
func ProvideMarketData(cfg *config.Config, l *logger.Logger) repository.MarketData {
	return yahoo.NewClient(l,
		yahoo.WithBaseURL(cfg.Yahoo.BaseURL),
		yahoo.WithTimeout(cfg.Yahoo.Timeout),
	)
}

// ProvideSpotRates creates the latest-rates client.
func ProvideSpotRates(cfg *config.Config, l *logger.Logger) repository.SpotRates {
	return erapi.NewClient(l,
		erapi.WithBaseURL(cfg.Rates.BaseURL),
		erapi.WithAPIKey(cfg.Rates.APIKey),
		erapi.WithTTL(cfg.Rates.TTL),
		erapi.WithTimeout(cfg.Rates.Timeout),
	)
}

func ProvideHistoryFetcher(md repository.MarketData, l *logger.Logger, cfg *config.Config) usecase.SeriesFetcher {
	return usecase.NewHistoryFetcher(md, l,
		usecase.WithLookbackYears(cfg.Forecast.LookbackYears),
		usecase.WithMinObservations(cfg.Forecast.MinObservations),
	)
}

func ProvideRateResolver(fetcher usecase.SeriesFetcher, l *logger.Logger, cfg *config.Config) usecase.RateResolver {
	return usecase.NewCrossRateResolver(fetcher, cfg.Forecast.Anchor, cfg.Forecast.SyntheticVolPct, l)
}

// ProvideModelFactory builds the configured forecasting model per request.
func ProvideModelFactory(cfg *config.Config) (*forecasting.Factory, error) {
	f := cfg.Forecast
	return forecasting.NewFactory(forecasting.FactoryConfig{
		Model: f.Model,
		Trend: forecasting.TrendConfig{
			Window:         f.Trend.Window,
			NoiseAmplitude: f.Trend.NoiseAmplitude,
		},
		Sequence: forecasting.SequenceConfig{
			InputChunk:   f.Sequence.InputChunk,
			OutputChunk:  f.Sequence.OutputChunk,
			HiddenSize:   f.Sequence.HiddenSize,
			Epochs:       f.Sequence.Epochs,
			BatchSize:    f.Sequence.BatchSize,
			LearningRate: f.Sequence.LearningRate,
		},
		Seed:         f.Seed,
		SequenceSeed: f.Sequence.Seed,
	})
}

// ProvidePool creates the bounded pool every forecast computation runs on.
func ProvidePool(cfg *config.Config, l *logger.Logger, m repository.Metrics) *queue.Pool {
	return queue.NewPool(l, &queue.QueueConfig{
		Workers:       cfg.Forecast.Pool.Workers,
		QueueSize:     cfg.Forecast.Pool.QueueSize,
		SubmitTimeout: cfg.Forecast.Pool.SubmitTimeout,
	}, queue.WithDepthObserver(m.RecordQueueDepth))
}

func ProvideForecastService(
	fetcher usecase.SeriesFetcher,
	resolver usecase.RateResolver,
	factory *forecasting.Factory,
	pool *queue.Pool,
	m repository.Metrics,
	c pkgcache.Service,
	pipeline *mid.SinkPipeline,
	l *logger.Logger,
	cfg *config.Config,
) *usecase.ForecastService {
	opts := []usecase.ServiceOption{usecase.WithCache(c)}
	if pipeline != nil {
		opts = append(opts, usecase.WithRunSink(pipeline))
	}
	return usecase.NewForecastService(fetcher, resolver, factory, pool, m, usecase.ServiceConfig{
		Tradable:       cfg.Forecast.Tradable,
		MaxHorizonDays: cfg.Forecast.MaxHorizonDays,
		MaxMonths:      cfg.Forecast.MaxMonths,
		CacheTTL:       cfg.Forecast.CacheTTL,
		RequestTimeout: cfg.Forecast.RequestTimeout,
	}, l, opts...)
}

// ProvideHTTPHandler groups the forecast and currency routes.
func ProvideHTTPHandler(svc *usecase.ForecastService, rates repository.SpotRates, l *logger.Logger, cfg *config.Config) xhttp.Handler {
	return xhttp.Handlers{
		api.NewForecastsEchoHandler(l, svc),
		api.NewCurrenciesEchoHandler(l, rates, cfg.Forecast.Tradable),
	}
}

// ProvideMiddleware rate limits clients by IP.
func ProvideMiddleware(cfg *config.Config) []echo.MiddlewareFunc {
	rl := cfg.Server.RateLimit
	if rl.RPS <= 0 {
		return nil
	}
	return []echo.MiddlewareFunc{ratelimit.Middleware(ratelimit.New(), float64(rl.Burst), rl.RPS)}
}

// ProvideKafkaConsumer creates the warm-up request consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger, m repository.Metrics) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	cc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cc.GroupID),
		pkgkafka.WithConsumerWorkers(cc.Workers),
		pkgkafka.WithConsumerBufferSize(cc.BufferSize),
		pkgkafka.WithConsumerRetry(cc.RetryMax, cc.BackoffMin, cc.BackoffMax),
		pkgkafka.WithConsumerDLQ(cc.DLQTopic),
		pkgkafka.WithConsumerFetch(cc.MinBytes, cc.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(
		pkgkafka.TraceHook(),
		pkgkafka.HookFuncs{Err: func(context.Context, string, kafkago.Message, []byte, error) {
			m.RecordError("consume")
		}},
	))
	return consumer, nil
}

// ProvideRequestsHandler handles the warm-up request topic.
func ProvideRequestsHandler(svc *usecase.ForecastService, m repository.Metrics, l *logger.Logger, cfg *config.Config) pkgkafka.MessageHandler {
	return usecase.NewForecastRequestsHandler(cfg.Kafka.RequestTopic, svc, m, l)
}

// ProvideWarmer schedules the nightly monthly refresh, or returns nil when disabled.
func ProvideWarmer(root *server.RootContext, svc *usecase.ForecastService, c pkgcache.Service, l *logger.Logger, cfg *config.Config) (*scheduler.Warmer, error) {
	w := cfg.Forecast.Warm
	if !w.Enabled {
		return nil, nil
	}
	warmer, err := scheduler.NewWarmer(root.Ctx, svc, w.Pairs, w.Months, cfg.Forecast.RequestTimeout, l)
	if err != nil {
		return nil, err
	}
	// The lock outlives a full round so a slow replica is never overlapped.
	return warmer.WithLock(c, time.Duration(len(w.Pairs)+1)*cfg.Forecast.RequestTimeout), nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	root *server.RootContext,
	handler xhttp.Handler,
	middleware []echo.MiddlewareFunc,
	pool *queue.Pool,
	pipeline *mid.SinkPipeline,
	proc *usecase.ForecastProcessor,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	requests pkgkafka.MessageHandler,
	warmer *scheduler.Warmer,
	c pkgcache.Service,
	ch *pkgch.Client,
) *server.App {
	return server.New(cfg, l, server.Components{
		Root:       root,
		Handler:    handler,
		Middleware: middleware,
		Pool:       pool,
		Pipeline:   pipeline,
		Processor:  proc,
		Producer:   producer,
		Consumer:   consumer,
		Requests:   requests,
		Warmer:     warmer,
		Cache:      c,
		ClickHouse: ch,
	})
}
