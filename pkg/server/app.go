package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"

	mid "TravelFX/internal/middleware"
	"TravelFX/internal/scheduler"
	"TravelFX/internal/usecase"
	pkgcache "TravelFX/pkg/cache"
	pkgch "TravelFX/pkg/clickhouse"
	"TravelFX/pkg/config"
	xhttp "TravelFX/pkg/http"
	pkgkafka "TravelFX/pkg/kafka"
	applogger "TravelFX/pkg/logger"
	"TravelFX/pkg/queue"
)

// RootContext is cancelled when shutdown begins so background work such as
// a running warm-up stops between pairs.
type RootContext struct {
	Ctx    context.Context
	Cancel context.CancelFunc
}

// NewRootContext returns a fresh cancellable context.
func NewRootContext() *RootContext {
	ctx, cancel := context.WithCancel(context.Background())
	return &RootContext{Ctx: ctx, Cancel: cancel}
}

// Components are the long-lived parts the App starts and stops. Optional
// parts are nil when disabled by config.
type Components struct {
	Root       *RootContext
	Handler    xhttp.Handler
	Middleware []echo.MiddlewareFunc
	Pool       *queue.Pool
	Pipeline   *mid.SinkPipeline
	Processor  *usecase.ForecastProcessor
	Producer   *pkgkafka.Producer
	Consumer   *pkgkafka.Consumer
	Requests   pkgkafka.MessageHandler
	Warmer     *scheduler.Warmer
	Cache      pkgcache.Service
	ClickHouse *pkgch.Client
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	c          Components
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, c Components) *App {
	return &App{cfg: cfg, l: l, c: c}
}

// Run starts every component and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(a.c.Root.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.start(); err != nil {
		_ = a.shutdown()
		return err
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) start() error {
	a.c.Pool.Start()
	if a.c.Pipeline != nil {
		a.c.Pipeline.Start(a.c.Root.Ctx)
	}

	if a.c.Consumer != nil && a.c.Requests != nil {
		a.c.Consumer.RegisterHandler(a.c.Requests)
		if err := a.c.Consumer.Start(); err != nil {
			return err
		}
	}

	if a.c.Warmer != nil {
		if err := a.c.Warmer.Register(a.cfg.Forecast.Warm.Schedule); err != nil {
			return err
		}
		a.c.Warmer.Start()
	}

	opts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(a.cfg.Server.SlowThreshold),
		xhttp.WithMiddleware(a.c.Middleware...),
	}
	if a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(a.cfg.Metrics.Path))
	} else {
		opts = append(opts, xhttp.WithMetricsPath(""))
	}
	a.httpServer = xhttp.NewServer(a.l, a.c.Handler, opts...)

	a.l.Info("travelfx started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("model", a.cfg.Forecast.Model),
		applogger.String("backend", a.cfg.Backend.Type))
	return a.httpServer.Start()
}

// shutdown stops intake first, then the workers, then flushes and closes the sinks.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}

	a.c.Root.Cancel()

	if a.c.Warmer != nil {
		a.c.Warmer.Stop()
	}
	if a.c.Consumer != nil {
		if err := a.c.Consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if err := a.c.Pool.Stop(ctx); err != nil {
		a.l.Warn("forecast pool stop error", applogger.Error(err))
	}
	if a.c.Pipeline != nil {
		a.c.Pipeline.Stop()
	}
	if a.c.Processor != nil {
		a.c.Processor.Close()
	}
	if a.c.ClickHouse != nil {
		if err := a.c.ClickHouse.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.c.Cache != nil {
		if err := a.c.Cache.Close(); err != nil {
			a.l.Warn("cache close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	a.l.RemoveCollector()
	if a.c.Producer != nil {
		if err := a.c.Producer.Close(); err != nil {
			a.l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return nil
}
