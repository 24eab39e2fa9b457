package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"KabuFeed/internal/middleware"
	"KabuFeed/internal/scheduler"
	"KabuFeed/internal/usecase"
	pkgch "KabuFeed/pkg/clickhouse"
	"KabuFeed/pkg/config"
	xhttp "KabuFeed/pkg/http"
	pkgkafka "KabuFeed/pkg/kafka"
	applogger "KabuFeed/pkg/logger"
	"KabuFeed/pkg/queue"

	"github.com/labstack/echo/v4"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	handlers []xhttp.Handler
	sched    *scheduler.Scheduler
	consumer *pkgkafka.Consumer
	kh       pkgkafka.MessageHandler
	chClient *pkgch.Client

	httpServer *xhttp.Server

	Ingest      *usecase.IngestUsecase
	FeatureProc *usecase.FeatureProcessor
	Pipeline    *middleware.FeaturePipeline
	Queue       *queue.RedisQueue
}

// routeGroup registers several route groups on one Echo instance.
type routeGroup []xhttp.Handler

func (g routeGroup) RegisterRoutes(e *echo.Echo) {
	for _, h := range g {
		h.RegisterRoutes(e)
	}
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	sched *scheduler.Scheduler,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		sched:    sched,
		consumer: consumer,
		kh:       kh,
		chClient: chClient,
	}
}

// AddHTTPHandler appends a route group mounted at server start.
func (a *App) AddHTTPHandler(h xhttp.Handler) {
	if h != nil {
		a.handlers = append(a.handlers, h)
	}
}

// Backfill replays the given date range through the feature tracker
// before the server starts, warming rolling state.
func (a *App) Backfill(ctx context.Context, from, to string) error {
	if a.Ingest == nil {
		return nil
	}
	_, err := a.Ingest.Backfill(ctx, from, to)
	return err
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverOpts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	}
	if a.cfg.Metrics.Enabled {
		serverOpts = append(serverOpts, xhttp.WithRequestMetrics(a.log, time.Second))
	}
	a.httpServer = xhttp.NewServer(routeGroup(a.handlers), serverOpts...)

	if a.Pipeline != nil {
		a.Pipeline.Start(ctx)
	}

	if a.Queue != nil {
		if err := a.Queue.Start(); err != nil {
			a.log.Error("job queue start error", applogger.Error(err))
			return err
		}
	}

	// Consumer side of the kafka backend: drain feature rows to storage.
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.sched != nil {
		if err := a.sched.Register(a.cfg.Ingest.Schedule); err != nil {
			return err
		}
		a.sched.Start()
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.sched != nil {
		a.sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.Queue != nil {
		if err := a.Queue.Stop(ctx); err != nil {
			a.log.Warn("job queue stop error", applogger.Error(err))
		}
	}

	if a.Pipeline != nil {
		a.Pipeline.Stop()
	}

	if a.FeatureProc != nil {
		a.FeatureProc.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
