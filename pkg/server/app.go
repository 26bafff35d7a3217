package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"FreshSnap/internal/engine"
	"FreshSnap/internal/service/search"
	"FreshSnap/internal/usecase"
	pkgch "FreshSnap/pkg/clickhouse"
	"FreshSnap/pkg/config"
	xhttp "FreshSnap/pkg/http"
	pkgkafka "FreshSnap/pkg/kafka"
	applogger "FreshSnap/pkg/logger"
)

// App encapsulates the entire application lifecycle: the refresh scheduler,
// the optional feed collector and Kafka consumer, and the HTTP surface.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	scheduler   *engine.Scheduler
	collector   *usecase.PointCollector
	consumer    *pkgkafka.Consumer
	handlers    []pkgkafka.MessageHandler
	chClient    *pkgch.Client
	searchCli   *search.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	PointProc   *usecase.PointProcessor
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	scheduler *engine.Scheduler,
	collector *usecase.PointCollector,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	searchCli *search.Client,
	httpHandler xhttp.Handler,
) *App {
	return &App{
		cfg:         cfg,
		logger:      logger,
		scheduler:   scheduler,
		collector:   collector,
		consumer:    consumer,
		handlers:    handlers,
		chClient:    chClient,
		searchCli:   searchCli,
		httpHandler: httpHandler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	// Search being down is degraded service, not a startup failure.
	if a.searchCli != nil {
		if a.searchCli.Probe(ctx) {
			l.Info("search collaborator available")
		} else {
			l.Warn("search collaborator unavailable, falling back to substring matching")
		}
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start the refresh scheduler; it publishes the first snapshot before
	// the first tick.
	a.scheduler.Start(ctx)
	l.Info("refresh scheduler started")

	// Start feed collector if configured
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("collector error", applogger.Error(err))
			}
		}()
		l.Info("feed collector started", applogger.Strings("pids", a.cfg.Feed.PIDs))
	}

	// Start consumer if configured
	if a.consumer != nil && len(a.handlers) > 0 {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
			l.Info("kafka handler registered", applogger.String("topic", h.Topic()))
		}
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger
	if l == nil {
		var err error
		l, err = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
		if err != nil {
			log.Printf("failed to create logger: %v", err)
			return err
		}
	}
	l.Info("shutting down...")

	// Stop the scheduler first so no cycle publishes mid-shutdown
	a.scheduler.Stop()

	// Stop collector (pipeline + stream)
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close point processor resources (publisher/storage)
	if a.PointProc != nil {
		a.PointProc.Close()
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
