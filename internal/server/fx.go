// Package server provides the core application server and dependency wiring.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/articles-api/internal/api"
	"github.com/JakeFAU/articles-api/internal/article"
	"github.com/JakeFAU/articles-api/internal/clock/system"
	"github.com/JakeFAU/articles-api/internal/config"
	"github.com/JakeFAU/articles-api/internal/dispatcher"
	"github.com/JakeFAU/articles-api/internal/id/uuid"
	"github.com/JakeFAU/articles-api/internal/metrics"
	kafkapublisher "github.com/JakeFAU/articles-api/internal/publisher/kafka"
	logpublisher "github.com/JakeFAU/articles-api/internal/publisher/log"
	memorypublisher "github.com/JakeFAU/articles-api/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/articles-api/internal/publisher/pubsub"
	queueMemory "github.com/JakeFAU/articles-api/internal/queue/memory"
	storeMemory "github.com/JakeFAU/articles-api/internal/storage/memory"
	pgstore "github.com/JakeFAU/articles-api/internal/storage/postgres"
	"github.com/JakeFAU/articles-api/internal/telemetry"
	"github.com/JakeFAU/articles-api/internal/worker"
)

// Version is reported on traces; overridden at link time.
var Version = "dev"

// Store is the article store plus resource release.
type Store interface {
	article.Store
	Close()
}

// EventPublisher is an article.Publisher that owns a connection.
type EventPublisher interface {
	article.Publisher
	Close() error
}

// App contains the application's dependencies.
type App struct {
	cfg            *config.Config
	logger         *zap.Logger
	store          Store
	publisher      EventPublisher
	queue          *queueMemory.Queue
	dispatch       *dispatcher.Dispatcher
	apiServer      *api.Server
	tracerShutdown func(context.Context) error
}

// Build creates the application's dependencies: tracing, the article store
// (Postgres with migrations, or memory), the event publisher and the worker pool.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("building application dependencies",
		zap.String("addr", cfg.Addr()),
		zap.Int("workers", cfg.Worker.Count),
		zap.String("events_backend", cfg.Events.Backend),
	)
	metrics.Init()

	tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		Exporter:       cfg.Telemetry.Exporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("tracer init failed: %w", err)
	}

	store, err := setupStore(ctx, cfg, logger)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	publisher, err := setupPublisher(ctx, cfg, logger)
	if err != nil {
		store.Close()
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	app := newApp(cfg, logger, store, publisher)
	app.tracerShutdown = tp.Shutdown
	return app, nil
}

// newApp assembles the queue, workers and HTTP server around store and publisher.
func newApp(cfg *config.Config, logger *zap.Logger, store Store, publisher EventPublisher) *App {
	app := &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		publisher: publisher,
		queue:     queueMemory.NewQueue(cfg.Worker.QueueDepth),
	}

	clock := system.New()
	workerCfg := worker.Config{Topic: cfg.Events.Topic, PublishTimeout: cfg.Events.PublishTimeout}
	workers := make([]*worker.Worker, 0, cfg.Worker.Count)
	for i := 0; i < cfg.Worker.Count; i++ {
		workers = append(workers, worker.New(
			i,
			app.queue,
			store,
			publisher,
			clock,
			workerCfg,
			logger.Named("worker"),
		))
	}
	app.dispatch = dispatcher.New(app.queue, workers)
	app.apiServer = api.NewServer(app.dispatch, store, cfg.Server, logger.Named("api"))
	return app
}

func setupStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	if cfg.DB.Backend == config.DBBackendMemory {
		logger.Warn("using in-memory article store, rows are lost on exit")
		return storeMemory.NewArticleStore(uuid.New()), nil
	}

	if cfg.DB.MigrateOnStart {
		if err := pgstore.ApplyMigrations(ctx, cfg.DB.DSN, logger.Named("migrations")); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}

	store, err := pgstore.NewArticleStore(ctx, pgstore.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
		MaxConnLifetime: cfg.DB.MaxConnLifetime,
		ConnectTimeout:  cfg.DB.ConnectTimeout,
	}, uuid.New())
	if err != nil {
		return nil, fmt.Errorf("article store init failed: %w", err)
	}
	logger.Info("article store initialized", zap.Int32("max_conns", cfg.DB.MaxConns))
	return store, nil
}

func setupPublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (EventPublisher, error) {
	switch cfg.Events.Backend {
	case config.EventsBackendPubSub:
		client, err := gcppublisher.NewClient(ctx, cfg.Events.PubSubProject)
		if err != nil {
			return nil, fmt.Errorf("pubsub client init failed: %w", err)
		}
		logger.Info("Pub/Sub publisher initialized",
			zap.String("project", cfg.Events.PubSubProject),
			zap.String("topic", cfg.Events.Topic),
		)
		return gcppublisher.New(client), nil
	case config.EventsBackendKafka:
		writer, err := kafkapublisher.NewWriter(cfg.Events.KafkaBrokers)
		if err != nil {
			return nil, fmt.Errorf("kafka writer init failed: %w", err)
		}
		logger.Info("Kafka publisher initialized",
			zap.Strings("brokers", cfg.Events.KafkaBrokers),
			zap.String("topic", cfg.Events.Topic),
		)
		return kafkapublisher.New(writer), nil
	case config.EventsBackendMemory:
		logger.Warn("using in-memory event publisher, events are not delivered anywhere")
		return memorypublisher.New(), nil
	default:
		return logpublisher.New(logger.Named("events")), nil
	}
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run listens on the configured address and serves until SIGINT/SIGTERM or
// ctx ends.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.Addr(), err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the worker pool and the HTTP server on ln, then shuts down in
// order: HTTP server, workers, queue, publisher, store.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workerCtx, cancelWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWorkers()
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		a.logger.Info("dispatcher started", zap.Int("workers", a.dispatch.Size()))
		a.dispatch.Run(workerCtx)
	}()

	srv := &http.Server{
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	cancelWorkers()
	<-dispatchDone

	closeErr := a.Close(shutdownCtx)
	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return closeErr
	}
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}

// Close releases the queue, publisher, store and tracer. Safe to call on a
// partially built App.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.queue != nil {
		a.queue.Close()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("publisher close failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
