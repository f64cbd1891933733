package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/CarCatalog/internal/config"
	"github.com/utafrali/CarCatalog/internal/event"
	handler "github.com/utafrali/CarCatalog/internal/handler/http"
	"github.com/utafrali/CarCatalog/internal/mirror"
	esmirror "github.com/utafrali/CarCatalog/internal/mirror/elasticsearch"
	memmirror "github.com/utafrali/CarCatalog/internal/mirror/memory"
	redismirror "github.com/utafrali/CarCatalog/internal/mirror/redis"
	"github.com/utafrali/CarCatalog/internal/notify"
	"github.com/utafrali/CarCatalog/internal/repository/postgres"
	"github.com/utafrali/CarCatalog/internal/service"
	memstorage "github.com/utafrali/CarCatalog/internal/storage/memory"
	s3storage "github.com/utafrali/CarCatalog/internal/storage/s3"
	"github.com/utafrali/CarCatalog/migrations"
	"github.com/utafrali/CarCatalog/pkg/database"
	"github.com/utafrali/CarCatalog/pkg/health"
	pkgkafka "github.com/utafrali/CarCatalog/pkg/kafka"
	"github.com/utafrali/CarCatalog/pkg/tracing"
	"github.com/utafrali/CarCatalog/web"
)

// App wires together all dependencies and runs the catalog server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	relay          *service.MirrorRelay
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.Init(ctx, tracing.Config{
		Enabled:      cfg.OTELEnabled,
		ServiceName:  "car-catalog",
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTELEndpoint,
		SampleRate:   cfg.OTELSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, tracerShutdown: tracerShutdown}
	if err := a.build(ctx); err != nil {
		a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL")
	if err := prometheus.Register(database.NewPoolStatsCollector(pool)); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	obs := &database.QueryObserver{
		SlowThreshold: time.Duration(cfg.SlowQueryThreshold) * time.Millisecond,
		Logger:        logger,
	}
	cars := postgres.NewCarRepository(pool, obs)
	reviews := postgres.NewReviewRepository(pool, obs)
	outbox := postgres.NewOutboxRepository(pool, obs)

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	syncer, err := a.newMirror(ctx)
	if err != nil {
		return err
	}
	opts := service.Options{
		Notifier:      notify.New(cfg.NotifyURL, cfg.NotifyTimeout, logger),
		MaxImageBytes: cfg.UploadMaxSize,
	}
	if syncer != nil {
		opts.Mirror = syncer
		healthHandler.Register("mirror", syncer.Ping)
	}

	routerCfg := handler.RouterConfig{
		Assets:         web.FS,
		MaxUploadBytes: cfg.UploadMaxSize,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}
	switch cfg.BlobBackend {
	case config.BlobS3:
		s, err := s3storage.New(s3storage.Config{
			Endpoint:  cfg.BlobEndpoint,
			Region:    cfg.BlobRegion,
			Bucket:    cfg.BlobBucket,
			AccessKey: cfg.BlobAccessKey,
			SecretKey: cfg.BlobSecretKey,
			URLTTL:    cfg.BlobURLTTL,
		})
		if err != nil {
			return fmt.Errorf("init s3 storage: %w", err)
		}
		opts.Images = s
		healthHandler.Register("images", s.Ping)
	case config.BlobMemory:
		s := memstorage.New("/images")
		opts.Images = s
		routerCfg.Images = s.Handler("/images/")
	}
	if opts.Images == nil {
		logger.Info("image storage disabled")
	}

	var pub event.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := a.producer.Ping(ctx); err != nil {
			logger.Warn("kafka unreachable, continuing in degraded mode", slog.String("error", err.Error()))
		}
		pub = a.producer
		healthHandler.Register("kafka", a.producer.Ping)
	}
	opts.Producer = event.NewProducer(pub, cfg.KafkaTopic, logger)

	catalog := service.NewCatalogService(cars, reviews, outbox, opts, logger)

	if syncer != nil {
		a.relay = service.NewMirrorRelay(outbox, cars, syncer, service.RelayConfig{
			Interval:    cfg.RelayInterval,
			BatchSize:   cfg.RelayBatch,
			MaxAttempts: cfg.RelayMaxAttempts,
		}, logger)
	}

	router, err := handler.NewRouter(catalog, healthHandler, routerCfg, logger)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}
	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// newMirror returns nil when the mirror is disabled.
func (a *App) newMirror(ctx context.Context) (*mirror.Syncer, error) {
	cfg, logger := a.cfg, a.logger

	var store mirror.Store
	switch cfg.MirrorBackend {
	case config.MirrorRedis:
		client, err := database.NewRedisClient(ctx, cfg.MirrorURL, cfg.MirrorKey)
		if err != nil {
			// Start anyway; pending writes stay in the outbox until Redis is back.
			logger.Warn("redis mirror unreachable at startup", slog.String("error", err.Error()))
			opts, perr := redis.ParseURL(cfg.MirrorURL)
			if perr != nil {
				return nil, fmt.Errorf("parse mirror url: %w", perr)
			}
			if cfg.MirrorKey != "" {
				opts.Password = cfg.MirrorKey
			}
			client = redis.NewClient(opts)
		}
		a.redis = client
		store = redismirror.NewStore(client, redismirror.DefaultPrefix)
	case config.MirrorElasticsearch:
		s, err := esmirror.New(ctx, esmirror.Config{URL: cfg.MirrorURL, APIKey: cfg.MirrorKey, Index: cfg.MirrorIndex}, logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch mirror: %w", err)
		}
		store = s
	case config.MirrorMemory:
		store = memmirror.NewStore()
	default:
		logger.Info("mirror store disabled")
		return nil, nil
	}
	logger.Info("mirror store ready", slog.String("backend", cfg.MirrorBackend))
	return mirror.NewSyncer(store, cfg.MirrorTimeout, logger), nil
}

// Run starts the HTTP server and the mirror relay, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	relayCtx, stopRelay := context.WithCancel(context.WithoutCancel(ctx))
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		if a.relay != nil {
			a.relay.Run(relayCtx)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	return errors.Join(runErr, a.shutdown(stopRelay, relayDone))
}

// shutdown stops components in order: HTTP drain, relay, Kafka producer,
// Redis, PostgreSQL, tracer.
func (a *App) shutdown(stopRelay context.CancelFunc, relayDone <-chan struct{}) error {
	a.logger.Info("shutting down application...")

	var errs []error
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	stopRelay()
	<-relayDone

	errs = append(errs, a.closeResources())
	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeResources() error {
	var errs []error
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
