package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	"github.com/Reportify/teleopsold-sub002/internal/core/port"
	"github.com/Reportify/teleopsold-sub002/internal/infra/config"
	"github.com/Reportify/teleopsold-sub002/internal/infra/database"
	kafkainfra "github.com/Reportify/teleopsold-sub002/internal/infra/kafka"
	"github.com/Reportify/teleopsold-sub002/internal/infra/logger"
	redisinfra "github.com/Reportify/teleopsold-sub002/internal/infra/redis"
	"github.com/Reportify/teleopsold-sub002/internal/infra/security"
	"github.com/Reportify/teleopsold-sub002/internal/infra/telemetry"
	memoryrepo "github.com/Reportify/teleopsold-sub002/internal/repository/memory"
	postgresrepo "github.com/Reportify/teleopsold-sub002/internal/repository/postgres"
	redisrepo "github.com/Reportify/teleopsold-sub002/internal/repository/redis"
	"github.com/Reportify/teleopsold-sub002/internal/transport/http/middleware"
	"github.com/Reportify/teleopsold-sub002/internal/transport/http/routes"
	"github.com/Reportify/teleopsold-sub002/internal/usecase"
)

// Version is stamped at build time with -ldflags "-X .../internal/infra/app.Version=...".
var Version = "dev"

const shutdownTimeout = 10 * time.Second

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	consumer *kafkainfra.ConsumerGroup
	tracer   *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	if err := a.init(ctx); err != nil {
		a.release(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *Application) init(ctx context.Context) error {
	cfg, log := a.cfg, a.logger

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, Version, log)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.tracer = tracer

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	a.pool = pool
	repos := postgresrepo.NewRepositories(pool)

	metrics, err := telemetry.NewRBACMetrics(telemetry.RBACMetricsOptions{})
	if err != nil {
		return fmt.Errorf("init rbac metrics: %w", err)
	}
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}

	tenantTTLs, err := cfg.RBAC.TenantCacheTTLs()
	if err != nil {
		return fmt.Errorf("parse tenant cache ttls: %w", err)
	}

	rbacService := usecase.NewRBACService(repos.Profiles, repos.Registry, repos.Designations, repos.Groups, repos.Overrides).
		WithTenantRepository(repos.Tenants).
		WithTenantCacheTTLs(tenantTTLs).
		WithMetrics(metrics).
		WithLogger(log)

	var cacheCheck routes.CacheChecker
	switch cfg.RBAC.CacheBackend {
	case "redis":
		client, err := redisinfra.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		a.redis = client
		cacheCheck = client
		rbacService.WithPermissionCache(redisrepo.NewPermissionCache(client.Client(), cfg.RBAC.CacheKeyPrefix), cfg.RBAC.CacheTTL)
	case "memory":
		rbacService.WithPermissionCache(memoryrepo.NewPermissionCache(cfg.RBAC.MemoryCacheSize), cfg.RBAC.CacheTTL)
	default:
		log.Warn("permission cache disabled, every check resolves from postgres")
	}

	features, err := loadFeatures(cfg.RBAC.FeatureCatalog)
	if err != nil {
		return err
	}
	registry, err := usecase.NewFeatureRegistry(features)
	if err != nil {
		return fmt.Errorf("init feature registry: %w", err)
	}

	publisher := a.initPublisher()
	assignments := usecase.NewAssignmentService(rbacService, repos.Registry, repos.Designations, repos.Groups, repos.Overrides).
		WithEventPublisher(publisher).
		WithLogger(log)

	if cfg.RBAC.CacheBackend == "memory" && len(cfg.Kafka.Brokers) > 0 {
		handler := kafkainfra.NewInvalidationConsumer(rbacService, log).WithLagObserver(metrics)
		consumer, err := kafkainfra.NewConsumerGroup(cfg.Kafka, handler, log)
		if err != nil {
			log.Warn("kafka consumer unavailable, cross-instance invalidation disabled", zap.Error(err))
		} else {
			a.consumer = consumer
		}
	}

	verifier, err := security.NewTokenVerifier(cfg.Auth)
	if err != nil {
		return fmt.Errorf("init token verifier: %w", err)
	}

	a.engine = routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Version:     Version,
		Metrics:     httpMetrics,
		Verifier:    verifier,
		Permissions: rbacService,
		Features:    registry,
		Assignments: assignments,
		Denials:     metrics,
		Database:    pool,
		Cache:       cacheCheck,
	})
	return nil
}

// initPublisher falls back to the logging stub when Kafka is not configured or unreachable.
func (a *Application) initPublisher() port.EventPublisher {
	cfg, log := a.cfg, a.logger
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("kafka brokers not configured, using stub publisher")
		return kafkainfra.NewStubPublisher(log)
	}

	producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
	if err != nil {
		log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(log)
	}
	a.producer = producer
	log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	return kafkainfra.NewEventPublisher(producer, cfg.App, log)
}

func loadFeatures(path string) ([]domain.Feature, error) {
	if path == "" {
		return usecase.DefaultFeatures(), nil
	}
	features, err := usecase.LoadFeatureCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("load feature catalog: %w", err)
	}
	return features, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.release(context.Background())

	consumerErrCh := make(chan error, 1)
	if a.consumer != nil {
		go func() {
			if err := a.consumer.Run(ctx); err != nil {
				consumerErrCh <- fmt.Errorf("run invalidation consumer: %w", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting RBAC API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
		zap.String("cache_backend", a.cfg.RBAC.CacheBackend),
		zap.String("version", Version),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	case err := <-consumerErrCh:
		return err
	}
}

// release closes every initialised resource in reverse dependency order.
func (a *Application) release(ctx context.Context) {
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Warn("close kafka consumer", zap.Error(err))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("shutdown tracer provider", zap.Error(err))
		}
	}
}
