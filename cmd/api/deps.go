package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/auth"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/config"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/metrics"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/repository"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/repository/memory"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/storage"
)

// store is everything the engines need from persistence
type store interface {
	domain.IdentityStore
	domain.ConnectionRepository
	domain.ForumRepository
	domain.ResourceRepository
	domain.Transactor
	Ping(ctx context.Context) error
}

// app holds the wired dependencies shared by every command
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     store
	postgres  *repository.PostgresRepository
	jwt       *auth.JWTManager
	collector *metrics.Collector

	auth        *domain.AuthService
	connections *domain.ConnectionService
	forum       *domain.ForumService
	resources   *domain.ResourceService
}

// withApp loads config, opens the store and builds the services, then calls
// fn. Resources are released when fn returns.
func withApp(ctx context.Context, fn func(*app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a := &app{
		cfg:       cfg,
		logger:    logger,
		jwt:       auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry),
		collector: metrics.NewCollector(cfg.Metrics.Namespace),
	}

	switch cfg.Server.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		a.store = memory.New()
	default:
		var pool *pgxpool.Pool
		pool, err = repository.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		logger.Info("connected to database")
		a.postgres = repository.NewPostgresRepository(pool)
		a.store = a.postgres
	}

	files, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("initializing file storage: %w", err)
	}

	var observer domain.Observer
	if cfg.Metrics.Enabled {
		observer = a.collector
	}
	a.auth = domain.NewAuthService(a.store, a.jwt)
	a.connections = domain.NewConnectionService(a.store, a.store, a.store, observer)
	a.forum = domain.NewForumService(a.store, a.store, a.store, observer)
	a.resources = domain.NewResourceService(a.store, a.store, files, a.store, observer)

	return fn(a)
}

// newLogger builds a JSON logger in production and a console logger elsewhere
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.Log.Level, err)
	}

	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zcfg.Build(zap.Fields(zap.String("env", cfg.Server.Env)))
}
