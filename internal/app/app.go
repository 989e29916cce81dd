package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/alanpentz/course-platform/internal/data/db"
	apphttp "github.com/alanpentz/course-platform/internal/http"
	"github.com/alanpentz/course-platform/internal/observability"
	"github.com/alanpentz/course-platform/internal/platform/envutil"
	"github.com/alanpentz/course-platform/internal/platform/logger"
)

type App struct {
	Log        *logger.Logger
	DB         *gorm.DB
	Router     *gin.Engine
	Cfg        Config
	Clients    Clients
	Repos      Repos
	Aggregates Aggregates
	Services   Services
	Metrics    *observability.Metrics

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// New builds the API process: everything NewHeadless builds plus the router.
func New() (*App, error) {
	a, err := NewHeadless()
	if err != nil {
		return nil, err
	}

	middleware, err := wireMiddleware(a.Log, a.Cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	handlerset := wireHandlers(a.Log, a.DB, a.Services)
	a.Router = wireRouter(a.Log, a.Cfg, a.Metrics, handlerset, middleware)
	return a, nil
}

// NewHeadless connects storage and wires services without an HTTP surface.
// Operator commands use it.
func NewHeadless() (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig(log)
	metrics := observability.Init(log)

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdown := observability.InitOTel(initCtx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	theDB := pg.DB()
	if err := db.Migrate(theDB); err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}

	clients, err := wireClients(initCtx, log)
	if err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	aggs := wireAggregates(theDB, log, reposet, metrics)
	serviceset := wireServices(log, cfg, reposet, aggs, clients.Redis, clients.Bus, metrics)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Aggregates:   aggs,
		Services:     serviceset,
		Metrics:      metrics,
		pg:           pg,
		otelShutdown: shutdown,
	}, nil
}

// Start launches background work: the grant consumer and metrics collectors.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.Grants != nil {
		if err := a.Services.Grants.Start(ctx); err != nil {
			return fmt.Errorf("start grant consumer: %w", err)
		}
	}
	if a.Metrics != nil {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
		}
	}
	return nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	if err := a.Start(); err != nil {
		return err
	}
	a.Log.Info("Server listening", "addr", a.Cfg.Addr())
	srv := &apphttp.Server{Engine: a.Router}
	return srv.Run(ctx, a.Cfg.Addr())
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil && a.Log != nil {
			a.Log.Warn("postgres close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
