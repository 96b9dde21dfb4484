package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/completion-engine/internal/data/db"
	"github.com/yungbote/completion-engine/internal/data/repos"
	server "github.com/yungbote/completion-engine/internal/http"
	"github.com/yungbote/completion-engine/internal/observability"
	"github.com/yungbote/completion-engine/internal/platform/envutil"
	"github.com/yungbote/completion-engine/internal/platform/logger"
	"github.com/yungbote/completion-engine/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Server   *server.Server
	Cfg      Config
	Metrics  *observability.Metrics
	Repos    repos.Set
	Clients  Clients
	Services Services
	Hub      *realtime.Hub

	database     *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.LogMode != "" {
		if l, err := logger.New(cfg.LogMode); err == nil {
			log.Sync()
			log = l
		}
	}
	if cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	otelShutdown := observability.InitOTel(ctx, log, cfg.OtelSettings())

	database, err := db.Open(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := database.AutoMigrateAll(); err != nil {
		_ = database.Close()
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := database.DB()

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = database.Close()
		log.Sync()
		return nil, err
	}

	metrics := observability.New()
	hub := realtime.NewHub(log)
	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(theDB, log, cfg, reposet, metrics, clients.Bus)
	if err != nil {
		clients.Close()
		_ = database.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, theDB, clients, serviceset, hub)
	middleware := wireMiddleware(log, serviceset)
	srv := wireRouter(log, cfg, metrics, handlerset, middleware)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       srv.Engine,
		Server:       srv,
		Cfg:          cfg,
		Metrics:      metrics,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Hub:          hub,
		database:     database,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches background work: the bus forwarder feeding SSE streams and
// the pool/redis metric collectors.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.Clients.Bus.StartForwarder(ctx, a.Hub.Broadcast); err != nil {
		return fmt.Errorf("start event forwarder: %w", err)
	}
	a.Metrics.StartDBCollector(ctx, a.Log, a.DB, a.Cfg.MetricsInterval)
	if a.Clients.Redis != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis, a.Cfg.MetricsInterval)
	}
	return nil
}

// Run serves HTTP until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Server listening", "port", a.Cfg.Port)
	err := a.Server.Run(ctx, ":"+a.Cfg.Port, a.Cfg.ShutdownTimeout)
	a.Log.Info("Server stopped")
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Services.Close()
	a.Clients.Close()
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.database != nil {
		_ = a.database.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
