package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/filevault-backend/internal/db"
	httpx "github.com/yungbote/filevault-backend/internal/http"
	"github.com/yungbote/filevault-backend/internal/jobs"
	"github.com/yungbote/filevault-backend/internal/observability"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/services"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services

	worker       *jobs.ExtractWorker
	cancel       context.CancelFunc
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "filevault",
		Environment: cfg.DeployEnvironment,
		Version:     cfg.ServiceVersion,
	})

	database, err := db.NewDatabaseService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := database.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	theDB := database.DB()

	clients, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(log, cfg, clients, reposet)
	if err != nil {
		clients.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, serviceset)
	router := httpx.NewRouter(httpx.RouterConfig{
		FileHandler:   handlerset.File,
		SearchHandler: handlerset.Search,
		HealthHandler: handlerset.Health,
	})

	app := &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		otelShutdown: otelShutdown,
	}

	if cfg.ExtractMode == services.ExtractModeAsync && clients.Queue != nil {
		worker, err := jobs.NewExtractWorker(log, clients.Queue, serviceset.Ingest, cfg.WorkerConcurrency)
		if err != nil {
			clients.Close()
			log.Sync()
			return nil, err
		}
		app.worker = worker
	}

	return app, nil
}

// Start launches the in-process extraction worker, if one is configured.
// Deployments running cmd/worker separately leave EXTRACT_MODE async here
// and simply never call Start.
func (a *App) Start() {
	if a == nil || a.cancel != nil || a.worker == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go func() {
		if err := a.worker.Run(ctx); err != nil {
			a.Log.Error("Extract worker stopped", "error", err)
		}
	}()
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	a.Clients.Close()
	if a.Log != nil {
		a.Log.Sync()
	}
}
