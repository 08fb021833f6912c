package app

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/filevault-backend/internal/db"
	"github.com/yungbote/filevault-backend/internal/jobs"
	"github.com/yungbote/filevault-backend/internal/observability"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/services"
)

// WorkerApp is the standalone extraction worker deployment. It shares the
// wiring of the API process but serves no HTTP and always consumes the
// queue, whatever EXTRACT_MODE the API side runs with.
type WorkerApp struct {
	Log     *logger.Logger
	Cfg     Config
	Clients Clients

	worker       *jobs.ExtractWorker
	otelShutdown func(context.Context) error
}

func NewWorker() (*WorkerApp, error) {
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
	cfg.ExtractMode = services.ExtractModeAsync

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "filevault-worker",
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

	clients, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(database.DB(), log)
	serviceset, err := wireServices(log, cfg, clients, reposet)
	if err != nil {
		clients.Close()
		log.Sync()
		return nil, err
	}

	worker, err := jobs.NewExtractWorker(log, clients.Queue, serviceset.Ingest, cfg.WorkerConcurrency)
	if err != nil {
		clients.Close()
		log.Sync()
		return nil, err
	}

	return &WorkerApp{
		Log:          log,
		Cfg:          cfg,
		Clients:      clients,
		worker:       worker,
		otelShutdown: otelShutdown,
	}, nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	return w.worker.Run(ctx)
}

func (w *WorkerApp) Close() {
	if w == nil {
		return
	}
	if w.otelShutdown != nil {
		_ = w.otelShutdown(context.Background())
	}
	w.Clients.Close()
	if w.Log != nil {
		w.Log.Sync()
	}
}
