package app

import (
	"time"

	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/services"
	"github.com/yungbote/filevault-backend/internal/utils"
)

type Config struct {
	ExtractMode       services.ExtractMode
	PresignTTL        time.Duration
	DownloadTTL       time.Duration
	WorkerConcurrency int
	NotificationsOn   bool
	ServiceVersion    string
	DeployEnvironment string
}

func LoadConfig(log *logger.Logger) Config {
	extractMode := services.ExtractMode(utils.GetEnv("EXTRACT_MODE", string(services.ExtractModeSync), log))
	presignTTLSeconds := utils.GetEnvAsInt("PRESIGN_TTL_SECONDS", 900, log)
	downloadTTLSeconds := utils.GetEnvAsInt("DOWNLOAD_TTL_SECONDS", 3600, log)
	workerConcurrency := utils.GetEnvAsInt("EXTRACT_WORKER_CONCURRENCY", 2, log)
	notificationsOn := utils.GetEnvAsBool("NOTIFICATIONS_ENABLED", true, log)
	return Config{
		ExtractMode:       extractMode,
		PresignTTL:        time.Duration(presignTTLSeconds) * time.Second,
		DownloadTTL:       time.Duration(downloadTTLSeconds) * time.Second,
		WorkerConcurrency: workerConcurrency,
		NotificationsOn:   notificationsOn,
		ServiceVersion:    utils.GetEnv("SERVICE_VERSION", "dev", log),
		DeployEnvironment: utils.GetEnv("DEPLOY_ENVIRONMENT", "development", log),
	}
}
