package app

import (
	"testing"
	"time"

	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/services"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("EXTRACT_MODE", "")
	t.Setenv("PRESIGN_TTL_SECONDS", "")
	t.Setenv("DOWNLOAD_TTL_SECONDS", "")
	t.Setenv("EXTRACT_WORKER_CONCURRENCY", "")
	t.Setenv("NOTIFICATIONS_ENABLED", "")

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	cfg := LoadConfig(log)

	if cfg.PresignTTL != 900*time.Second {
		t.Fatalf("presign ttl: want=900s got=%v", cfg.PresignTTL)
	}
	if cfg.DownloadTTL != 3600*time.Second {
		t.Fatalf("download ttl: want=3600s got=%v", cfg.DownloadTTL)
	}
	if cfg.WorkerConcurrency != 2 {
		t.Fatalf("worker concurrency: want=2 got=%d", cfg.WorkerConcurrency)
	}
	if !cfg.NotificationsOn {
		t.Fatalf("notifications default: want=true")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("EXTRACT_MODE", "async")
	t.Setenv("PRESIGN_TTL_SECONDS", "300")
	t.Setenv("DOWNLOAD_TTL_SECONDS", "60")
	t.Setenv("EXTRACT_WORKER_CONCURRENCY", "8")
	t.Setenv("NOTIFICATIONS_ENABLED", "false")

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	cfg := LoadConfig(log)

	if cfg.ExtractMode != services.ExtractModeAsync {
		t.Fatalf("extract mode: want=async got=%q", cfg.ExtractMode)
	}
	if cfg.PresignTTL != 300*time.Second {
		t.Fatalf("presign ttl: want=300s got=%v", cfg.PresignTTL)
	}
	if cfg.DownloadTTL != 60*time.Second {
		t.Fatalf("download ttl: want=60s got=%v", cfg.DownloadTTL)
	}
	if cfg.WorkerConcurrency != 8 {
		t.Fatalf("worker concurrency: want=8 got=%d", cfg.WorkerConcurrency)
	}
	if cfg.NotificationsOn {
		t.Fatalf("notifications: want=false")
	}
}
