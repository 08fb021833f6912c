package app

import (
	"github.com/yungbote/filevault-backend/internal/platform/gcp"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/platform/notify"
	"github.com/yungbote/filevault-backend/internal/platform/queue"
	"github.com/yungbote/filevault-backend/internal/services"
)

// Clients holds every external collaborator. Vision, Document AI and the
// notifier are optional: extraction degrades and notifications are
// fire-and-forget, so a missing backend downgrades behavior instead of
// blocking startup. The bucket is mandatory.
type Clients struct {
	Bucket   gcp.BucketService
	Vision   gcp.Vision
	Document gcp.Document
	Queue    queue.ExtractQueue
	Notifier notify.Notifier
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	bucket, err := gcp.NewBucketService(log)
	if err != nil {
		return Clients{}, err
	}

	var clients Clients
	clients.Bucket = bucket

	if vision, err := gcp.NewVision(log); err != nil {
		log.Warn("Vision unavailable, image extraction will degrade", "error", err)
	} else {
		clients.Vision = vision
	}

	if document, err := gcp.NewDocument(log); err != nil {
		log.Warn("Document AI unavailable, document extraction will degrade", "error", err)
	} else {
		clients.Document = document
	}

	if cfg.ExtractMode == services.ExtractModeAsync {
		jobs, err := queue.NewExtractQueue(log)
		if err != nil {
			clients.Close()
			return Clients{}, err
		}
		clients.Queue = jobs
	}

	if cfg.NotificationsOn {
		if notifier, err := notify.NewRedisNotifier(log); err != nil {
			log.Warn("Notifier unavailable, quarantine alerts will only be logged", "error", err)
		} else {
			clients.Notifier = notifier
		}
	}

	return clients, nil
}

func (c Clients) Close() {
	if c.Notifier != nil {
		_ = c.Notifier.Close()
	}
	if c.Queue != nil {
		_ = c.Queue.Close()
	}
	if c.Document != nil {
		_ = c.Document.Close()
	}
	if c.Vision != nil {
		_ = c.Vision.Close()
	}
	if c.Bucket != nil {
		_ = c.Bucket.Close()
	}
}
