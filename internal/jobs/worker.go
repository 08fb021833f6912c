package jobs

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/platform/queue"
	"github.com/yungbote/filevault-backend/internal/services"
)

// ExtractWorker drains the extraction queue. Delivery is at-least-once and
// extraction is idempotent, so a redelivered job is simply re-run; records
// that already left processing are skipped inside the service.
type ExtractWorker struct {
	log         *logger.Logger
	jobs        queue.ExtractQueue
	ingest      services.IngestService
	concurrency int
}

func NewExtractWorker(log *logger.Logger, jobs queue.ExtractQueue, ingest services.IngestService, concurrency int) (*ExtractWorker, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if jobs == nil || ingest == nil {
		return nil, fmt.Errorf("queue and ingest service required")
	}
	if concurrency <= 0 {
		concurrency = 2
	}
	return &ExtractWorker{
		log:         log.With("service", "ExtractWorker"),
		jobs:        jobs,
		ingest:      ingest,
		concurrency: concurrency,
	}, nil
}

// Run blocks until ctx is cancelled. Each worker goroutine polls the queue
// and processes one job at a time; a failed job is logged and dropped, the
// enqueue side re-submits on its own schedule if the record stays in
// processing.
func (w *ExtractWorker) Run(ctx context.Context) error {
	w.log.Info("Extract worker starting", "concurrency", w.concurrency)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error {
			for {
				job, err := w.jobs.Dequeue(ctx)
				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return nil
					}
					w.log.Error("Dequeue failed", "error", err)
					continue
				}
				if job == nil {
					select {
					case <-ctx.Done():
						return nil
					default:
						continue
					}
				}

				w.log.Info("Processing extraction job", "file_id", job.FileID, "storage_key", job.StorageKey)
				if err := w.ingest.ExtractStored(ctx, job.FileID); err != nil {
					w.log.Error("Extraction job failed", "file_id", job.FileID, "error", err)
				}
			}
		})
	}
	return g.Wait()
}
