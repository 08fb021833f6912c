package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/filevault-backend/internal/platform/logger"
)

// ExtractJob is the payload handed from the ingestion pipeline to the
// extraction worker. Delivery is at-least-once; extraction is idempotent so
// redelivery is safe without deduplication.
type ExtractJob struct {
	FileID     uuid.UUID `json:"file_id"`
	StorageKey string    `json:"storage_key"`
	MimeType   string    `json:"mime_type"`
	FileName   string    `json:"file_name"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type ExtractQueue interface {
	Enqueue(ctx context.Context, job ExtractJob) error
	// Dequeue blocks up to the configured poll interval; (nil, nil) means the
	// queue was empty for that window.
	Dequeue(ctx context.Context) (*ExtractJob, error)
	Close() error
}

type extractQueue struct {
	log      *logger.Logger
	rdb      *goredis.Client
	listKey  string
	pollWait time.Duration
}

func NewExtractQueue(log *logger.Logger) (ExtractQueue, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	listKey := strings.TrimSpace(os.Getenv("EXTRACT_QUEUE_KEY"))
	if listKey == "" {
		listKey = "filevault:extract"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &extractQueue{
		log:      log.With("service", "ExtractQueue"),
		rdb:      rdb,
		listKey:  listKey,
		pollWait: 5 * time.Second,
	}, nil
}

func (q *extractQueue) Enqueue(ctx context.Context, job ExtractJob) error {
	if q == nil || q.rdb == nil {
		return fmt.Errorf("extract queue not initialized")
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.rdb.LPush(ctx, q.listKey, raw).Err(); err != nil {
		return fmt.Errorf("redis lpush: %w", err)
	}
	return nil
}

func (q *extractQueue) Dequeue(ctx context.Context) (*ExtractJob, error) {
	if q == nil || q.rdb == nil {
		return nil, fmt.Errorf("extract queue not initialized")
	}
	vals, err := q.rdb.BRPop(ctx, q.pollWait, q.listKey).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis brpop: %w", err)
	}
	if len(vals) < 2 {
		return nil, nil
	}
	var job ExtractJob
	if err := json.Unmarshal([]byte(vals[1]), &job); err != nil {
		return nil, fmt.Errorf("decode extract job: %w", err)
	}
	return &job, nil
}

func (q *extractQueue) Close() error {
	if q == nil || q.rdb == nil {
		return nil
	}
	return q.rdb.Close()
}
