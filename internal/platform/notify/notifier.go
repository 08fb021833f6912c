package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/filevault-backend/internal/platform/logger"
)

// Notifier is a fire-and-forget notification sink. Publish failures are the
// caller's to log; they never affect pipeline outcomes.
type Notifier interface {
	Publish(ctx context.Context, subject string, payload any) error
	Close() error
}

type redisNotifier struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

type envelope struct {
	Subject     string    `json:"subject"`
	Payload     any       `json:"payload"`
	PublishedAt time.Time `json:"published_at"`
}

func NewRedisNotifier(log *logger.Logger) (Notifier, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("NOTIFY_CHANNEL"))
	if ch == "" {
		ch = "filevault:alerts"
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

	return &redisNotifier{
		log:     log.With("service", "RedisNotifier"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (n *redisNotifier) Publish(ctx context.Context, subject string, payload any) error {
	if n == nil || n.rdb == nil {
		return fmt.Errorf("notifier not initialized")
	}
	raw, err := json.Marshal(envelope{
		Subject:     subject,
		Payload:     payload,
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, n.channel, raw).Err()
}

func (n *redisNotifier) Close() error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Close()
}
