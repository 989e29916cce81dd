package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/alanpentz/course-platform/internal/platform/envutil"
	"github.com/alanpentz/course-platform/internal/platform/logger"
)

// NewClient dials REDIS_ADDR and pings it. An empty address returns (nil, nil):
// redis is optional and callers fall back to uncached reads and log-only events.
func NewClient(ctx context.Context, log *logger.Logger) (*goredis.Client, error) {
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		if log != nil {
			log.Warn("REDIS_ADDR not set; redis features disabled")
		}
		return nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.String("REDIS_PASSWORD", ""),
		DB:          envutil.Int("REDIS_DB", 0),
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if log != nil {
		log.Info("redis connected", "addr", addr)
	}
	return rdb, nil
}
