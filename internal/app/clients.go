package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	redisclient "github.com/alanpentz/course-platform/internal/clients/redis"
	"github.com/alanpentz/course-platform/internal/platform/logger"
	"github.com/alanpentz/course-platform/internal/realtime/bus"
)

type Clients struct {
	// Redis and Bus are nil when REDIS_ADDR is unset.
	Redis goredis.UniversalClient
	Bus   bus.Bus
}

func wireClients(ctx context.Context, log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	rdb, err := redisclient.NewClient(ctx, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	if rdb == nil {
		return Clients{}, nil
	}

	b, err := bus.NewRedisBus(log, rdb)
	if err != nil {
		_ = rdb.Close()
		return Clients{}, fmt.Errorf("init redis bus: %w", err)
	}
	return Clients{Redis: rdb, Bus: b}, nil
}

func (c Clients) Close() {
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
