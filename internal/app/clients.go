package app

import (
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/completion-engine/internal/platform/logger"
	"github.com/yungbote/completion-engine/internal/realtime/bus"
)

type Clients struct {
	Redis goredis.UniversalClient
	Bus   bus.Bus
}

// wireClients connects to Redis when REDIS_ADDR is set. Without it events stay
// inside this process.
func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" {
		log.Info("REDIS_ADDR not set; using in-process event bus")
		return Clients{Bus: bus.NewLocalBus()}, nil
	}

	rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs: strings.Split(addr, ","),
	})
	b, err := bus.NewRedisBus(log, rdb, cfg.Redis.Channel)
	if err != nil {
		_ = rdb.Close()
		return Clients{}, fmt.Errorf("init redis bus: %w", err)
	}
	return Clients{Redis: rdb, Bus: b}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
