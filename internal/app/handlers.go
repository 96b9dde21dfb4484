package app

import (
	"context"

	"gorm.io/gorm"

	httpH "github.com/yungbote/completion-engine/internal/http/handlers"
	"github.com/yungbote/completion-engine/internal/platform/logger"
	"github.com/yungbote/completion-engine/internal/realtime"
)

type Handlers struct {
	Progress *httpH.ProgressHandler
	Realtime *httpH.RealtimeHandler
	Health   *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, clients Clients, services Services, hub *realtime.Hub) Handlers {
	log.Info("Wiring handlers...")
	checks := map[string]httpH.Pinger{
		"db": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if clients.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return clients.Redis.Ping(ctx).Err() }
	}
	return Handlers{
		Progress: httpH.NewProgressHandler(services.Progress),
		Realtime: httpH.NewRealtimeHandler(log, hub),
		Health:   httpH.NewHealthHandler(checks),
	}
}
