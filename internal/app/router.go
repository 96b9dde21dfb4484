package app

import (
	server "github.com/yungbote/completion-engine/internal/http"
	"github.com/yungbote/completion-engine/internal/observability"
	"github.com/yungbote/completion-engine/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *server.Server {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	log.Info("Wiring router...")
	return server.NewServer(server.RouterConfig{
		Log:             log,
		ServiceName:     serviceName,
		CORSOrigins:     cfg.CORSOrigins,
		Metrics:         metrics,
		AuthMiddleware:  middleware.Auth,
		ProgressHandler: handlers.Progress,
		RealtimeHandler: handlers.Realtime,
		HealthHandler:   handlers.Health,
	})
}
