package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/completion-engine/internal/http/handlers"
	httpMW "github.com/yungbote/completion-engine/internal/http/middleware"
	"github.com/yungbote/completion-engine/internal/observability"
	"github.com/yungbote/completion-engine/internal/platform/logger"
	"github.com/yungbote/completion-engine/internal/services"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics

	AuthMiddleware  *httpMW.AuthMiddleware
	ProgressHandler *httpH.ProgressHandler
	RealtimeHandler *httpH.RealtimeHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		if cfg.ProgressHandler != nil {
			api.PUT("/content-items/:id/video-progress", cfg.ProgressHandler.UpdateVideoProgress)
			api.POST("/content-items/:id/attempts", cfg.ProgressHandler.SubmitAssessment)
			api.GET("/content-items/:id/attempts", cfg.ProgressHandler.ListAttempts)
			api.GET("/courses/:id/progress", cfg.ProgressHandler.GetCourseProgress)

			operator := api.Group("/")
			if cfg.AuthMiddleware != nil {
				operator.Use(cfg.AuthMiddleware.RequireRole(services.RoleOperator))
			}
			operator.POST("/enrollments/:id/recalculate", cfg.ProgressHandler.Recalculate)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/events/stream", cfg.RealtimeHandler.Stream)
		}
	}

	return r
}
