package app

import (
	httpMW "github.com/yungbote/completion-engine/internal/http/middleware"
	"github.com/yungbote/completion-engine/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Verifier),
	}
}
