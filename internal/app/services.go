package app

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/completion-engine/internal/data/aggregates"
	"github.com/yungbote/completion-engine/internal/data/repos"
	types "github.com/yungbote/completion-engine/internal/domain"
	domainagg "github.com/yungbote/completion-engine/internal/domain/aggregates"
	"github.com/yungbote/completion-engine/internal/modules/progress"
	"github.com/yungbote/completion-engine/internal/modules/progress/recompute"
	"github.com/yungbote/completion-engine/internal/observability"
	"github.com/yungbote/completion-engine/internal/platform/logger"
	"github.com/yungbote/completion-engine/internal/realtime/bus"
	"github.com/yungbote/completion-engine/internal/services"
)

type Services struct {
	Verifier   services.TokenVerifier
	Issuer     types.CertificateIssuer
	Events     services.ProgressEvents
	Trigger    *services.CompletionTrigger
	Aggregate  domainagg.ProgressAggregate
	Dispatcher *recompute.Dispatcher
	Progress   progress.Usecases
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet repos.Set, metrics *observability.Metrics, eventBus bus.Bus) (Services, error) {
	log.Info("Wiring services...")

	verifier, err := services.NewJWTVerifier(log, cfg.JWTSecretKey, cfg.JWTIssuer)
	if err != nil {
		return Services{}, fmt.Errorf("init token verifier: %w", err)
	}

	var issuer types.CertificateIssuer
	switch strings.ToLower(cfg.Certificates.Issuer) {
	case IssuerNoop:
		issuer = services.NewNoopCertificateIssuer(log)
	default:
		issuer = services.NewLocalCertificateIssuer(log, reposet.Enrollments, reposet.Certificates)
	}

	events := services.NewProgressEvents(log, eventBus)
	trigger := services.NewCompletionTrigger(log, issuer, services.CompletionTriggerOptions{
		Workers: cfg.Certificates.Workers,
		Timeout: cfg.Certificates.Timeout,
		Metrics: metrics,
		Events:  events,
	})

	agg := aggregates.NewProgressAggregate(aggregates.ProgressAggregateDeps{
		BaseDeps: aggregates.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: aggregates.NewObservabilityHooks(metrics),
		},
		Enrollments:          reposet.Enrollments,
		Content:              reposet.Content,
		Videos:               reposet.Videos,
		Attempts:             reposet.Attempts,
		Completions:          trigger,
		MaxRecomputeAttempts: cfg.Recompute.MaxAttempts,
		MaxInsertAttempts:    cfg.Recompute.MaxInsertAttempts,
	})

	dispatcher := recompute.NewDispatcher(agg.Recalculate, recompute.Options{
		Log:     log,
		Metrics: metrics,
		Timeout: cfg.Recompute.Timeout,
	})

	uc := progress.New(progress.UsecasesDeps{
		Log:         log,
		Aggregate:   agg,
		Recompute:   dispatcher,
		Enrollments: reposet.Enrollments,
		Content:     reposet.Content,
		Videos:      reposet.Videos,
		Attempts:    reposet.Attempts,
		Events:      events,
	})

	return Services{
		Verifier:   verifier,
		Issuer:     issuer,
		Events:     events,
		Trigger:    trigger,
		Aggregate:  agg,
		Dispatcher: dispatcher,
		Progress:   uc,
	}, nil
}

// Close drains pending recomputes before the certificate pool so completions
// they produce still reach the issuer.
func (s *Services) Close() {
	if s == nil {
		return
	}
	if s.Dispatcher != nil {
		s.Dispatcher.Close()
	}
	if s.Trigger != nil {
		s.Trigger.Close()
	}
}
