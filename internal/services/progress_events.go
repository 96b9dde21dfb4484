package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/completion-engine/internal/domain/aggregates"
	"github.com/yungbote/completion-engine/internal/platform/logger"
	"github.com/yungbote/completion-engine/internal/realtime"
	"github.com/yungbote/completion-engine/internal/realtime/bus"
)

// ProgressEvents publishes learner-facing progress events. Publishing is
// best-effort: failures are logged and never returned.
type ProgressEvents interface {
	ProgressUpdated(ctx context.Context, res domainagg.RecalculateResult)
	CourseCompleted(ctx context.Context, res domainagg.RecalculateResult)
}

type progressEvents struct {
	log *logger.Logger
	bus bus.Bus
}

func NewProgressEvents(log *logger.Logger, b bus.Bus) ProgressEvents {
	if log == nil {
		log = logger.Nop()
	}
	return &progressEvents{log: log.With("service", "ProgressEvents"), bus: b}
}

func (p *progressEvents) ProgressUpdated(ctx context.Context, res domainagg.RecalculateResult) {
	p.publish(ctx, res.LearnerID, realtime.EventProgressUpdated, progressPayload(res))
}

func (p *progressEvents) CourseCompleted(ctx context.Context, res domainagg.RecalculateResult) {
	p.publish(ctx, res.LearnerID, realtime.EventCourseCompleted, progressPayload(res))
}

func (p *progressEvents) publish(ctx context.Context, learnerID uuid.UUID, event realtime.Event, data map[string]any) {
	if p == nil || p.bus == nil || learnerID == uuid.Nil {
		return
	}
	msg := realtime.Message{Channel: realtime.LearnerChannel(learnerID), Event: event, Data: data}
	if err := p.bus.Publish(ctx, msg); err != nil {
		p.log.Warn("publish progress event failed", "event", event, "learner_id", learnerID, "error", err)
	}
}

func progressPayload(res domainagg.RecalculateResult) map[string]any {
	data := map[string]any{
		"enrollment_id":       res.EnrollmentID,
		"course_id":           res.CourseID,
		"progress_percentage": res.ProgressPercentage,
		"completed":           res.Completed,
	}
	if res.CompletedAt != nil {
		data["completed_at"] = res.CompletedAt.UTC().Format(time.RFC3339)
	}
	return data
}
