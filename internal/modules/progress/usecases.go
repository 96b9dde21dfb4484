package progress

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/completion-engine/internal/data/repos"
	domainagg "github.com/yungbote/completion-engine/internal/domain/aggregates"
	"github.com/yungbote/completion-engine/internal/platform/logger"
	"github.com/yungbote/completion-engine/internal/services"
)

// Recomputer runs a recompute for one enrollment and returns the stored result.
// The recompute dispatcher satisfies it.
type Recomputer interface {
	Submit(ctx context.Context, enrollmentID uuid.UUID) (domainagg.RecalculateResult, error)
}

type UsecasesDeps struct {
	Log *logger.Logger

	Aggregate domainagg.ProgressAggregate
	Recompute Recomputer

	Enrollments repos.EnrollmentRepo
	Content     repos.ContentRepo
	Videos      repos.VideoProgressRepo
	Attempts    repos.AssessmentAttemptRepo

	Events services.ProgressEvents
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	deps.Log = deps.Log.With("module", "progress")
	return Usecases{deps: deps}
}

// Summary is the enrollment-level completion state returned after a recompute.
type Summary struct {
	EnrollmentID       uuid.UUID  `json:"enrollment_id"`
	CourseID           uuid.UUID  `json:"course_id"`
	ProgressPercentage float64    `json:"progress_percentage"`
	Completed          bool       `json:"completed"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

func summaryOf(res domainagg.RecalculateResult) *Summary {
	return &Summary{
		EnrollmentID:       res.EnrollmentID,
		CourseID:           res.CourseID,
		ProgressPercentage: res.ProgressPercentage,
		Completed:          res.Completed,
		CompletedAt:        res.CompletedAt,
	}
}

// recompute submits the enrollment to the dispatcher and publishes the new state.
func (u Usecases) recompute(ctx context.Context, enrollmentID uuid.UUID) (*Summary, error) {
	var (
		res domainagg.RecalculateResult
		err error
	)
	if u.deps.Recompute != nil {
		res, err = u.deps.Recompute.Submit(ctx, enrollmentID)
	} else {
		res, err = u.deps.Aggregate.Recalculate(ctx, enrollmentID)
	}
	if err != nil {
		u.deps.Log.Warn("recompute failed", "enrollment_id", enrollmentID, "error", err)
		return nil, err
	}
	if u.deps.Events != nil {
		u.deps.Events.ProgressUpdated(ctx, res)
	}
	return summaryOf(res), nil
}
