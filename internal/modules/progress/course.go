package progress

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/completion-engine/internal/domain"
	domainagg "github.com/yungbote/completion-engine/internal/domain/aggregates"
	"github.com/yungbote/completion-engine/internal/platform/apierr"
	"github.com/yungbote/completion-engine/internal/platform/dbctx"
)

type CourseProgress struct {
	EnrollmentID       uuid.UUID                  `json:"enrollment_id"`
	CourseID           uuid.UUID                  `json:"course_id"`
	ProgressPercentage float64                    `json:"progress_percentage"`
	Completed          bool                       `json:"completed"`
	CompletedAt        *time.Time                 `json:"completed_at,omitempty"`
	VideoProgress      []*types.VideoProgress     `json:"video_progress"`
	AssessmentAttempts []*types.AssessmentAttempt `json:"assessment_attempts"`
}

// GetCourseProgress reads the stored state. It never recomputes.
func (u Usecases) GetCourseProgress(ctx context.Context, learnerID, courseID uuid.UUID) (CourseProgress, error) {
	var out CourseProgress
	if learnerID == uuid.Nil {
		return out, apierr.New(http.StatusUnauthorized, "unauthorized", nil)
	}
	if courseID == uuid.Nil {
		return out, apierr.New(http.StatusBadRequest, string(domainagg.CodeValidation), fmt.Errorf("missing course id"))
	}
	dbc := dbctx.Context{Ctx: ctx}
	enr, err := u.deps.Enrollments.GetByLearnerAndCourse(dbc, learnerID, courseID)
	if err != nil {
		return out, apierr.New(http.StatusInternalServerError, "load_enrollment_failed", err)
	}
	if enr == nil {
		return out, apierr.New(http.StatusForbidden, string(domainagg.CodeNotEnrolled), fmt.Errorf("learner is not enrolled in the course"))
	}

	var (
		videos   []*types.VideoProgress
		attempts []*types.AssessmentAttempt
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := u.deps.Videos.ListByEnrollmentID(dbctx.Context{Ctx: gctx}, enr.ID)
		videos = rows
		return err
	})
	g.Go(func() error {
		rows, err := u.deps.Attempts.ListByEnrollmentID(dbctx.Context{Ctx: gctx}, enr.ID)
		attempts = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return out, apierr.New(http.StatusInternalServerError, "load_progress_failed", err)
	}
	if videos == nil {
		videos = []*types.VideoProgress{}
	}
	if attempts == nil {
		attempts = []*types.AssessmentAttempt{}
	}

	return CourseProgress{
		EnrollmentID:       enr.ID,
		CourseID:           enr.CourseID,
		ProgressPercentage: enr.ProgressPercentage,
		Completed:          enr.Completed,
		CompletedAt:        enr.CompletedAt,
		VideoProgress:      videos,
		AssessmentAttempts: attempts,
	}, nil
}

// Recalculate is the operator entry point for recomputing one enrollment.
func (u Usecases) Recalculate(ctx context.Context, enrollmentID uuid.UUID) (*Summary, error) {
	if enrollmentID == uuid.Nil {
		return nil, apierr.New(http.StatusBadRequest, string(domainagg.CodeValidation), fmt.Errorf("missing enrollment id"))
	}
	summary, err := u.recompute(ctx, enrollmentID)
	if err != nil {
		return nil, apierr.From(err)
	}
	return summary, nil
}
