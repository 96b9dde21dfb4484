package aggregates

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/completion-engine/internal/data/repos"
	types "github.com/yungbote/completion-engine/internal/domain"
	domainagg "github.com/yungbote/completion-engine/internal/domain/aggregates"
	"github.com/yungbote/completion-engine/internal/domain/progress"
	"github.com/yungbote/completion-engine/internal/platform/dbctx"
)

const (
	opRecordVideoProgress     = "progress.RecordVideoProgress"
	opRecordAssessmentAttempt = "progress.RecordAssessmentAttempt"
	opRecalculate             = "progress.Recalculate"

	defaultMaxRecomputeAttempts = 5
	defaultMaxInsertAttempts    = 3

	// Highest storable percentage for an enrollment that is not complete.
	maxIncompletePercentage = 99.99
)

// CompletionNotifier receives enrollments whose completion flag was flipped by a
// committed recompute. It is never called inside a transaction.
type CompletionNotifier interface {
	OnCompleted(ctx context.Context, res domainagg.RecalculateResult)
}

type ProgressAggregateDeps struct {
	BaseDeps

	Enrollments repos.EnrollmentRepo
	Content     repos.ContentRepo
	Videos      repos.VideoProgressRepo
	Attempts    repos.AssessmentAttemptRepo

	Completions CompletionNotifier

	MaxRecomputeAttempts int
	MaxInsertAttempts    int
	Now                  func() time.Time
}

type progressAggregate struct {
	deps ProgressAggregateDeps
}

var _ domainagg.ProgressAggregate = (*progressAggregate)(nil)

func NewProgressAggregate(deps ProgressAggregateDeps) domainagg.ProgressAggregate {
	deps.BaseDeps = deps.BaseDeps.withDefaults()
	deps.Log = deps.Log.With("aggregate", "ProgressAggregate")
	if deps.MaxRecomputeAttempts <= 0 {
		deps.MaxRecomputeAttempts = defaultMaxRecomputeAttempts
	}
	if deps.MaxInsertAttempts <= 0 {
		deps.MaxInsertAttempts = defaultMaxInsertAttempts
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &progressAggregate{deps: deps}
}

func (a *progressAggregate) Contract() domainagg.Contract {
	return domainagg.ProgressAggregateContract
}

// retryConflicts reruns a whole write while it fails with a conflict, up to max times.
func (a *progressAggregate) retryConflicts(ctx context.Context, op string, max int, write func() error) error {
	var err error
	for attempt := 1; attempt <= max; attempt++ {
		err = write()
		if err == nil || !domainagg.IsCode(err, domainagg.CodeConflict) {
			return err
		}
		if attempt < max {
			a.deps.Hooks.IncRetry(op)
			a.deps.Log.Debug("retrying after conflict", "op", op, "attempt", attempt, "error", err)
		}
		if ctx.Err() != nil {
			return MapError(op, ctx.Err())
		}
	}
	return err
}

// resolveEnrollment loads the item and the learner's enrollment in its course.
func (a *progressAggregate) resolveEnrollment(dbc dbctx.Context, op string, learnerID uuid.UUID, item *types.ContentItem) (*types.Enrollment, error) {
	if item.Module == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "content item has no module", nil)
	}
	enr, err := a.deps.Enrollments.GetByLearnerAndCourse(dbc, learnerID, item.Module.CourseID)
	if err != nil {
		return nil, err
	}
	if enr == nil {
		return nil, domainagg.NewError(domainagg.CodeNotEnrolled, op, "learner is not enrolled in the course", nil)
	}
	return enr, nil
}

func (a *progressAggregate) RecordVideoProgress(ctx context.Context, in domainagg.VideoProgressInput) (domainagg.VideoProgressResult, error) {
	var out domainagg.VideoProgressResult
	if in.LearnerID == uuid.Nil || in.ContentItemID == uuid.Nil {
		return out, MapError(opRecordVideoProgress, ValidationError("learner id and content item id are required"))
	}
	if in.LastPositionSeconds < 0 {
		return out, MapError(opRecordVideoProgress, ValidationError("last position must be >= 0"))
	}
	if in.TotalWatchTimeSeconds != nil && *in.TotalWatchTimeSeconds < 0 {
		return out, MapError(opRecordVideoProgress, ValidationError("total watch time must be >= 0"))
	}

	err := a.retryConflicts(ctx, opRecordVideoProgress, a.deps.MaxInsertAttempts, func() error {
		return executeWrite(ctx, a.deps.BaseDeps, opRecordVideoProgress, func(dbc dbctx.Context) error {
			res, err := a.recordVideoProgress(dbc, in)
			if err != nil {
				return err
			}
			out = res
			return nil
		})
	})
	if err != nil {
		return domainagg.VideoProgressResult{}, err
	}
	return out, nil
}

func (a *progressAggregate) recordVideoProgress(dbc dbctx.Context, in domainagg.VideoProgressInput) (domainagg.VideoProgressResult, error) {
	var out domainagg.VideoProgressResult
	item, err := a.deps.Content.GetItemByID(dbc, in.ContentItemID)
	if err != nil {
		return out, err
	}
	if item == nil {
		return out, domainagg.NewError(domainagg.CodeNotFound, opRecordVideoProgress, "content item not found", nil)
	}
	if item.ContentType != types.ContentTypeVideo {
		return out, ValidationError("content item is not a video")
	}
	enr, err := a.resolveEnrollment(dbc, opRecordVideoProgress, in.LearnerID, item)
	if err != nil {
		return out, err
	}
	out.EnrollmentID = enr.ID
	now := a.deps.Now()
	asserted := in.Completed != nil && *in.Completed

	row, err := a.deps.Videos.GetByLearnerAndItem(dbc, in.LearnerID, item.ID)
	if err != nil {
		return out, err
	}
	if row == nil {
		row = &types.VideoProgress{
			EnrollmentID:        enr.ID,
			LearnerID:           in.LearnerID,
			ContentItemID:       item.ID,
			DurationSeconds:     item.Duration(),
			LastPositionSeconds: in.LastPositionSeconds,
			Completed:           asserted,
		}
		if in.TotalWatchTimeSeconds != nil {
			row.TotalWatchTimeSeconds = *in.TotalWatchTimeSeconds
		}
		if asserted {
			row.CompletedAt = &now
		}
		if _, err := a.deps.Videos.Create(dbc, row); err != nil {
			return out, err
		}
		out.Progress = row
		out.NeedsRecompute = row.Completed
		return out, nil
	}

	if row.Completed && !asserted {
		out.Progress = row
		out.Unchanged = true
		return out, nil
	}

	updates := map[string]interface{}{
		"last_position_seconds": in.LastPositionSeconds,
	}
	if in.TotalWatchTimeSeconds != nil {
		updates["total_watch_time_seconds"] = *in.TotalWatchTimeSeconds
	}

	if !asserted {
		// The row may have been completed after it was read; the guarded write
		// then matches nothing and the update is dropped.
		if in.Completed != nil {
			updates["completed"] = false
			updates["completed_at"] = nil
		}
		ok, err := a.deps.Videos.UpdateIfIncomplete(dbc, row.ID, updates)
		if err != nil {
			return out, err
		}
		if !ok {
			current, err := a.deps.Videos.GetByLearnerAndItem(dbc, in.LearnerID, item.ID)
			if err != nil {
				return out, err
			}
			if current == nil {
				current = row
			}
			out.Progress = current
			out.Unchanged = true
			return out, nil
		}
	} else {
		updates["completed"] = true
		updates["completed_at"] = gorm.Expr("COALESCE(completed_at, ?)", now)
		if err := a.deps.Videos.UpdateFields(dbc, row.ID, updates); err != nil {
			return out, err
		}
	}

	current, err := a.deps.Videos.GetByLearnerAndItem(dbc, in.LearnerID, item.ID)
	if err != nil {
		return out, err
	}
	if current == nil {
		return out, InvariantError("video progress row vanished during update")
	}
	out.Progress = current
	out.NeedsRecompute = current.Completed
	return out, nil
}

func (a *progressAggregate) RecordAssessmentAttempt(ctx context.Context, in domainagg.AssessmentAttemptInput) (domainagg.AssessmentAttemptResult, error) {
	var out domainagg.AssessmentAttemptResult
	if in.LearnerID == uuid.Nil || in.ContentItemID == uuid.Nil {
		return out, MapError(opRecordAssessmentAttempt, ValidationError("learner id and content item id are required"))
	}
	answers := in.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	payload, err := json.Marshal(answers)
	if err != nil {
		return out, MapError(opRecordAssessmentAttempt, ValidationError("answers are not encodable"))
	}

	err = a.retryConflicts(ctx, opRecordAssessmentAttempt, a.deps.MaxInsertAttempts, func() error {
		return executeWrite(ctx, a.deps.BaseDeps, opRecordAssessmentAttempt, func(dbc dbctx.Context) error {
			res, err := a.recordAssessmentAttempt(dbc, in.LearnerID, in.ContentItemID, answers, payload)
			if err != nil {
				return err
			}
			out = res
			return nil
		})
	})
	if err != nil {
		return domainagg.AssessmentAttemptResult{}, err
	}
	return out, nil
}

func (a *progressAggregate) recordAssessmentAttempt(dbc dbctx.Context, learnerID, itemID uuid.UUID, answers map[string]string, payload []byte) (domainagg.AssessmentAttemptResult, error) {
	var out domainagg.AssessmentAttemptResult
	item, err := a.deps.Content.GetItemWithQuestions(dbc, itemID)
	if err != nil {
		return out, err
	}
	if item == nil {
		return out, domainagg.NewError(domainagg.CodeNotFound, opRecordAssessmentAttempt, "content item not found", nil)
	}
	if item.ContentType != types.ContentTypeAssessment {
		return out, ValidationError("content item is not an assessment")
	}
	enr, err := a.resolveEnrollment(dbc, opRecordAssessmentAttempt, learnerID, item)
	if err != nil {
		return out, err
	}
	out.EnrollmentID = enr.ID

	passedBefore, err := a.deps.Attempts.HasPassed(dbc, learnerID, item.ID)
	if err != nil {
		return out, err
	}
	prior, err := a.deps.Attempts.CountByLearnerAndItem(dbc, learnerID, item.ID)
	if err != nil {
		return out, err
	}

	grade := progress.GradeSubmission(item.Questions, answers, item.PassThreshold())
	attempt := &types.AssessmentAttempt{
		EnrollmentID:   enr.ID,
		LearnerID:      learnerID,
		ContentItemID:  item.ID,
		AttemptNumber:  prior + 1,
		Score:          grade.Score,
		Passed:         grade.Passed,
		Answers:        datatypes.JSON(payload),
		CorrectCount:   grade.CorrectCount,
		TotalQuestions: grade.TotalQuestions,
		EarnedPoints:   grade.EarnedPoints,
		TotalPoints:    grade.TotalPoints,
		CreatedAt:      a.deps.Now(),
	}
	if _, err := a.deps.Attempts.Create(dbc, attempt); err != nil {
		return out, err
	}
	out.Attempt = attempt
	out.FirstPass = grade.Passed && !passedBefore
	return out, nil
}

// Recalculate recomputes the enrollment from stored leaf state and persists it under
// the enrollment's version. A lost version check reruns the whole computation.
func (a *progressAggregate) Recalculate(ctx context.Context, enrollmentID uuid.UUID) (domainagg.RecalculateResult, error) {
	var out domainagg.RecalculateResult
	if enrollmentID == uuid.Nil {
		return out, MapError(opRecalculate, ValidationError("enrollment id is required"))
	}
	err := a.retryConflicts(ctx, opRecalculate, a.deps.MaxRecomputeAttempts, func() error {
		return executeWrite(ctx, a.deps.BaseDeps, opRecalculate, func(dbc dbctx.Context) error {
			res, err := a.recalculate(dbc, enrollmentID)
			if err != nil {
				return err
			}
			out = res
			return nil
		})
	})
	if err != nil {
		return domainagg.RecalculateResult{}, err
	}
	if out.Transitioned {
		a.deps.Log.Info("enrollment completed",
			"enrollment_id", out.EnrollmentID,
			"learner_id", out.LearnerID,
			"course_id", out.CourseID,
		)
		if a.deps.Completions != nil {
			a.deps.Completions.OnCompleted(ctx, out)
		}
	}
	return out, nil
}

func (a *progressAggregate) recalculate(dbc dbctx.Context, enrollmentID uuid.UUID) (domainagg.RecalculateResult, error) {
	var out domainagg.RecalculateResult
	enr, err := a.deps.Enrollments.GetByID(dbc, enrollmentID)
	if err != nil {
		return out, err
	}
	if enr == nil {
		return out, domainagg.NewError(domainagg.CodeNotFound, opRecalculate, "enrollment not found", nil)
	}
	tree, err := a.deps.Content.GetCourseContentTree(dbc, enr.CourseID)
	if err != nil {
		return out, err
	}
	videos, err := a.deps.Videos.ListByEnrollmentID(dbc, enr.ID)
	if err != nil {
		return out, err
	}
	attempts, err := a.deps.Attempts.ListByEnrollmentID(dbc, enr.ID)
	if err != nil {
		return out, err
	}

	w := progress.Weigh(progress.Snapshot{Course: tree, Videos: videos, Attempts: attempts})
	pct, completed := w.Percentage(), w.Complete()
	completedAt := enr.CompletedAt
	switch {
	case enr.Completed:
		// Completion is permanent even if new content lowers the ratio.
		pct, completed = 100, true
	case completed:
		pct = 100
		now := a.deps.Now()
		completedAt = &now
	case pct >= 100:
		pct = maxIncompletePercentage
	}
	if !completed {
		completedAt = nil
	}

	out = domainagg.RecalculateResult{
		EnrollmentID:       enr.ID,
		LearnerID:          enr.LearnerID,
		CourseID:           enr.CourseID,
		ProgressPercentage: pct,
		Completed:          completed,
		CompletedAt:        completedAt,
		Transitioned:       completed && !enr.Completed,
		Version:            enr.Version,
	}
	if pct == enr.ProgressPercentage && completed == enr.Completed {
		return out, nil
	}

	ok, err := a.deps.CASGuard.UpdateByVersion(dbc, types.Enrollment{}.TableName(), enr.ID, enr.Version, map[string]any{
		"progress_percentage": pct,
		"completed":           completed,
		"completed_at":        completedAt,
		"version":             enr.Version + 1,
		"updated_at":          a.deps.Now(),
	})
	if err != nil {
		return out, err
	}
	if err := RequireCASSuccess(ok, "enrollment changed during recompute"); err != nil {
		return out, err
	}
	out.Version = enr.Version + 1
	return out, nil
}
