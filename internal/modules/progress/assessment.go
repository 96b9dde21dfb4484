package progress

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	types "github.com/yungbote/completion-engine/internal/domain"
	domainagg "github.com/yungbote/completion-engine/internal/domain/aggregates"
	"github.com/yungbote/completion-engine/internal/platform/apierr"
	"github.com/yungbote/completion-engine/internal/platform/dbctx"
)

type SubmitAssessmentInput struct {
	LearnerID     uuid.UUID
	ContentItemID uuid.UUID
	// Answers maps question id to the submitted choice.
	Answers map[string]string
}

type AttemptResult struct {
	AttemptID      uuid.UUID `json:"attempt_id"`
	AttemptNumber  int       `json:"attempt_number"`
	Score          float64   `json:"score"`
	Passed         bool      `json:"passed"`
	CorrectCount   int       `json:"correct_count"`
	TotalQuestions int       `json:"total_questions"`
	EarnedPoints   float64   `json:"earned_points"`
	TotalPoints    float64   `json:"total_points"`
	FirstPass      bool      `json:"first_pass"`
	Progress       *Summary  `json:"progress,omitempty"`
}

// SubmitAssessment grades and stores an attempt. Only the first passing attempt
// for a learner and assessment changes course progress, so only it recomputes.
func (u Usecases) SubmitAssessment(ctx context.Context, in SubmitAssessmentInput) (AttemptResult, error) {
	var out AttemptResult
	res, err := u.deps.Aggregate.RecordAssessmentAttempt(ctx, domainagg.AssessmentAttemptInput{
		LearnerID:     in.LearnerID,
		ContentItemID: in.ContentItemID,
		Answers:       in.Answers,
	})
	if err != nil {
		return out, apierr.From(err)
	}
	a := res.Attempt
	out = AttemptResult{
		AttemptID:      a.ID,
		AttemptNumber:  a.AttemptNumber,
		Score:          a.Score,
		Passed:         a.Passed,
		CorrectCount:   a.CorrectCount,
		TotalQuestions: a.TotalQuestions,
		EarnedPoints:   a.EarnedPoints,
		TotalPoints:    a.TotalPoints,
		FirstPass:      res.FirstPass,
	}
	if !res.FirstPass {
		return out, nil
	}

	summary, err := u.recompute(ctx, res.EnrollmentID)
	if err != nil {
		return out, apierr.From(err)
	}
	out.Progress = summary
	return out, nil
}

// ListAttempts returns the learner's attempts for one assessment, oldest first.
func (u Usecases) ListAttempts(ctx context.Context, learnerID, contentItemID uuid.UUID) ([]*types.AssessmentAttempt, error) {
	if learnerID == uuid.Nil {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", nil)
	}
	if contentItemID == uuid.Nil {
		return nil, apierr.New(http.StatusBadRequest, string(domainagg.CodeValidation), fmt.Errorf("missing content item id"))
	}
	dbc := dbctx.Context{Ctx: ctx}
	item, err := u.deps.Content.GetItemByID(dbc, contentItemID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "load_item_failed", err)
	}
	if item == nil || item.Module == nil {
		return nil, apierr.New(http.StatusNotFound, string(domainagg.CodeNotFound), fmt.Errorf("content item not found"))
	}
	if item.ContentType != types.ContentTypeAssessment {
		return nil, apierr.New(http.StatusBadRequest, string(domainagg.CodeValidation), fmt.Errorf("content item is not an assessment"))
	}
	enr, err := u.deps.Enrollments.GetByLearnerAndCourse(dbc, learnerID, item.Module.CourseID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "load_enrollment_failed", err)
	}
	if enr == nil {
		return nil, apierr.New(http.StatusForbidden, string(domainagg.CodeNotEnrolled), fmt.Errorf("learner is not enrolled in the course"))
	}
	rows, err := u.deps.Attempts.ListByLearnerAndItem(dbc, learnerID, contentItemID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "load_attempts_failed", err)
	}
	return rows, nil
}
