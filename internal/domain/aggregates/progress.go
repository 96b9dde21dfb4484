package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/completion-engine/internal/domain"
)

// ProgressAggregateContract owns every write to enrollment completion state and
// to the learner leaf rows that feed it.
var ProgressAggregateContract = Contract{
	Name:             "progress",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "leaf writes commit before recompute; enrollment updates are version-guarded",
}

type VideoProgressInput struct {
	LearnerID             uuid.UUID
	ContentItemID         uuid.UUID
	LastPositionSeconds   int
	TotalWatchTimeSeconds *int
	Completed             *bool
}

type VideoProgressResult struct {
	Progress *types.VideoProgress
	// Unchanged is set when a completed row was left as stored.
	Unchanged bool
	// NeedsRecompute is set when the stored row is completed after the write.
	NeedsRecompute bool
	EnrollmentID   uuid.UUID
}

type AssessmentAttemptInput struct {
	LearnerID     uuid.UUID
	ContentItemID uuid.UUID
	Answers       map[string]string
}

type AssessmentAttemptResult struct {
	Attempt      *types.AssessmentAttempt
	EnrollmentID uuid.UUID
	// FirstPass is set when this attempt is the first passing one for the pair.
	FirstPass bool
}

type RecalculateResult struct {
	EnrollmentID       uuid.UUID
	LearnerID          uuid.UUID
	CourseID           uuid.UUID
	ProgressPercentage float64
	Completed          bool
	CompletedAt        *time.Time
	// Transitioned is set only for the write that flipped Completed from false to true.
	Transitioned bool
	Version      int
}

// ProgressAggregate is the write boundary of the completion engine.
type ProgressAggregate interface {
	Aggregate
	RecordVideoProgress(ctx context.Context, in VideoProgressInput) (VideoProgressResult, error)
	RecordAssessmentAttempt(ctx context.Context, in AssessmentAttemptInput) (AssessmentAttemptResult, error)
	Recalculate(ctx context.Context, enrollmentID uuid.UUID) (RecalculateResult, error)
}
