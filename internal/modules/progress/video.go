package progress

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/completion-engine/internal/domain"
	domainagg "github.com/yungbote/completion-engine/internal/domain/aggregates"
	"github.com/yungbote/completion-engine/internal/platform/apierr"
)

type UpdateVideoProgressInput struct {
	LearnerID             uuid.UUID
	ContentItemID         uuid.UUID
	LastPositionSeconds   int
	TotalWatchTimeSeconds *int
	Completed             *bool
}

type UpdateVideoProgressOutput struct {
	Progress *types.VideoProgress `json:"video_progress"`
	// Enrollment is set only when the write triggered a recompute.
	Enrollment *Summary `json:"enrollment,omitempty"`
}

// UpdateVideoProgress stores a watch event. Once a video is completed, events that
// do not re-assert completion leave the stored row untouched.
func (u Usecases) UpdateVideoProgress(ctx context.Context, in UpdateVideoProgressInput) (UpdateVideoProgressOutput, error) {
	var out UpdateVideoProgressOutput
	res, err := u.deps.Aggregate.RecordVideoProgress(ctx, domainagg.VideoProgressInput{
		LearnerID:             in.LearnerID,
		ContentItemID:         in.ContentItemID,
		LastPositionSeconds:   in.LastPositionSeconds,
		TotalWatchTimeSeconds: in.TotalWatchTimeSeconds,
		Completed:             in.Completed,
	})
	if err != nil {
		return out, apierr.From(err)
	}
	out.Progress = res.Progress
	if res.Unchanged || !res.NeedsRecompute {
		return out, nil
	}

	summary, err := u.recompute(ctx, res.EnrollmentID)
	if err != nil {
		return out, apierr.From(err)
	}
	out.Enrollment = summary
	return out, nil
}
