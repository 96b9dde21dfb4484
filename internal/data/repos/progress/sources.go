package progress

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/completion-engine/internal/domain"
	"github.com/yungbote/completion-engine/internal/platform/dbctx"
)

// Sources adapts the repos to the collaborator ports the engine consumes.
type Sources struct {
	Enrollments EnrollmentRepo
	Content     ContentRepo
}

var (
	_ types.EnrollmentSource  = Sources{}
	_ types.ContentTreeSource = Sources{}
)

func (s Sources) GetEnrollment(ctx context.Context, learnerID, courseID uuid.UUID) (*types.Enrollment, error) {
	return s.Enrollments.GetByLearnerAndCourse(dbctx.Context{Ctx: ctx}, learnerID, courseID)
}

func (s Sources) GetCourseContentTree(ctx context.Context, courseID uuid.UUID) (*types.Course, error) {
	return s.Content.GetCourseContentTree(dbctx.Context{Ctx: ctx}, courseID)
}
