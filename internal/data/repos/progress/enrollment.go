package progress

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/completion-engine/internal/domain"
	"github.com/yungbote/completion-engine/internal/platform/dbctx"
	"github.com/yungbote/completion-engine/internal/platform/logger"
)

type EnrollmentRepo interface {
	Create(dbc dbctx.Context, rows []*types.Enrollment) ([]*types.Enrollment, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Enrollment, error)
	GetByLearnerAndCourse(dbc dbctx.Context, learnerID, courseID uuid.UUID) (*types.Enrollment, error)
	ListIDsByCourseID(dbc dbctx.Context, courseID uuid.UUID) ([]uuid.UUID, error)
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return &enrollmentRepo{
		db:  db,
		log: baseLog.With("repo", "EnrollmentRepo"),
	}
}

func (r *enrollmentRepo) Create(dbc dbctx.Context, rows []*types.Enrollment) ([]*types.Enrollment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Enrollment{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetByID returns (nil, nil) when the enrollment does not exist.
func (r *enrollmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Enrollment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Enrollment
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *enrollmentRepo) GetByLearnerAndCourse(dbc dbctx.Context, learnerID, courseID uuid.UUID) (*types.Enrollment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if learnerID == uuid.Nil || courseID == uuid.Nil {
		return nil, nil
	}
	var row types.Enrollment
	if err := transaction.WithContext(dbc.Ctx).
		Where("learner_id = ? AND course_id = ?", learnerID, courseID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *enrollmentRepo) ListIDsByCourseID(dbc dbctx.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []uuid.UUID{}
	if courseID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Enrollment{}).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Pluck("id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
