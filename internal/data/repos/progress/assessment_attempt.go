package progress

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/completion-engine/internal/domain"
	"github.com/yungbote/completion-engine/internal/platform/dbctx"
	"github.com/yungbote/completion-engine/internal/platform/logger"
)

// AssessmentAttemptRepo is insert-only; there is deliberately no update or delete.
type AssessmentAttemptRepo interface {
	Create(dbc dbctx.Context, row *types.AssessmentAttempt) (*types.AssessmentAttempt, error)
	CountByLearnerAndItem(dbc dbctx.Context, learnerID, contentItemID uuid.UUID) (int, error)
	HasPassed(dbc dbctx.Context, learnerID, contentItemID uuid.UUID) (bool, error)
	ListByLearnerAndItem(dbc dbctx.Context, learnerID, contentItemID uuid.UUID) ([]*types.AssessmentAttempt, error)
	ListByEnrollmentID(dbc dbctx.Context, enrollmentID uuid.UUID) ([]*types.AssessmentAttempt, error)
}

type assessmentAttemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssessmentAttemptRepo(db *gorm.DB, baseLog *logger.Logger) AssessmentAttemptRepo {
	return &assessmentAttemptRepo{
		db:  db,
		log: baseLog.With("repo", "AssessmentAttemptRepo"),
	}
}

func (r *assessmentAttemptRepo) Create(dbc dbctx.Context, row *types.AssessmentAttempt) (*types.AssessmentAttempt, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *assessmentAttemptRepo) CountByLearnerAndItem(dbc dbctx.Context, learnerID, contentItemID uuid.UUID) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.AssessmentAttempt{}).
		Where("learner_id = ? AND content_item_id = ?", learnerID, contentItemID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *assessmentAttemptRepo) HasPassed(dbc dbctx.Context, learnerID, contentItemID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.AssessmentAttempt{}).
		Where("learner_id = ? AND content_item_id = ? AND passed = ?", learnerID, contentItemID, true).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *assessmentAttemptRepo) ListByLearnerAndItem(dbc dbctx.Context, learnerID, contentItemID uuid.UUID) ([]*types.AssessmentAttempt, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.AssessmentAttempt{}
	if learnerID == uuid.Nil || contentItemID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("learner_id = ? AND content_item_id = ?", learnerID, contentItemID).
		Order("attempt_number ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assessmentAttemptRepo) ListByEnrollmentID(dbc dbctx.Context, enrollmentID uuid.UUID) ([]*types.AssessmentAttempt, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.AssessmentAttempt{}
	if enrollmentID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("content_item_id ASC, attempt_number ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
