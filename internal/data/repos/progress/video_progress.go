package progress

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/completion-engine/internal/domain"
	"github.com/yungbote/completion-engine/internal/platform/dbctx"
	"github.com/yungbote/completion-engine/internal/platform/logger"
)

type VideoProgressRepo interface {
	Create(dbc dbctx.Context, row *types.VideoProgress) (*types.VideoProgress, error)
	GetByLearnerAndItem(dbc dbctx.Context, learnerID, contentItemID uuid.UUID) (*types.VideoProgress, error)
	ListByEnrollmentID(dbc dbctx.Context, enrollmentID uuid.UUID) ([]*types.VideoProgress, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// UpdateIfIncomplete applies updates only while the row is not completed and
	// reports whether a row was written.
	UpdateIfIncomplete(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) (bool, error)
}

type videoProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoProgressRepo(db *gorm.DB, baseLog *logger.Logger) VideoProgressRepo {
	return &videoProgressRepo{
		db:  db,
		log: baseLog.With("repo", "VideoProgressRepo"),
	}
}

func (r *videoProgressRepo) Create(dbc dbctx.Context, row *types.VideoProgress) (*types.VideoProgress, error) {
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

func (r *videoProgressRepo) GetByLearnerAndItem(dbc dbctx.Context, learnerID, contentItemID uuid.UUID) (*types.VideoProgress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if learnerID == uuid.Nil || contentItemID == uuid.Nil {
		return nil, nil
	}
	var row types.VideoProgress
	if err := transaction.WithContext(dbc.Ctx).
		Where("learner_id = ? AND content_item_id = ?", learnerID, contentItemID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *videoProgressRepo) ListByEnrollmentID(dbc dbctx.Context, enrollmentID uuid.UUID) ([]*types.VideoProgress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.VideoProgress{}
	if enrollmentID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *videoProgressRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.VideoProgress{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *videoProgressRepo) UpdateIfIncomplete(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.VideoProgress{}).
		Where("id = ? AND completed = ?", id, false).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
