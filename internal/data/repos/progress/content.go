package progress

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/completion-engine/internal/domain"
	"github.com/yungbote/completion-engine/internal/platform/dbctx"
	"github.com/yungbote/completion-engine/internal/platform/logger"
)

// ContentRepo reads the authoring-owned course tree. The engine never writes it
// outside of fixtures.
type ContentRepo interface {
	GetItemByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentItem, error)
	GetItemWithQuestions(dbc dbctx.Context, id uuid.UUID) (*types.ContentItem, error)
	GetCourseContentTree(dbc dbctx.Context, courseID uuid.UUID) (*types.Course, error)
}

type contentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentRepo(db *gorm.DB, baseLog *logger.Logger) ContentRepo {
	return &contentRepo{
		db:  db,
		log: baseLog.With("repo", "ContentRepo"),
	}
}

func byOrderIndex(db *gorm.DB) *gorm.DB {
	return db.Order("order_index ASC").Order("created_at ASC")
}

// GetItemByID loads the item with its owning module so callers can resolve the course.
func (r *contentRepo) GetItemByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var item types.ContentItem
	if err := transaction.WithContext(dbc.Ctx).
		Preload("Module").
		Where("id = ?", id).
		Limit(1).
		Find(&item).Error; err != nil {
		return nil, err
	}
	if item.ID == uuid.Nil {
		return nil, nil
	}
	return &item, nil
}

func (r *contentRepo) GetItemWithQuestions(dbc dbctx.Context, id uuid.UUID) (*types.ContentItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var item types.ContentItem
	if err := transaction.WithContext(dbc.Ctx).
		Preload("Module").
		Preload("Questions", byOrderIndex).
		Where("id = ?", id).
		Limit(1).
		Find(&item).Error; err != nil {
		return nil, err
	}
	if item.ID == uuid.Nil {
		return nil, nil
	}
	return &item, nil
}

// GetCourseContentTree returns modules, items and questions ordered by order_index.
func (r *contentRepo) GetCourseContentTree(dbc dbctx.Context, courseID uuid.UUID) (*types.Course, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if courseID == uuid.Nil {
		return nil, nil
	}
	var course types.Course
	if err := transaction.WithContext(dbc.Ctx).
		Preload("Modules", byOrderIndex).
		Preload("Modules.Items", byOrderIndex).
		Preload("Modules.Items.Questions", byOrderIndex).
		Where("id = ?", courseID).
		Limit(1).
		Find(&course).Error; err != nil {
		return nil, err
	}
	if course.ID == uuid.Nil {
		return nil, nil
	}
	return &course, nil
}
