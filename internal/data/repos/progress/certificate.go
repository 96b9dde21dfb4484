package progress

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/completion-engine/internal/domain"
	"github.com/yungbote/completion-engine/internal/platform/dbctx"
	"github.com/yungbote/completion-engine/internal/platform/logger"
)

type CertificateRepo interface {
	// CreateIfAbsent inserts the certificate unless one exists for (learner, course)
	// and returns the stored row either way.
	CreateIfAbsent(dbc dbctx.Context, row *types.Certificate) (*types.Certificate, bool, error)
	GetByLearnerAndCourse(dbc dbctx.Context, learnerID, courseID uuid.UUID) (*types.Certificate, error)
}

type certificateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCertificateRepo(db *gorm.DB, baseLog *logger.Logger) CertificateRepo {
	return &certificateRepo{
		db:  db,
		log: baseLog.With("repo", "CertificateRepo"),
	}
}

func (r *certificateRepo) CreateIfAbsent(dbc dbctx.Context, row *types.Certificate) (*types.Certificate, bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil, false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "learner_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return row, true, nil
	}
	existing, err := r.GetByLearnerAndCourse(dbc, row.LearnerID, row.CourseID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *certificateRepo) GetByLearnerAndCourse(dbc dbctx.Context, learnerID, courseID uuid.UUID) (*types.Certificate, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if learnerID == uuid.Nil || courseID == uuid.Nil {
		return nil, nil
	}
	var row types.Certificate
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
