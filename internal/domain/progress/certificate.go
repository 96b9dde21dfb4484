package progress

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrAttemptImmutable = errors.New("assessment attempts are immutable")

// Certificate is issued once per (learner, course) by the local issuer.
type Certificate struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_certificate_learner_course" json:"learner_id"`
	CourseID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_certificate_learner_course" json:"course_id"`
	EnrollmentID      uuid.UUID `gorm:"type:uuid;index" json:"enrollment_id"`
	CertificateNumber string    `gorm:"column:certificate_number;not null;uniqueIndex:idx_certificate_number" json:"certificate_number"`
	IssuedAt          time.Time `gorm:"column:issued_at;not null" json:"issued_at"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Certificate) TableName() string { return "certificate" }

func (c *Certificate) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
