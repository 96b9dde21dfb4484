package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Enrollment is the authoritative completion state for one (learner, course) pair.
// Only the progress aggregate writes ProgressPercentage, Completed, CompletedAt and Version.
type Enrollment struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_learner_course" json:"learner_id"`
	CourseID           uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_learner_course;index" json:"course_id"`
	Course             *Course    `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	ProgressPercentage float64    `gorm:"column:progress_percentage;not null;default:0" json:"progress_percentage"`
	Completed          bool       `gorm:"column:completed;not null;default:false" json:"completed"`
	CompletedAt        *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Version            int        `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	VideoProgress      []*VideoProgress     `gorm:"foreignKey:EnrollmentID;constraint:OnDelete:CASCADE" json:"-"`
	AssessmentAttempts []*AssessmentAttempt `gorm:"foreignKey:EnrollmentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Enrollment) TableName() string { return "enrollment" }

func (e *Enrollment) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
