package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VideoProgress is one row per (learner, video item). DurationSeconds is the weight
// snapshot taken when the row was created. Completed never goes back to false.
type VideoProgress struct {
	ID                    uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	EnrollmentID          uuid.UUID    `gorm:"type:uuid;not null;index" json:"enrollment_id"`
	Enrollment            *Enrollment  `gorm:"constraint:OnDelete:CASCADE;foreignKey:EnrollmentID;references:ID" json:"-"`
	LearnerID             uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_video_progress_learner_item" json:"learner_id"`
	ContentItemID         uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_video_progress_learner_item" json:"content_item_id"`
	ContentItem           *ContentItem `gorm:"foreignKey:ContentItemID;references:ID" json:"-"`
	DurationSeconds       int          `gorm:"column:duration_seconds;not null;default:0" json:"duration_seconds"`
	LastPositionSeconds   int          `gorm:"column:last_position_seconds;not null;default:0" json:"last_position_seconds"`
	TotalWatchTimeSeconds int          `gorm:"column:total_watch_time_seconds;not null;default:0" json:"total_watch_time_seconds"`
	Completed             bool         `gorm:"column:completed;not null;default:false" json:"completed"`
	CompletedAt           *time.Time   `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt             time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (VideoProgress) TableName() string { return "video_progress" }

func (v *VideoProgress) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
