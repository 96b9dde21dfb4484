package progress

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AssessmentAttempt is an immutable scored submission. Rows are only ever inserted.
type AssessmentAttempt struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EnrollmentID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"enrollment_id"`
	Enrollment     *Enrollment    `gorm:"constraint:OnDelete:CASCADE;foreignKey:EnrollmentID;references:ID" json:"-"`
	LearnerID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_attempt_learner_item_number" json:"learner_id"`
	ContentItemID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_attempt_learner_item_number" json:"content_item_id"`
	AttemptNumber  int            `gorm:"column:attempt_number;not null;uniqueIndex:idx_attempt_learner_item_number" json:"attempt_number"`
	Score          float64        `gorm:"column:score;not null" json:"score"`
	Passed         bool           `gorm:"column:passed;not null" json:"passed"`
	Answers        datatypes.JSON `gorm:"column:answers" json:"answers"`
	CorrectCount   int            `gorm:"column:correct_count;not null;default:0" json:"correct_count"`
	TotalQuestions int            `gorm:"column:total_questions;not null;default:0" json:"total_questions"`
	EarnedPoints   float64        `gorm:"column:earned_points;not null;default:0" json:"earned_points"`
	TotalPoints    float64        `gorm:"column:total_points;not null;default:0" json:"total_points"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (AssessmentAttempt) TableName() string { return "assessment_attempt" }

func (a *AssessmentAttempt) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// BeforeUpdate rejects any in-place modification of an attempt.
func (a *AssessmentAttempt) BeforeUpdate(*gorm.DB) error {
	return ErrAttemptImmutable
}

// AnswerMap decodes the stored answers; a malformed payload decodes as empty.
func (a *AssessmentAttempt) AnswerMap() map[string]string {
	out := map[string]string{}
	if a == nil || len(a.Answers) == 0 {
		return out
	}
	_ = json.Unmarshal(a.Answers, &out)
	return out
}
