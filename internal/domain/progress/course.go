package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ContentTypeVideo      = "VIDEO"
	ContentTypeArticle    = "ARTICLE"
	ContentTypeAssessment = "ASSESSMENT"

	// DefaultPassPercentage applies when an assessment item carries no threshold.
	DefaultPassPercentage = 70.0
)

// Course, CourseModule, ContentItem and Question are owned by course authoring.
// The engine only reads them.
type Course struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string          `gorm:"column:title;not null" json:"title"`
	Modules   []*CourseModule `gorm:"foreignKey:CourseID" json:"modules,omitempty"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Course) TableName() string { return "course" }

func (c *Course) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type CourseModule struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	Title      string         `gorm:"column:title;not null" json:"title"`
	OrderIndex int            `gorm:"column:order_index;not null;default:0" json:"order_index"`
	Items      []*ContentItem `gorm:"foreignKey:ModuleID" json:"items,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CourseModule) TableName() string { return "course_module" }

func (m *CourseModule) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type ContentItem struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID        uuid.UUID     `gorm:"type:uuid;not null;index" json:"module_id"`
	Module          *CourseModule `gorm:"foreignKey:ModuleID;references:ID" json:"module,omitempty"`
	Title           string        `gorm:"column:title;not null" json:"title"`
	ContentType     string        `gorm:"column:content_type;not null" json:"content_type"`
	OrderIndex      int           `gorm:"column:order_index;not null;default:0" json:"order_index"`
	DurationSeconds *int          `gorm:"column:duration_seconds" json:"duration_seconds,omitempty"`
	PassPercentage  *float64      `gorm:"column:pass_percentage" json:"pass_percentage,omitempty"`
	Questions       []*Question   `gorm:"foreignKey:ContentItemID" json:"questions,omitempty"`
	CreatedAt       time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ContentItem) TableName() string { return "content_item" }

func (c *ContentItem) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// IsCountable reports whether the item contributes weight to course progress.
func (c *ContentItem) IsCountable() bool {
	return c != nil && (c.ContentType == ContentTypeVideo || c.ContentType == ContentTypeAssessment)
}

// Duration returns the video duration, treating a missing value as zero.
func (c *ContentItem) Duration() int {
	if c == nil || c.DurationSeconds == nil || *c.DurationSeconds < 0 {
		return 0
	}
	return *c.DurationSeconds
}

// PassThreshold returns the assessment pass percentage, defaulting to 70.
func (c *ContentItem) PassThreshold() float64 {
	if c == nil || c.PassPercentage == nil {
		return DefaultPassPercentage
	}
	return *c.PassPercentage
}

type Question struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ContentItemID uuid.UUID `gorm:"type:uuid;not null;index" json:"content_item_id"`
	Prompt        string    `gorm:"column:prompt" json:"prompt"`
	Points        float64   `gorm:"column:points;not null" json:"points"`
	CorrectAnswer string    `gorm:"column:correct_answer;not null" json:"-"`
	OrderIndex    int       `gorm:"column:order_index;not null;default:0" json:"order_index"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Question) TableName() string { return "question" }

func (q *Question) BeforeCreate(*gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
