package domain

import (
	"github.com/yungbote/completion-engine/internal/domain/progress"
)

const (
	ContentTypeVideo      = progress.ContentTypeVideo
	ContentTypeArticle    = progress.ContentTypeArticle
	ContentTypeAssessment = progress.ContentTypeAssessment

	DefaultPassPercentage = progress.DefaultPassPercentage
)

type Course = progress.Course
type CourseModule = progress.CourseModule
type ContentItem = progress.ContentItem
type Question = progress.Question

type Enrollment = progress.Enrollment
type VideoProgress = progress.VideoProgress
type AssessmentAttempt = progress.AssessmentAttempt
type Certificate = progress.Certificate

type EnrollmentSource = progress.EnrollmentSource
type ContentTreeSource = progress.ContentTreeSource
type CertificateIssuer = progress.CertificateIssuer

var ErrAttemptImmutable = progress.ErrAttemptImmutable

// Models lists every table owned by the engine, in migration order.
func Models() []any {
	return []any{
		&Course{},
		&CourseModule{},
		&ContentItem{},
		&Question{},
		&Enrollment{},
		&VideoProgress{},
		&AssessmentAttempt{},
		&Certificate{},
	}
}
