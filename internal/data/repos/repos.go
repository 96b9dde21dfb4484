package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/completion-engine/internal/data/repos/progress"
	"github.com/yungbote/completion-engine/internal/platform/logger"
)

type EnrollmentRepo = progress.EnrollmentRepo
type ContentRepo = progress.ContentRepo
type VideoProgressRepo = progress.VideoProgressRepo
type AssessmentAttemptRepo = progress.AssessmentAttemptRepo
type CertificateRepo = progress.CertificateRepo

type Sources = progress.Sources

// Set bundles every repo the engine needs.
type Set struct {
	Enrollments  EnrollmentRepo
	Content      ContentRepo
	Videos       VideoProgressRepo
	Attempts     AssessmentAttemptRepo
	Certificates CertificateRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Enrollments:  progress.NewEnrollmentRepo(db, log),
		Content:      progress.NewContentRepo(db, log),
		Videos:       progress.NewVideoProgressRepo(db, log),
		Attempts:     progress.NewAssessmentAttemptRepo(db, log),
		Certificates: progress.NewCertificateRepo(db, log),
	}
}

func (s Set) Sources() Sources {
	return Sources{Enrollments: s.Enrollments, Content: s.Content}
}
