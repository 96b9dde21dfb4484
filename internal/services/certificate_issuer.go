package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/completion-engine/internal/domain"
	"github.com/yungbote/completion-engine/internal/data/repos"
	"github.com/yungbote/completion-engine/internal/platform/dbctx"
	"github.com/yungbote/completion-engine/internal/platform/logger"
)

type localCertificateIssuer struct {
	log          *logger.Logger
	enrollments  repos.EnrollmentRepo
	certificates repos.CertificateRepo
	now          func() time.Time
}

// NewLocalCertificateIssuer stores certificates in the engine's own database.
// Issuing twice for the same (learner, course) returns the existing row.
func NewLocalCertificateIssuer(log *logger.Logger, enrollments repos.EnrollmentRepo, certificates repos.CertificateRepo) types.CertificateIssuer {
	if log == nil {
		log = logger.Nop()
	}
	return &localCertificateIssuer{
		log:          log.With("service", "LocalCertificateIssuer"),
		enrollments:  enrollments,
		certificates: certificates,
		now:          time.Now,
	}
}

func (s *localCertificateIssuer) IssueCertificate(ctx context.Context, learnerID, courseID uuid.UUID) error {
	if learnerID == uuid.Nil || courseID == uuid.Nil {
		return fmt.Errorf("learner and course ids required")
	}
	dbc := dbctx.Context{Ctx: ctx}
	enrollment, err := s.enrollments.GetByLearnerAndCourse(dbc, learnerID, courseID)
	if err != nil {
		return fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment == nil {
		return fmt.Errorf("no enrollment for learner %s in course %s", learnerID, courseID)
	}
	if !enrollment.Completed {
		return fmt.Errorf("enrollment %s is not completed", enrollment.ID)
	}

	issuedAt := s.now().UTC()
	row, created, err := s.certificates.CreateIfAbsent(dbc, &types.Certificate{
		LearnerID:         learnerID,
		CourseID:          courseID,
		EnrollmentID:      enrollment.ID,
		CertificateNumber: certificateNumber(issuedAt),
		IssuedAt:          issuedAt,
	})
	if err != nil {
		return fmt.Errorf("store certificate: %w", err)
	}
	if created {
		s.log.Info("certificate issued", "learner_id", learnerID, "course_id", courseID, "certificate_number", row.CertificateNumber)
	} else {
		s.log.Debug("certificate already issued", "learner_id", learnerID, "course_id", courseID)
	}
	return nil
}

// certificateNumber looks like CE-20261014-3F9A1C2B.
func certificateNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("CE-%s-%s", at.Format("20060102"), suffix)
}

type noopCertificateIssuer struct {
	log *logger.Logger
}

// NewNoopCertificateIssuer only logs. It is meant for local development.
func NewNoopCertificateIssuer(log *logger.Logger) types.CertificateIssuer {
	if log == nil {
		log = logger.Nop()
	}
	return &noopCertificateIssuer{log: log.With("service", "NoopCertificateIssuer")}
}

func (s *noopCertificateIssuer) IssueCertificate(_ context.Context, learnerID, courseID uuid.UUID) error {
	s.log.Info("certificate issuance skipped", "learner_id", learnerID, "course_id", courseID)
	return nil
}
