package progress

import (
	"context"

	"github.com/google/uuid"
)

// EnrollmentSource resolves the enrollment for a (learner, course) pair.
// Implementations return (nil, nil) when the learner is not enrolled.
type EnrollmentSource interface {
	GetEnrollment(ctx context.Context, learnerID, courseID uuid.UUID) (*Enrollment, error)
}

// ContentTreeSource returns the ordered module/item/question tree of a course.
type ContentTreeSource interface {
	GetCourseContentTree(ctx context.Context, courseID uuid.UUID) (*Course, error)
}

// CertificateIssuer issues a completion certificate. It is called outside any
// transaction and its failures never affect stored progress.
type CertificateIssuer interface {
	IssueCertificate(ctx context.Context, learnerID, courseID uuid.UUID) error
}
