package services

import (
	"context"
	"sync"
	"time"

	types "github.com/yungbote/completion-engine/internal/domain"
	domainagg "github.com/yungbote/completion-engine/internal/domain/aggregates"
	"github.com/yungbote/completion-engine/internal/observability"
	"github.com/yungbote/completion-engine/internal/platform/logger"
)

const (
	DefaultCertificateWorkers = 4
	DefaultCertificateTimeout = 10 * time.Second
	defaultCertificateQueue   = 256
)

type CompletionTriggerOptions struct {
	Workers   int
	Timeout   time.Duration
	QueueSize int
	Metrics   *observability.Metrics
	Events    ProgressEvents
}

type certificateJob struct {
	ctx context.Context
	res domainagg.RecalculateResult
}

// CompletionTrigger issues certificates for enrollments that just completed.
// It runs the issuer on a fixed pool of workers, each call bounded by Timeout.
// Issuer failures are logged and dropped.
type CompletionTrigger struct {
	log     *logger.Logger
	issuer  types.CertificateIssuer
	metrics *observability.Metrics
	events  ProgressEvents
	timeout time.Duration

	jobs   chan certificateJob
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewCompletionTrigger(log *logger.Logger, issuer types.CertificateIssuer, opts CompletionTriggerOptions) *CompletionTrigger {
	if log == nil {
		log = logger.Nop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultCertificateWorkers
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultCertificateTimeout
	}
	queue := opts.QueueSize
	if queue <= 0 {
		queue = defaultCertificateQueue
	}
	t := &CompletionTrigger{
		log:     log.With("service", "CompletionTrigger"),
		issuer:  issuer,
		metrics: opts.Metrics,
		events:  opts.Events,
		timeout: timeout,
		jobs:    make(chan certificateJob, queue),
	}
	for i := 0; i < workers; i++ {
		t.wg.Add(1)
		go t.work()
	}
	return t
}

// OnCompleted ignores results that did not flip the enrollment to completed.
// It returns immediately; a full queue drops the issuance.
func (t *CompletionTrigger) OnCompleted(ctx context.Context, res domainagg.RecalculateResult) {
	if t == nil || !res.Transitioned {
		return
	}
	t.metrics.IncCompletion()
	if t.events != nil {
		t.events.CourseCompleted(ctx, res)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		t.log.Warn("completion trigger closed; certificate not issued", "enrollment_id", res.EnrollmentID)
		t.metrics.IncCertificate("dropped")
		return
	}
	job := certificateJob{ctx: context.WithoutCancel(ctx), res: res}
	// Never block the recompute that reported the transition.
	select {
	case t.jobs <- job:
	default:
		t.log.Warn("certificate queue full; certificate not issued", "enrollment_id", res.EnrollmentID)
		t.metrics.IncCertificate("dropped")
	}
}

func (t *CompletionTrigger) work() {
	defer t.wg.Done()
	for job := range t.jobs {
		t.issue(job)
	}
}

func (t *CompletionTrigger) issue(job certificateJob) {
	ctx, cancel := context.WithTimeout(job.ctx, t.timeout)
	defer cancel()

	start := time.Now()
	err := t.call(ctx, job.res)
	if err != nil {
		t.metrics.IncCertificate("failed")
		t.log.Error("certificate issuance failed",
			"enrollment_id", job.res.EnrollmentID,
			"learner_id", job.res.LearnerID,
			"course_id", job.res.CourseID,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return
	}
	t.metrics.IncCertificate("issued")
	t.log.Debug("certificate issuance dispatched", "enrollment_id", job.res.EnrollmentID)
}

func (t *CompletionTrigger) call(ctx context.Context, res domainagg.RecalculateResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domainagg.NewError(domainagg.CodeInternal, "certificate.Issue", "issuer panicked", nil)
		}
	}()
	if t.issuer == nil {
		return nil
	}
	return t.issuer.IssueCertificate(ctx, res.LearnerID, res.CourseID)
}

// Close stops accepting completions and waits for queued issuances.
func (t *CompletionTrigger) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.jobs)
	t.mu.Unlock()
	t.wg.Wait()
}
