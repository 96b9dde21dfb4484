package aggregates_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/completion-engine/internal/data/aggregates"
	aggtestutil "github.com/yungbote/completion-engine/internal/data/aggregates/testutil"
	"github.com/yungbote/completion-engine/internal/data/repos"
	"github.com/yungbote/completion-engine/internal/data/repos/testutil"
	types "github.com/yungbote/completion-engine/internal/domain"
	domainagg "github.com/yungbote/completion-engine/internal/domain/aggregates"
	"github.com/yungbote/completion-engine/internal/platform/dbctx"
)

type countingNotifier struct {
	mu    sync.Mutex
	calls []domainagg.RecalculateResult
}

func (n *countingNotifier) OnCompleted(_ context.Context, res domainagg.RecalculateResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, res)
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type fixture struct {
	db       *gorm.DB
	repos    repos.Set
	hooks    *aggtestutil.HooksRecorder
	notifier *countingNotifier
	course   *types.Course
	module   *types.CourseModule
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, ctx, db, "course")
	return &fixture{
		db:       db,
		repos:    repos.NewSet(db, testutil.Logger(t)),
		hooks:    &aggtestutil.HooksRecorder{},
		notifier: &countingNotifier{},
		course:   course,
		module:   testutil.SeedModule(t, ctx, db, course.ID, 0),
	}
}

func (f *fixture) deps(t *testing.T) aggregates.ProgressAggregateDeps {
	return aggregates.ProgressAggregateDeps{
		BaseDeps: aggregates.BaseDeps{
			DB:    f.db,
			Log:   testutil.Logger(t),
			Hooks: f.hooks,
		},
		Enrollments: f.repos.Enrollments,
		Content:     f.repos.Content,
		Videos:      f.repos.Videos,
		Attempts:    f.repos.Attempts,
		Completions: f.notifier,
	}
}

func (f *fixture) aggregate(t *testing.T) domainagg.ProgressAggregate {
	return aggregates.NewProgressAggregate(f.deps(t))
}

func (f *fixture) enrollment(t *testing.T, id uuid.UUID) *types.Enrollment {
	t.Helper()
	enr, err := f.repos.Enrollments.GetByID(dbctx.Context{Ctx: context.Background()}, id)
	if err != nil || enr == nil {
		t.Fatalf("load enrollment: err=%v", err)
	}
	return enr
}

// assessment seeds a 20-question assessment whose correct answer is "a".
func (f *fixture) assessment(t *testing.T, order int) (*types.ContentItem, []*types.Question) {
	t.Helper()
	answers := make([]string, 20)
	for i := range answers {
		answers[i] = "a"
	}
	return testutil.SeedAssessment(t, context.Background(), f.db, f.module.ID, order, nil, answers...)
}

func answersScoring(qs []*types.Question, correct int) map[string]string {
	out := map[string]string{}
	for i, q := range qs {
		if i < correct {
			out[q.ID.String()] = "A"
		} else {
			out[q.ID.String()] = "b"
		}
	}
	return out
}

func TestRecordVideoProgressValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agg := f.aggregate(t)

	video := testutil.SeedVideo(t, ctx, f.db, f.module.ID, 0, testutil.PtrInt(100))
	article := testutil.SeedArticle(t, ctx, f.db, f.module.ID, 1)
	learner := uuid.New()

	tests := []struct {
		name string
		in   domainagg.VideoProgressInput
		code domainagg.ErrorCode
	}{
		{"unknown item", domainagg.VideoProgressInput{LearnerID: learner, ContentItemID: uuid.New()}, domainagg.CodeNotFound},
		{"not a video", domainagg.VideoProgressInput{LearnerID: learner, ContentItemID: article.ID}, domainagg.CodeValidation},
		{"not enrolled", domainagg.VideoProgressInput{LearnerID: learner, ContentItemID: video.ID}, domainagg.CodeNotEnrolled},
		{"negative position", domainagg.VideoProgressInput{LearnerID: learner, ContentItemID: video.ID, LastPositionSeconds: -1}, domainagg.CodeValidation},
		{"negative watch time", domainagg.VideoProgressInput{LearnerID: learner, ContentItemID: video.ID, TotalWatchTimeSeconds: testutil.PtrInt(-5)}, domainagg.CodeValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := agg.RecordVideoProgress(ctx, tc.in)
			if !domainagg.IsCode(err, tc.code) {
				t.Fatalf("want code=%s got=%q (%v)", tc.code, domainagg.CodeOf(err), err)
			}
		})
	}
}

func TestRecordVideoProgressMonotonicCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agg := f.aggregate(t)

	video := testutil.SeedVideo(t, ctx, f.db, f.module.ID, 0, testutil.PtrInt(100))
	learner := uuid.New()
	enr := testutil.SeedEnrollment(t, ctx, f.db, learner, f.course.ID)

	res, err := agg.RecordVideoProgress(ctx, domainagg.VideoProgressInput{
		LearnerID: learner, ContentItemID: video.ID, LastPositionSeconds: 30, TotalWatchTimeSeconds: testutil.PtrInt(30),
	})
	if err != nil {
		t.Fatalf("first event: %v", err)
	}
	if res.NeedsRecompute || res.Progress.DurationSeconds != 100 || res.EnrollmentID != enr.ID {
		t.Fatalf("first event: unexpected result %+v", res)
	}

	res, err = agg.RecordVideoProgress(ctx, domainagg.VideoProgressInput{
		LearnerID: learner, ContentItemID: video.ID, LastPositionSeconds: 100, Completed: testutil.PtrBool(true),
	})
	if err != nil {
		t.Fatalf("completion event: %v", err)
	}
	if !res.NeedsRecompute || !res.Progress.Completed || res.Progress.CompletedAt == nil {
		t.Fatalf("completion event: unexpected result %+v", res)
	}
	if res.Progress.TotalWatchTimeSeconds != 30 {
		t.Fatalf("watch time should be kept when not provided: got=%d", res.Progress.TotalWatchTimeSeconds)
	}
	firstCompletedAt := *res.Progress.CompletedAt

	res, err = agg.RecordVideoProgress(ctx, domainagg.VideoProgressInput{
		LearnerID: learner, ContentItemID: video.ID, LastPositionSeconds: 5, TotalWatchTimeSeconds: testutil.PtrInt(200), Completed: testutil.PtrBool(false),
	})
	if err != nil {
		t.Fatalf("rewatch event: %v", err)
	}
	if !res.Unchanged || res.NeedsRecompute {
		t.Fatalf("rewatch event should be a no-op: %+v", res)
	}
	stored, err := f.repos.Videos.GetByLearnerAndItem(dbctx.Context{Ctx: ctx}, learner, video.ID)
	if err != nil || stored == nil {
		t.Fatalf("load video progress: %v", err)
	}
	if !stored.Completed || stored.LastPositionSeconds != 100 || stored.TotalWatchTimeSeconds != 30 {
		t.Fatalf("completed row must not change: %+v", stored)
	}

	res, err = agg.RecordVideoProgress(ctx, domainagg.VideoProgressInput{
		LearnerID: learner, ContentItemID: video.ID, LastPositionSeconds: 90, Completed: testutil.PtrBool(true),
	})
	if err != nil {
		t.Fatalf("re-assert event: %v", err)
	}
	if !res.NeedsRecompute || res.Progress.LastPositionSeconds != 90 {
		t.Fatalf("re-assert event: unexpected result %+v", res)
	}
	if res.Progress.CompletedAt == nil || !res.Progress.CompletedAt.Equal(firstCompletedAt) {
		t.Fatalf("completed_at should keep the first completion time")
	}
}

func TestRecalculateWeighting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agg := f.aggregate(t)

	video := testutil.SeedVideo(t, ctx, f.db, f.module.ID, 0, testutil.PtrInt(100))
	quiz, qs := f.assessment(t, 1)
	learner := uuid.New()
	enr := testutil.SeedEnrollment(t, ctx, f.db, learner, f.course.ID)

	res, err := agg.Recalculate(ctx, enr.ID)
	if err != nil {
		t.Fatalf("Recalculate(empty): %v", err)
	}
	if res.ProgressPercentage != 0 || res.Completed || res.Transitioned {
		t.Fatalf("empty: unexpected %+v", res)
	}

	if _, err := agg.RecordVideoProgress(ctx, domainagg.VideoProgressInput{
		LearnerID: learner, ContentItemID: video.ID, LastPositionSeconds: 100, Completed: testutil.PtrBool(true),
	}); err != nil {
		t.Fatalf("RecordVideoProgress: %v", err)
	}
	res, err = agg.Recalculate(ctx, enr.ID)
	if err != nil {
		t.Fatalf("Recalculate(video): %v", err)
	}
	if res.ProgressPercentage != 14.29 || res.Completed {
		t.Fatalf("video only: want=14.29 got=%+v", res)
	}
	if stored := f.enrollment(t, enr.ID); stored.ProgressPercentage != 14.29 || stored.Version != 1 {
		t.Fatalf("stored enrollment: %+v", stored)
	}

	attempt, err := agg.RecordAssessmentAttempt(ctx, domainagg.AssessmentAttemptInput{
		LearnerID: learner, ContentItemID: quiz.ID, Answers: answersScoring(qs, 20),
	})
	if err != nil {
		t.Fatalf("RecordAssessmentAttempt: %v", err)
	}
	if !attempt.FirstPass {
		t.Fatalf("expected first pass")
	}
	res, err = agg.Recalculate(ctx, enr.ID)
	if err != nil {
		t.Fatalf("Recalculate(all): %v", err)
	}
	if res.ProgressPercentage != 100 || !res.Completed || !res.Transitioned || res.CompletedAt == nil {
		t.Fatalf("all done: unexpected %+v", res)
	}

	again, err := agg.Recalculate(ctx, enr.ID)
	if err != nil {
		t.Fatalf("Recalculate(again): %v", err)
	}
	if again.Transitioned || !again.Completed || again.ProgressPercentage != 100 {
		t.Fatalf("repeat recompute should be stable: %+v", again)
	}
	if !again.CompletedAt.Equal(*res.CompletedAt) {
		t.Fatalf("completed_at should not move on repeat recompute")
	}
	if f.notifier.count() != 1 {
		t.Fatalf("completion notifications: want=1 got=%d", f.notifier.count())
	}
}

func TestRecalculateNeverUncompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agg := f.aggregate(t)

	video := testutil.SeedVideo(t, ctx, f.db, f.module.ID, 0, testutil.PtrInt(60))
	learner := uuid.New()
	enr := testutil.SeedEnrollment(t, ctx, f.db, learner, f.course.ID)

	if _, err := agg.RecordVideoProgress(ctx, domainagg.VideoProgressInput{
		LearnerID: learner, ContentItemID: video.ID, LastPositionSeconds: 60, Completed: testutil.PtrBool(true),
	}); err != nil {
		t.Fatalf("RecordVideoProgress: %v", err)
	}
	if res, err := agg.Recalculate(ctx, enr.ID); err != nil || !res.Completed {
		t.Fatalf("Recalculate: err=%v res=%+v", err, res)
	}

	testutil.SeedVideo(t, ctx, f.db, f.module.ID, 1, testutil.PtrInt(600))
	res, err := agg.Recalculate(ctx, enr.ID)
	if err != nil {
		t.Fatalf("Recalculate(after new content): %v", err)
	}
	if !res.Completed || res.ProgressPercentage != 100 || res.Transitioned {
		t.Fatalf("completed enrollment must stay complete: %+v", res)
	}
	if f.notifier.count() != 1 {
		t.Fatalf("completion notifications: want=1 got=%d", f.notifier.count())
	}
}

func TestRecalculateZeroContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agg := f.aggregate(t)

	testutil.SeedArticle(t, ctx, f.db, f.module.ID, 0)
	enr := testutil.SeedEnrollment(t, ctx, f.db, uuid.New(), f.course.ID)

	res, err := agg.Recalculate(ctx, enr.ID)
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if res.ProgressPercentage != 0 || res.Completed {
		t.Fatalf("zero content: want 0/false got=%+v", res)
	}
	if f.notifier.count() != 0 {
		t.Fatalf("no completion expected")
	}
}

func TestRecalculateUnknownEnrollment(t *testing.T) {
	f := newFixture(t)
	_, err := f.aggregate(t).Recalculate(context.Background(), uuid.New())
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("want not_found got=%q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestRecordAssessmentAttemptBestOf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agg := f.aggregate(t)

	quiz, qs := f.assessment(t, 0)
	learner := uuid.New()
	enr := testutil.SeedEnrollment(t, ctx, f.db, learner, f.course.ID)

	want := []struct {
		correct   int
		score     float64
		passed    bool
		firstPass bool
	}{
		{8, 40, false, false},
		{17, 85, true, true},
		{12, 60, false, false},
	}
	for i, w := range want {
		res, err := agg.RecordAssessmentAttempt(ctx, domainagg.AssessmentAttemptInput{
			LearnerID: learner, ContentItemID: quiz.ID, Answers: answersScoring(qs, w.correct),
		})
		if err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
		if res.Attempt.AttemptNumber != i+1 {
			t.Fatalf("attempt number: want=%d got=%d", i+1, res.Attempt.AttemptNumber)
		}
		if res.Attempt.Score != w.score || res.Attempt.Passed != w.passed || res.FirstPass != w.firstPass {
			t.Fatalf("attempt %d: unexpected %+v firstPass=%v", i+1, res.Attempt, res.FirstPass)
		}
		if res.Attempt.CorrectCount != w.correct || res.Attempt.TotalQuestions != 20 || res.Attempt.TotalPoints != 20 {
			t.Fatalf("attempt %d: counts %+v", i+1, res.Attempt)
		}
	}

	res, err := agg.Recalculate(ctx, enr.ID)
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if !res.Completed || res.ProgressPercentage != 100 {
		t.Fatalf("best-of-N should complete the assessment: %+v", res)
	}
}

func TestRecordAssessmentAttemptErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agg := f.aggregate(t)

	quiz, _ := f.assessment(t, 0)
	video := testutil.SeedVideo(t, ctx, f.db, f.module.ID, 1, testutil.PtrInt(10))
	learner := uuid.New()

	if _, err := agg.RecordAssessmentAttempt(ctx, domainagg.AssessmentAttemptInput{LearnerID: learner, ContentItemID: uuid.New()}); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unknown item: got=%v", err)
	}
	if _, err := agg.RecordAssessmentAttempt(ctx, domainagg.AssessmentAttemptInput{LearnerID: learner, ContentItemID: video.ID}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("video item: got=%v", err)
	}
	if _, err := agg.RecordAssessmentAttempt(ctx, domainagg.AssessmentAttemptInput{LearnerID: learner, ContentItemID: quiz.ID}); !domainagg.IsCode(err, domainagg.CodeNotEnrolled) {
		t.Fatalf("not enrolled: got=%v", err)
	}
}

func TestRecordAssessmentAttemptZeroQuestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agg := f.aggregate(t)

	strict, _ := testutil.SeedAssessment(t, ctx, f.db, f.module.ID, 0, nil)
	lenient, _ := testutil.SeedAssessment(t, ctx, f.db, f.module.ID, 1, testutil.PtrFloat(0))
	learner := uuid.New()
	testutil.SeedEnrollment(t, ctx, f.db, learner, f.course.ID)

	res, err := agg.RecordAssessmentAttempt(ctx, domainagg.AssessmentAttemptInput{LearnerID: learner, ContentItemID: strict.ID})
	if err != nil {
		t.Fatalf("strict: %v", err)
	}
	if res.Attempt.Score != 0 || res.Attempt.Passed {
		t.Fatalf("strict: want score=0 passed=false got=%+v", res.Attempt)
	}
	res, err = agg.RecordAssessmentAttempt(ctx, domainagg.AssessmentAttemptInput{LearnerID: learner, ContentItemID: lenient.ID})
	if err != nil {
		t.Fatalf("lenient: %v", err)
	}
	if res.Attempt.Score != 0 || !res.Attempt.Passed {
		t.Fatalf("lenient: want score=0 passed=true got=%+v", res.Attempt)
	}
}

// staleEnrollments reports an outdated version for the first n reads.
type staleEnrollments struct {
	repos.EnrollmentRepo
	mu    sync.Mutex
	stale int
}

func (s *staleEnrollments) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Enrollment, error) {
	enr, err := s.EnrollmentRepo.GetByID(dbc, id)
	if err != nil || enr == nil {
		return enr, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale > 0 {
		s.stale--
		enr.Version += 100
	}
	return enr, nil
}

func TestRecalculateRetriesLostVersionCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	video := testutil.SeedVideo(t, ctx, f.db, f.module.ID, 0, testutil.PtrInt(10))
	learner := uuid.New()
	enr := testutil.SeedEnrollment(t, ctx, f.db, learner, f.course.ID)
	if _, err := f.aggregate(t).RecordVideoProgress(ctx, domainagg.VideoProgressInput{
		LearnerID: learner, ContentItemID: video.ID, LastPositionSeconds: 10, Completed: testutil.PtrBool(true),
	}); err != nil {
		t.Fatalf("RecordVideoProgress: %v", err)
	}

	deps := f.deps(t)
	runner := &aggtestutil.InjectedTxRunner{DB: f.db}
	deps.Runner = runner
	deps.Enrollments = &staleEnrollments{EnrollmentRepo: f.repos.Enrollments, stale: 2}
	agg := aggregates.NewProgressAggregate(deps)

	res, err := agg.Recalculate(ctx, enr.ID)
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if !res.Transitioned || !res.Completed {
		t.Fatalf("expected completion after retries: %+v", res)
	}
	if runner.BeginCalls != 3 || runner.RollbackCalls != 2 || runner.CommitCalls != 1 {
		t.Fatalf("runner counters begin=%d rollback=%d commit=%d", runner.BeginCalls, runner.RollbackCalls, runner.CommitCalls)
	}
	if got := f.hooks.ConflictsFor("progress.Recalculate"); got != 2 {
		t.Fatalf("conflicts: want=2 got=%d", got)
	}
	if f.notifier.count() != 1 {
		t.Fatalf("completion notifications: want=1 got=%d", f.notifier.count())
	}
}

func TestRecalculateSurfacesPersistentConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	video := testutil.SeedVideo(t, ctx, f.db, f.module.ID, 0, testutil.PtrInt(10))
	learner := uuid.New()
	enr := testutil.SeedEnrollment(t, ctx, f.db, learner, f.course.ID)
	if _, err := f.aggregate(t).RecordVideoProgress(ctx, domainagg.VideoProgressInput{
		LearnerID: learner, ContentItemID: video.ID, LastPositionSeconds: 10, Completed: testutil.PtrBool(true),
	}); err != nil {
		t.Fatalf("RecordVideoProgress: %v", err)
	}

	deps := f.deps(t)
	deps.MaxRecomputeAttempts = 3
	deps.Enrollments = &staleEnrollments{EnrollmentRepo: f.repos.Enrollments, stale: 100}
	_, err := aggregates.NewProgressAggregate(deps).Recalculate(ctx, enr.ID)
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("want conflict got=%q (%v)", domainagg.CodeOf(err), err)
	}
	if got := f.hooks.ConflictsFor("progress.Recalculate"); got != 3 {
		t.Fatalf("conflicts: want=3 got=%d", got)
	}
	if f.notifier.count() != 0 {
		t.Fatalf("no completion expected on failed recompute")
	}
	if stored := f.enrollment(t, enr.ID); stored.Completed || stored.Version != 0 {
		t.Fatalf("enrollment should be untouched: %+v", stored)
	}
}

func TestRecalculateCommitFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	video := testutil.SeedVideo(t, ctx, f.db, f.module.ID, 0, testutil.PtrInt(10))
	learner := uuid.New()
	enr := testutil.SeedEnrollment(t, ctx, f.db, learner, f.course.ID)
	if _, err := f.aggregate(t).RecordVideoProgress(ctx, domainagg.VideoProgressInput{
		LearnerID: learner, ContentItemID: video.ID, LastPositionSeconds: 10, Completed: testutil.PtrBool(true),
	}); err != nil {
		t.Fatalf("RecordVideoProgress: %v", err)
	}

	deps := f.deps(t)
	deps.Runner = &aggtestutil.InjectedTxRunner{DB: f.db, FailCommit: errors.New("connection reset")}
	_, err := aggregates.NewProgressAggregate(deps).Recalculate(ctx, enr.ID)
	if err == nil {
		t.Fatalf("expected commit failure to surface")
	}
	if f.notifier.count() != 0 {
		t.Fatalf("completion must not fire for an uncommitted transition")
	}
	if stored := f.enrollment(t, enr.ID); stored.Completed || stored.ProgressPercentage != 0 {
		t.Fatalf("enrollment should be rolled back: %+v", stored)
	}
}

// staleAttempts undercounts prior attempts for the first n reads, forcing an
// attempt-number collision.
type staleAttempts struct {
	repos.AssessmentAttemptRepo
	mu    sync.Mutex
	stale int
}

func (s *staleAttempts) CountByLearnerAndItem(dbc dbctx.Context, learnerID, itemID uuid.UUID) (int, error) {
	n, err := s.AssessmentAttemptRepo.CountByLearnerAndItem(dbc, learnerID, itemID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil && s.stale > 0 && n > 0 {
		s.stale--
		n--
	}
	return n, err
}

func TestRecordAssessmentAttemptRetriesNumberCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	quiz, qs := f.assessment(t, 0)
	learner := uuid.New()
	testutil.SeedEnrollment(t, ctx, f.db, learner, f.course.ID)
	if _, err := f.aggregate(t).RecordAssessmentAttempt(ctx, domainagg.AssessmentAttemptInput{
		LearnerID: learner, ContentItemID: quiz.ID, Answers: answersScoring(qs, 1),
	}); err != nil {
		t.Fatalf("first attempt: %v", err)
	}

	deps := f.deps(t)
	deps.Attempts = &staleAttempts{AssessmentAttemptRepo: f.repos.Attempts, stale: 1}
	res, err := aggregates.NewProgressAggregate(deps).RecordAssessmentAttempt(ctx, domainagg.AssessmentAttemptInput{
		LearnerID: learner, ContentItemID: quiz.ID, Answers: answersScoring(qs, 2),
	})
	if err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if res.Attempt.AttemptNumber != 2 {
		t.Fatalf("attempt number: want=2 got=%d", res.Attempt.AttemptNumber)
	}
	if got := f.hooks.RetriesFor("progress.RecordAssessmentAttempt"); got != 1 {
		t.Fatalf("retries: want=1 got=%d", got)
	}
}

func TestRecalculateConcurrentCallsTransitionOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agg := f.aggregate(t)

	video := testutil.SeedVideo(t, ctx, f.db, f.module.ID, 0, testutil.PtrInt(10))
	learner := uuid.New()
	enr := testutil.SeedEnrollment(t, ctx, f.db, learner, f.course.ID)
	if _, err := agg.RecordVideoProgress(ctx, domainagg.VideoProgressInput{
		LearnerID: learner, ContentItemID: video.ID, LastPositionSeconds: 10, Completed: testutil.PtrBool(true),
	}); err != nil {
		t.Fatalf("RecordVideoProgress: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := agg.Recalculate(ctx, enr.ID); err != nil {
				errs <- fmt.Errorf("recalculate: %w", err)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("%v", err)
	}
	if f.notifier.count() != 1 {
		t.Fatalf("completion notifications: want=1 got=%d", f.notifier.count())
	}
	if stored := f.enrollment(t, enr.ID); stored.Version != 1 || !stored.Completed {
		t.Fatalf("stored enrollment: %+v", stored)
	}
}

// staleVideos serves a fixed snapshot for the next read, as a concurrent
// request that read the row before another one committed would see it.
type staleVideos struct {
	repos.VideoProgressRepo
	mu       sync.Mutex
	snapshot *types.VideoProgress
}

func (s *staleVideos) GetByLearnerAndItem(dbc dbctx.Context, learnerID, itemID uuid.UUID) (*types.VideoProgress, error) {
	s.mu.Lock()
	snap := s.snapshot
	s.snapshot = nil
	s.mu.Unlock()
	if snap != nil {
		cp := *snap
		return &cp, nil
	}
	return s.VideoProgressRepo.GetByLearnerAndItem(dbc, learnerID, itemID)
}

func TestRecordVideoProgressStaleReadKeepsCompletion(t *testing.T) {
	cases := []struct {
		name      string
		completed *bool
	}{
		{"position only", nil},
		{"explicit incomplete", testutil.PtrBool(false)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			video := testutil.SeedVideo(t, ctx, f.db, f.module.ID, 0, testutil.PtrInt(100))
			learner := uuid.New()
			testutil.SeedEnrollment(t, ctx, f.db, learner, f.course.ID)
			agg := f.aggregate(t)

			if _, err := agg.RecordVideoProgress(ctx, domainagg.VideoProgressInput{
				LearnerID: learner, ContentItemID: video.ID, LastPositionSeconds: 10,
			}); err != nil {
				t.Fatalf("open row: %v", err)
			}
			before, err := f.repos.Videos.GetByLearnerAndItem(dbctx.Context{Ctx: ctx}, learner, video.ID)
			if err != nil || before == nil {
				t.Fatalf("load snapshot: %v", err)
			}

			if _, err := agg.RecordVideoProgress(ctx, domainagg.VideoProgressInput{
				LearnerID: learner, ContentItemID: video.ID, LastPositionSeconds: 100, Completed: testutil.PtrBool(true),
			}); err != nil {
				t.Fatalf("completion: %v", err)
			}

			deps := f.deps(t)
			deps.Videos = &staleVideos{VideoProgressRepo: f.repos.Videos, snapshot: before}
			res, err := aggregates.NewProgressAggregate(deps).RecordVideoProgress(ctx, domainagg.VideoProgressInput{
				LearnerID: learner, ContentItemID: video.ID, LastPositionSeconds: 20, Completed: tc.completed,
			})
			if err != nil {
				t.Fatalf("late update: %v", err)
			}
			if !res.Unchanged || res.NeedsRecompute {
				t.Fatalf("late update should be a no-op: %+v", res)
			}
			if !res.Progress.Completed || res.Progress.LastPositionSeconds != 100 {
				t.Fatalf("result should carry the stored row: %+v", res.Progress)
			}

			stored, err := f.repos.Videos.GetByLearnerAndItem(dbctx.Context{Ctx: ctx}, learner, video.ID)
			if err != nil || stored == nil {
				t.Fatalf("load video progress: %v", err)
			}
			if !stored.Completed || stored.CompletedAt == nil || stored.LastPositionSeconds != 100 {
				t.Fatalf("completion overwritten: %+v", stored)
			}
		})
	}
}

func TestRecordVideoProgressConcurrentCompletionWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	video := testutil.SeedVideo(t, ctx, f.db, f.module.ID, 0, testutil.PtrInt(100))
	learner := uuid.New()
	testutil.SeedEnrollment(t, ctx, f.db, learner, f.course.ID)
	agg := f.aggregate(t)

	if _, err := agg.RecordVideoProgress(ctx, domainagg.VideoProgressInput{
		LearnerID: learner, ContentItemID: video.ID, LastPositionSeconds: 1,
	}); err != nil {
		t.Fatalf("open row: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := agg.RecordVideoProgress(ctx, domainagg.VideoProgressInput{
				LearnerID: learner, ContentItemID: video.ID, LastPositionSeconds: 100, Completed: testutil.PtrBool(true),
			})
			errs <- err
		}()
		go func(pos int) {
			defer wg.Done()
			_, err := agg.RecordVideoProgress(ctx, domainagg.VideoProgressInput{
				LearnerID: learner, ContentItemID: video.ID, LastPositionSeconds: pos, Completed: testutil.PtrBool(false),
			})
			errs <- err
		}(i + 2)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent update: %v", err)
		}
	}

	stored, err := f.repos.Videos.GetByLearnerAndItem(dbctx.Context{Ctx: ctx}, learner, video.ID)
	if err != nil || stored == nil {
		t.Fatalf("load video progress: %v", err)
	}
	if !stored.Completed || stored.CompletedAt == nil {
		t.Fatalf("video must end completed: %+v", stored)
	}
}
