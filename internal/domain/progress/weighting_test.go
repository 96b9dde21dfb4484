package progress

import (
	"testing"

	"github.com/google/uuid"
)

func intPtr(v int) *int { return &v }

func courseWith(items ...*ContentItem) *Course {
	return &Course{ID: uuid.New(), Modules: []*CourseModule{{ID: uuid.New(), Items: items}}}
}

func TestWeighVideoAndAssessment(t *testing.T) {
	video := &ContentItem{ID: uuid.New(), ContentType: ContentTypeVideo, DurationSeconds: intPtr(100)}
	quiz := &ContentItem{ID: uuid.New(), ContentType: ContentTypeAssessment}
	article := &ContentItem{ID: uuid.New(), ContentType: ContentTypeArticle}
	course := courseWith(video, article, quiz)

	w := Weigh(Snapshot{Course: course})
	if w.TotalWeight != 700 || w.Percentage() != 0 || w.Complete() {
		t.Fatalf("empty progress: got=%+v", w)
	}
	if w.CountableItems != 2 {
		t.Fatalf("articles should not count: got=%d", w.CountableItems)
	}

	videos := []*VideoProgress{{ContentItemID: video.ID, DurationSeconds: 100, Completed: true}}
	w = Weigh(Snapshot{Course: course, Videos: videos})
	if w.Percentage() != 14.29 || w.Complete() {
		t.Fatalf("video only: want=14.29 got=%v", w.Percentage())
	}

	attempts := []*AssessmentAttempt{{ContentItemID: quiz.ID, Passed: false}, {ContentItemID: quiz.ID, Passed: true}}
	w = Weigh(Snapshot{Course: course, Videos: videos, Attempts: attempts})
	if w.Percentage() != 100 || !w.Complete() {
		t.Fatalf("all done: want=100 complete got=%+v", w)
	}
}

func TestWeighCountsPassesPerItem(t *testing.T) {
	quizA := &ContentItem{ID: uuid.New(), ContentType: ContentTypeAssessment}
	quizB := &ContentItem{ID: uuid.New(), ContentType: ContentTypeAssessment}
	course := courseWith(quizA, quizB)

	orders := [][]*AssessmentAttempt{
		{{ContentItemID: quizA.ID, Score: 40}, {ContentItemID: quizA.ID, Score: 85, Passed: true}, {ContentItemID: quizB.ID, Score: 60}},
		{{ContentItemID: quizB.ID, Score: 60}, {ContentItemID: quizA.ID, Score: 85, Passed: true}, {ContentItemID: quizA.ID, Score: 40}},
	}
	for i, attempts := range orders {
		w := Weigh(Snapshot{Course: course, Attempts: attempts})
		if w.CompletedWeight != AssessmentWeight || w.Percentage() != 50 {
			t.Fatalf("order %d: want only quiz A counted, got=%+v", i, w)
		}
	}
}

func TestWeighUsesDurationSnapshot(t *testing.T) {
	video := &ContentItem{ID: uuid.New(), ContentType: ContentTypeVideo, DurationSeconds: intPtr(1000)}
	other := &ContentItem{ID: uuid.New(), ContentType: ContentTypeVideo, DurationSeconds: intPtr(100)}
	course := courseWith(video, other)

	w := Weigh(Snapshot{
		Course: course,
		Videos: []*VideoProgress{{ContentItemID: video.ID, DurationSeconds: 100, Completed: true}},
	})
	if w.TotalWeight != 200 || w.Percentage() != 50 {
		t.Fatalf("snapshot weight: got=%+v", w)
	}
}

func TestWeighZeroContent(t *testing.T) {
	cases := map[string]*Course{
		"nil course":   nil,
		"no modules":   {ID: uuid.New()},
		"article only": courseWith(&ContentItem{ID: uuid.New(), ContentType: ContentTypeArticle}),
		"zero-length":  courseWith(&ContentItem{ID: uuid.New(), ContentType: ContentTypeVideo}),
	}
	for name, c := range cases {
		w := Weigh(Snapshot{Course: c})
		if w.Percentage() != 0 || w.Complete() {
			t.Fatalf("%s: want 0/false got=%+v", name, w)
		}
	}
}

func TestWeighIsIdempotent(t *testing.T) {
	video := &ContentItem{ID: uuid.New(), ContentType: ContentTypeVideo, DurationSeconds: intPtr(30)}
	quiz := &ContentItem{ID: uuid.New(), ContentType: ContentTypeAssessment}
	s := Snapshot{
		Course:   courseWith(video, quiz),
		Videos:   []*VideoProgress{{ContentItemID: video.ID, DurationSeconds: 30, Completed: true}},
		Attempts: []*AssessmentAttempt{{ContentItemID: quiz.ID}},
	}
	a, b := Weigh(s), Weigh(s)
	if a != b {
		t.Fatalf("recompute not idempotent: %+v vs %+v", a, b)
	}
}
