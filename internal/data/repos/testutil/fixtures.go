package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/completion-engine/internal/domain"
)

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, title string) *types.Course {
	tb.Helper()
	c := &types.Course{ID: uuid.New(), Title: title}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedModule(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, order int) *types.CourseModule {
	tb.Helper()
	m := &types.CourseModule{ID: uuid.New(), CourseID: courseID, Title: "module", OrderIndex: order}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed module: %v", err)
	}
	return m
}

func SeedVideo(tb testing.TB, ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, order int, durationSeconds *int) *types.ContentItem {
	tb.Helper()
	item := &types.ContentItem{
		ID:              uuid.New(),
		ModuleID:        moduleID,
		Title:           "video",
		ContentType:     types.ContentTypeVideo,
		OrderIndex:      order,
		DurationSeconds: durationSeconds,
	}
	if err := tx.WithContext(ctx).Create(item).Error; err != nil {
		tb.Fatalf("seed video: %v", err)
	}
	return item
}

func SeedArticle(tb testing.TB, ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, order int) *types.ContentItem {
	tb.Helper()
	item := &types.ContentItem{
		ID:          uuid.New(),
		ModuleID:    moduleID,
		Title:       "article",
		ContentType: types.ContentTypeArticle,
		OrderIndex:  order,
	}
	if err := tx.WithContext(ctx).Create(item).Error; err != nil {
		tb.Fatalf("seed article: %v", err)
	}
	return item
}

// SeedAssessment creates an assessment item with one question per answer key,
// each worth one point.
func SeedAssessment(tb testing.TB, ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, order int, passPercentage *float64, correct ...string) (*types.ContentItem, []*types.Question) {
	tb.Helper()
	item := &types.ContentItem{
		ID:             uuid.New(),
		ModuleID:       moduleID,
		Title:          "assessment",
		ContentType:    types.ContentTypeAssessment,
		OrderIndex:     order,
		PassPercentage: passPercentage,
	}
	if err := tx.WithContext(ctx).Create(item).Error; err != nil {
		tb.Fatalf("seed assessment: %v", err)
	}
	questions := make([]*types.Question, 0, len(correct))
	for i, answer := range correct {
		q := &types.Question{
			ID:            uuid.New(),
			ContentItemID: item.ID,
			Prompt:        "question",
			Points:        1,
			CorrectAnswer: answer,
			OrderIndex:    i,
		}
		if err := tx.WithContext(ctx).Create(q).Error; err != nil {
			tb.Fatalf("seed question: %v", err)
		}
		questions = append(questions, q)
	}
	return item, questions
}

func SeedEnrollment(tb testing.TB, ctx context.Context, tx *gorm.DB, learnerID, courseID uuid.UUID) *types.Enrollment {
	tb.Helper()
	e := &types.Enrollment{ID: uuid.New(), LearnerID: learnerID, CourseID: courseID}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed enrollment: %v", err)
	}
	return e
}

func PtrInt(v int) *int { return &v }

func PtrFloat(v float64) *float64 { return &v }

func PtrBool(v bool) *bool { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
