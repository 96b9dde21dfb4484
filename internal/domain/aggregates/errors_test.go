package aggregates

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError(CodeNotEnrolled, "Progress.SubmitAssessment", "learner has no enrollment", nil)
	want := "Progress.SubmitAssessment: learner has no enrollment (not_enrolled)"
	if err.Error() != want {
		t.Fatalf("Error(): want=%q got=%q", want, err.Error())
	}
}

func TestCodeOfSurvivesWrapping(t *testing.T) {
	base := NewError(CodeConflict, "op", "stale version", nil)
	wrapped := fmt.Errorf("recalculate: %w", base)
	if !IsCode(wrapped, CodeConflict) {
		t.Fatalf("expected conflict code through fmt wrapping")
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatalf("plain errors carry no code")
	}
	if Wrap(CodeInternal, "op", nil) != nil {
		t.Fatalf("Wrap(nil) should be nil")
	}
}
