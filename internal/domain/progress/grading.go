package progress

import (
	"strings"
)

// Grade is the outcome of scoring one submission against an item's questions.
type Grade struct {
	Score          float64
	Passed         bool
	CorrectCount   int
	TotalQuestions int
	EarnedPoints   float64
	TotalPoints    float64
}

// GradeSubmission scores answers (question id -> choice) against questions.
// Matching is case-insensitive on trimmed values. Missing answers count as wrong
// and answers for unknown question ids are ignored. A zero-point assessment
// scores 0 and therefore only passes a threshold of 0.
func GradeSubmission(questions []*Question, answers map[string]string, passPercentage float64) Grade {
	g := Grade{TotalQuestions: len(questions)}
	for _, q := range questions {
		if q == nil {
			continue
		}
		g.TotalPoints += q.Points
		submitted, ok := answers[q.ID.String()]
		if !ok {
			continue
		}
		if answersMatch(submitted, q.CorrectAnswer) {
			g.EarnedPoints += q.Points
			g.CorrectCount++
		}
	}
	if g.TotalPoints > 0 {
		g.Score = g.EarnedPoints / g.TotalPoints * 100
	}
	g.Passed = g.Score >= passPercentage
	return g
}

func answersMatch(submitted, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(correct))
}

// BestOf reports whether any attempt passed. Attempt order is irrelevant.
func BestOf(attempts []*AssessmentAttempt) bool {
	for _, a := range attempts {
		if a != nil && a.Passed {
			return true
		}
	}
	return false
}
