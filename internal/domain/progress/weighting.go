package progress

import (
	"math"

	"github.com/google/uuid"
)

const (
	// AssessmentWeight is the fixed weight of an assessment, equal to ten minutes of video.
	AssessmentWeight = 600.0

	completionEpsilon = 1e-6
)

// Snapshot is the leaf state a recompute reads for one enrollment.
type Snapshot struct {
	Course   *Course
	Videos   []*VideoProgress
	Attempts []*AssessmentAttempt
}

// Weighting is the unrounded outcome of combining leaf state.
type Weighting struct {
	TotalWeight     float64
	CompletedWeight float64
	Ratio           float64
	CountableItems  int
}

// Percentage is the stored form of the ratio, rounded to two decimals.
func (w Weighting) Percentage() float64 {
	return math.Round(w.Ratio*100) / 100
}

// Complete is evaluated on the unrounded ratio.
func (w Weighting) Complete() bool {
	return w.TotalWeight > 0 && w.Ratio >= 100-completionEpsilon
}

// Weigh computes course progress from stored leaf state only. Videos weigh their
// duration in seconds, using the progress row's snapshot when one exists.
// Assessments weigh AssessmentWeight and count once any attempt passed.
func Weigh(s Snapshot) Weighting {
	videos := make(map[uuid.UUID]*VideoProgress, len(s.Videos))
	for _, v := range s.Videos {
		if v != nil {
			videos[v.ContentItemID] = v
		}
	}
	attempts := make(map[uuid.UUID][]*AssessmentAttempt, len(s.Attempts))
	for _, a := range s.Attempts {
		if a != nil {
			attempts[a.ContentItemID] = append(attempts[a.ContentItemID], a)
		}
	}

	var w Weighting
	if s.Course == nil {
		return w
	}
	for _, m := range s.Course.Modules {
		if m == nil {
			continue
		}
		for _, item := range m.Items {
			if !item.IsCountable() {
				continue
			}
			w.CountableItems++
			switch item.ContentType {
			case ContentTypeVideo:
				weight := float64(item.Duration())
				row := videos[item.ID]
				if row != nil {
					weight = float64(row.DurationSeconds)
				}
				w.TotalWeight += weight
				if row != nil && row.Completed {
					w.CompletedWeight += weight
				}
			case ContentTypeAssessment:
				w.TotalWeight += AssessmentWeight
				if BestOf(attempts[item.ID]) {
					w.CompletedWeight += AssessmentWeight
				}
			}
		}
	}
	if w.TotalWeight > 0 {
		w.Ratio = w.CompletedWeight / w.TotalWeight * 100
	}
	return w
}
