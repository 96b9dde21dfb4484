package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/completion-engine/internal/data/aggregates"
)

// HooksRecorder captures aggregate hook signals in tests. The *For helpers
// filter by operation name, e.g. "progress.Recalculate".
type HooksRecorder struct {
	mu sync.Mutex

	Operations []OperationEvent
	Conflicts  []string
	Retries    []string
}

type OperationEvent struct {
	Name     string
	Status   string
	Duration time.Duration
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Operations = append(h.Operations, OperationEvent{
		Name:     name,
		Status:   status,
		Duration: dur,
	})
}

func (h *HooksRecorder) IncConflict(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Conflicts = append(h.Conflicts, name)
}

func (h *HooksRecorder) IncRetry(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Retries = append(h.Retries, name)
}

func (h *HooksRecorder) ConflictsFor(op string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return countNamed(h.Conflicts, op)
}

func (h *HooksRecorder) RetriesFor(op string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return countNamed(h.Retries, op)
}

// StatusesFor lists observed statuses for op in call order.
func (h *HooksRecorder) StatusesFor(op string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, ev := range h.Operations {
		if ev.Name == op {
			out = append(out, ev.Status)
		}
	}
	return out
}

func countNamed(names []string, op string) int {
	n := 0
	for _, name := range names {
		if name == op {
			n++
		}
	}
	return n
}
