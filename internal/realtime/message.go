package realtime

import "github.com/google/uuid"

type Event string

const (
	EventProgressUpdated Event = "progress.updated"
	EventCourseCompleted Event = "course.completed"
)

// Message is the unit carried by the bus and written to SSE streams.
type Message struct {
	Channel string `json:"channel"`
	Event   Event  `json:"event"`
	Data    any    `json:"data,omitempty"`
}

// LearnerChannel is the channel every stream opened by a learner listens on.
func LearnerChannel(learnerID uuid.UUID) string {
	return "learner:" + learnerID.String()
}
