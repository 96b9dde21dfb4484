package realtime

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/completion-engine/internal/platform/logger"
)

func recvMessage(t *testing.T, ch <-chan Message, timeout time.Duration) Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return Message{}
}

func TestHubBroadcastOrderingAndIsolation(t *testing.T) {
	hub := NewHub(logger.Nop())
	learner := uuid.New()
	channel := LearnerChannel(learner)

	a := hub.NewClient(learner)
	hub.AddChannel(a, channel)
	other := hub.NewClient(uuid.New())
	hub.AddChannel(other, LearnerChannel(other.LearnerID))

	hub.Broadcast(Message{Channel: channel, Event: EventProgressUpdated, Data: map[string]any{"seq": 1}})
	hub.Broadcast(Message{Channel: channel, Event: EventCourseCompleted, Data: map[string]any{"seq": 2}})

	if got := recvMessage(t, a.Outbound, time.Second); got.Event != EventProgressUpdated {
		t.Fatalf("first event: want=%s got=%s", EventProgressUpdated, got.Event)
	}
	if got := recvMessage(t, a.Outbound, time.Second); got.Event != EventCourseCompleted {
		t.Fatalf("second event: want=%s got=%s", EventCourseCompleted, got.Event)
	}
	select {
	case msg := <-other.Outbound:
		t.Fatalf("other learner received %+v", msg)
	default:
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(logger.Nop())
	c := hub.NewClient(uuid.New())
	channel := LearnerChannel(c.LearnerID)
	hub.AddChannel(c, channel)

	for i := 0; i < outboundBuffer+5; i++ {
		hub.Broadcast(Message{Channel: channel, Event: EventProgressUpdated})
	}
	if got := len(c.Outbound); got != outboundBuffer {
		t.Fatalf("buffered: want=%d got=%d", outboundBuffer, got)
	}
}

func TestHubCloseClientUnsubscribes(t *testing.T) {
	hub := NewHub(logger.Nop())
	c := hub.NewClient(uuid.New())
	channel := LearnerChannel(c.LearnerID)
	hub.AddChannel(c, channel)
	if hub.Subscribers(channel) != 1 {
		t.Fatalf("expected one subscriber")
	}
	hub.CloseClient(c)
	hub.CloseClient(c)
	if hub.Subscribers(channel) != 0 {
		t.Fatalf("expected no subscribers after close")
	}
}

func TestHubServeHTTPWritesEvents(t *testing.T) {
	hub := NewHub(logger.Nop())
	c := hub.NewClient(uuid.New())
	channel := LearnerChannel(c.LearnerID)
	hub.AddChannel(c, channel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeHTTP(w, r, c)
	}))
	defer srv.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type: %q", ct)
	}

	hub.Broadcast(Message{Channel: channel, Event: EventCourseCompleted, Data: map[string]any{"course_id": "c-1"}})

	lines := make(chan string, 4)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatalf("stream closed before event")
			}
			if strings.HasPrefix(line, "data: ") {
				if !strings.Contains(line, `"course.completed"`) {
					t.Fatalf("unexpected data line %q", line)
				}
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event")
		}
	}
}
