package api

import (
	"testing"

	"github.com/p-n-ai/pai-academy/internal/progress"
)

func TestEventHub_CourseFilter(t *testing.T) {
	h := NewEventHub()
	ch1, stop1 := h.Subscribe("c1")
	_, stop2 := h.Subscribe("c2")
	defer stop2()

	if err := h.LogEvent(progress.Event{UserID: "u1", CourseID: "c1", EventType: progress.EventLessonCompleted}); err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	select {
	case e := <-ch1:
		if e.CourseID != "c1" {
			t.Errorf("CourseID = %q, want c1", e.CourseID)
		}
	default:
		t.Fatal("c1 subscriber should receive event")
	}

	stop1()
	stop1()
	if got := h.Subscribers(); got != 1 {
		t.Errorf("Subscribers() = %d, want 1", got)
	}
}

func TestEventHub_SlowSubscriberDrops(t *testing.T) {
	h := NewEventHub()
	ch, stop := h.Subscribe("c1")
	defer stop()

	for range subscriberBuffer + 10 {
		if err := h.LogEvent(progress.Event{CourseID: "c1"}); err != nil {
			t.Fatalf("LogEvent() error = %v", err)
		}
	}
	if got := len(ch); got != subscriberBuffer {
		t.Errorf("buffered = %d, want %d", got, subscriberBuffer)
	}
}
