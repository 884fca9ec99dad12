package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/p-n-ai/pai-academy/internal/progress"
)

const subscriberBuffer = 64

// EventHub fans progress events out to live subscribers of a course. It is a
// progress.EventLogger; slow subscribers drop events rather than block.
type EventHub struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	courseID string
	ch       chan progress.Event
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[*subscriber]struct{})}
}

func (h *EventHub) LogEvent(e progress.Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		if s.courseID != e.CourseID {
			continue
		}
		select {
		case s.ch <- e:
		default:
			slog.Warn("dropping event for slow subscriber", "course_id", e.CourseID, "type", e.EventType)
		}
	}
	return nil
}

// Subscribe registers a subscriber for courseID. The returned func
// unsubscribes and closes the channel.
func (h *EventHub) Subscribe(courseID string) (<-chan progress.Event, func()) {
	s := &subscriber{courseID: courseID, ch: make(chan progress.Event, subscriberBuffer)}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, s)
			h.mu.Unlock()
			close(s.ch)
		})
	}
}

// Subscribers returns the number of live subscribers.
func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	if _, err := s.catalog.GetCourse(r.Context(), courseID); err != nil {
		respondErr(w, r, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.AllowedOrigins,
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err)
		return
	}
	defer conn.CloseNow()

	events, unsubscribe := s.hub.Subscribe(courseID)
	defer unsubscribe()

	slog.Info("event stream connected", "course_id", courseID)

	// The feed is write-only; CloseRead handles control frames and cancels
	// ctx when the client goes away.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			slog.Info("event stream disconnected", "course_id", courseID)
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, e); err != nil {
				slog.Warn("event stream write failed", "course_id", courseID, "error", err)
				return
			}
		}
	}
}
