package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 10 * time.Minute

// CachedReader is a read-through Redis cache in front of another Reader.
// Cache failures are logged and fall through to the wrapped reader.
type CachedReader struct {
	next   Reader
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewCachedReader wraps next with a Redis cache. A zero ttl uses the default.
func NewCachedReader(next Reader, client *redis.Client, ttl time.Duration) *CachedReader {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedReader{next: next, client: client, ttl: ttl, prefix: "catalog:"}
}

func (r *CachedReader) GetCourse(ctx context.Context, id string) (Course, error) {
	return cached(ctx, r, "course:"+id, func() (Course, error) { return r.next.GetCourse(ctx, id) })
}

func (r *CachedReader) GetChapter(ctx context.Context, id string) (Chapter, error) {
	return cached(ctx, r, "chapter:"+id, func() (Chapter, error) { return r.next.GetChapter(ctx, id) })
}

func (r *CachedReader) GetLesson(ctx context.Context, id string) (Lesson, error) {
	return cached(ctx, r, "lesson:"+id, func() (Lesson, error) { return r.next.GetLesson(ctx, id) })
}

func (r *CachedReader) ListLessonsOfChapter(ctx context.Context, chapterID string) ([]Lesson, error) {
	return cached(ctx, r, "chapter-lessons:"+chapterID, func() ([]Lesson, error) {
		return r.next.ListLessonsOfChapter(ctx, chapterID)
	})
}

func (r *CachedReader) ListChaptersOfCourse(ctx context.Context, courseID string) ([]Chapter, error) {
	return cached(ctx, r, "course-chapters:"+courseID, func() ([]Chapter, error) {
		return r.next.ListChaptersOfCourse(ctx, courseID)
	})
}

func (r *CachedReader) GetQuestions(ctx context.Context, ids []string) ([]Question, error) {
	return cached(ctx, r, "questions:"+strings.Join(ids, ","), func() ([]Question, error) {
		return r.next.GetQuestions(ctx, ids)
	})
}

// Invalidate drops every cached catalog entry.
func (r *CachedReader) Invalidate(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func cached[T any](ctx context.Context, r *CachedReader, key string, load func() (T, error)) (T, error) {
	key = r.prefix + key

	data, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		slog.Warn("discarding undecodable catalog cache entry", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		slog.Warn("catalog cache read failed", "key", key, "error", err)
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	if data, err := json.Marshal(v); err == nil {
		if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
			slog.Warn("catalog cache write failed", "key", key, "error", err)
		}
	}
	return v, nil
}
