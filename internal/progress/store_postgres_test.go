package progress_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-academy/internal/platform/database/databasetest"
	"github.com/p-n-ai/pai-academy/internal/progress"
)

func TestNewPostgresStore_NilPool(t *testing.T) {
	if _, err := progress.NewPostgresStore(nil); err == nil {
		t.Fatal("expected error for nil pool")
	}
}

func TestPostgresStore_Integration(t *testing.T) {
	pool := databasetest.NewPool(t)
	store, err := progress.NewPostgresStore(pool)
	require.NoError(t, err)
	ctx := context.Background()

	_, found, err := store.Get(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.False(t, found)

	p, err := store.GetOrCreate(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentChapterNumber)
	assert.Equal(t, 1, p.CurrentLessonNumber)
	assert.Empty(t, p.CompletedLessons)
	assert.Nil(t, p.FinalExamCooldown)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	updated, err := store.Update(ctx, "u1", "c1", func(p *progress.Progress) error {
		p.RecordLessonPass("l1", 2, at)
		p.AppendChapterTestAttempt("ch1", 80, true, at)
		p.AppendFinalExamAttempt(90, true, at)
		p.AdvanceCursor(2, 1)
		p.MarkCompleted(at)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, updated.CourseCompleted)

	got, found, err := store.Get(ctx, "u1", "c1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.LessonPassed("l1"))
	assert.Equal(t, 2, got.CompletedLessons["l1"].QuizScore)
	assert.True(t, got.ChapterTestPassed("ch1"))
	assert.True(t, got.ChapterTestCooldowns["ch1"].LastAttemptAt.Equal(at))
	require.NotNil(t, got.FinalExamCooldown)
	assert.True(t, got.FinalExamCooldown.LastAttemptAt.Equal(at))
	assert.Equal(t, 2, got.CurrentChapterNumber)
	assert.True(t, got.CertificateIssued)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(at))

	list, err := store.ListByCourse(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPostgresStore_UpdateSerialized(t *testing.T) {
	pool := databasetest.NewPool(t)
	store, err := progress.NewPostgresStore(pool)
	require.NoError(t, err)
	ctx := context.Background()

	const workers = 10
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "u1", "c1", func(p *progress.Progress) error {
				p.AppendFinalExamAttempt(10, false, time.Now())
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, _, err := store.Get(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Len(t, got.FinalExamAttempts, workers)
}

func TestPostgresEventLogger_Integration(t *testing.T) {
	pool := databasetest.NewPool(t)
	logger := progress.NewPostgresEventLogger(pool)

	err := logger.LogEvent(progress.Event{
		UserID:    "u1",
		CourseID:  "c1",
		EventType: progress.EventCertificateIssued,
		Data:      map[string]any{"kind": "completion"},
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM progress_events WHERE user_id = 'u1' AND event_type = $1`,
		progress.EventCertificateIssued,
	).Scan(&n))
	assert.Equal(t, 1, n)
}
