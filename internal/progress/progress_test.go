package progress_test

import (
	"testing"
	"time"

	"github.com/p-n-ai/pai-academy/internal/progress"
)

func TestNew_CursorAtStart(t *testing.T) {
	p := progress.New("u1", "c1")
	if p.CurrentChapterNumber != 1 || p.CurrentLessonNumber != 1 {
		t.Errorf("cursor = (%d, %d), want (1, 1)", p.CurrentChapterNumber, p.CurrentLessonNumber)
	}
	if p.CompletedLessons == nil || p.ChapterTestCooldowns == nil {
		t.Error("collections should be initialized")
	}
	if p.CourseCompleted || p.CertificateIssued {
		t.Error("new record should not be completed")
	}
}

func TestRecordLessonPass_SingleEntry(t *testing.T) {
	p := progress.New("u1", "c1")
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	p.RecordLessonPass("l1", 2, t0)
	got := p.RecordLessonPass("l1", 1, t0.Add(time.Hour))

	if len(p.CompletedLessons) != 1 {
		t.Fatalf("len(CompletedLessons) = %d, want 1", len(p.CompletedLessons))
	}
	if got.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", got.Attempts)
	}
	if got.QuizScore != 1 {
		t.Errorf("QuizScore = %d, want 1 (latest pass overwrites)", got.QuizScore)
	}
	if !got.CompletedAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, t0.Add(time.Hour))
	}
	if !p.LessonPassed("l1") {
		t.Error("LessonPassed(l1) = false, want true")
	}
	if p.LessonPassed("l2") {
		t.Error("LessonPassed(l2) = true, want false")
	}
}

func TestAppendChapterTestAttempt(t *testing.T) {
	p := progress.New("u1", "c1")
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	p.AppendChapterTestAttempt("ch1", 40, false, t0)
	if p.ChapterTestPassed("ch1") {
		t.Error("ChapterTestPassed after failure = true, want false")
	}
	p.AppendChapterTestAttempt("ch1", 90, true, t0.Add(25*time.Hour))

	if len(p.ChapterTestAttempts) != 2 {
		t.Fatalf("len(ChapterTestAttempts) = %d, want 2", len(p.ChapterTestAttempts))
	}
	if !p.ChapterTestPassed("ch1") {
		t.Error("ChapterTestPassed = false, want true")
	}
	cd := p.ChapterTestCooldowns["ch1"]
	if !cd.LastAttemptAt.Equal(t0.Add(25 * time.Hour)) {
		t.Errorf("cooldown LastAttemptAt = %v, want latest attempt", cd.LastAttemptAt)
	}
}

func TestAppendFinalExamAttempt(t *testing.T) {
	p := progress.New("u1", "c1")
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	p.AppendFinalExamAttempt(60, false, t0)
	p.AppendFinalExamAttempt(85, true, t0.Add(48*time.Hour))

	if got := p.BestFinalExamScore(); got != 85 {
		t.Errorf("BestFinalExamScore() = %d, want 85", got)
	}
	if p.FinalExamCooldown == nil || !p.FinalExamCooldown.LastAttemptAt.Equal(t0.Add(48*time.Hour)) {
		t.Errorf("FinalExamCooldown = %+v, want latest attempt", p.FinalExamCooldown)
	}
}

func TestAdvanceCursor_Monotonic(t *testing.T) {
	tests := []struct {
		name            string
		chapter, lesson int
		wantCh, wantL   int
	}{
		{"forward lesson", 1, 2, 1, 2},
		{"forward chapter", 2, 1, 2, 1},
		{"same position", 1, 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := progress.New("u1", "c1")
			p.AdvanceCursor(tt.chapter, tt.lesson)
			if p.CurrentChapterNumber != tt.wantCh || p.CurrentLessonNumber != tt.wantL {
				t.Errorf("cursor = (%d, %d), want (%d, %d)",
					p.CurrentChapterNumber, p.CurrentLessonNumber, tt.wantCh, tt.wantL)
			}
		})
	}

	p := progress.New("u1", "c1")
	p.AdvanceCursor(3, 2)
	p.AdvanceCursor(2, 5)
	p.AdvanceCursor(3, 1)
	if p.CurrentChapterNumber != 3 || p.CurrentLessonNumber != 2 {
		t.Errorf("cursor moved backwards: (%d, %d)", p.CurrentChapterNumber, p.CurrentLessonNumber)
	}
}

func TestMarkCompleted_OneWay(t *testing.T) {
	p := progress.New("u1", "c1")
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	if !p.MarkCompleted(t0) {
		t.Fatal("first MarkCompleted() = false, want true")
	}
	if p.MarkCompleted(t0.Add(time.Hour)) {
		t.Error("second MarkCompleted() = true, want false")
	}
	if !p.CourseCompleted || !p.CertificateIssued {
		t.Error("flags not set")
	}
	if !p.CompletedAt.Equal(t0) || !p.CertificateIssuedAt.Equal(t0) {
		t.Errorf("timestamps = %v / %v, want %v", p.CompletedAt, p.CertificateIssuedAt, t0)
	}
}

func TestClone_Independent(t *testing.T) {
	p := progress.New("u1", "c1")
	p.RecordLessonPass("l1", 1, time.Now())
	p.AppendChapterTestAttempt("ch1", 80, true, time.Now())

	c := p.Clone()
	c.RecordLessonPass("l2", 1, time.Now())
	c.AppendChapterTestAttempt("ch2", 80, true, time.Now())

	if len(p.CompletedLessons) != 1 {
		t.Errorf("original CompletedLessons mutated: %d", len(p.CompletedLessons))
	}
	if len(p.ChapterTestAttempts) != 1 {
		t.Errorf("original ChapterTestAttempts mutated: %d", len(p.ChapterTestAttempts))
	}
	if _, ok := p.ChapterTestCooldowns["ch2"]; ok {
		t.Error("original ChapterTestCooldowns mutated")
	}
}
