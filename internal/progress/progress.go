// Package progress owns the per-(user, course) progression record and its
// persistence. Gating decisions are always recomputed from the completion
// facts held here; the cursor is advisory.
package progress

import (
	"maps"
	"slices"
	"time"
)

// LessonCompletion is the single completion record kept per lesson.
type LessonCompletion struct {
	LessonID    string    `json:"lesson_id"`
	CompletedAt time.Time `json:"completed_at"`
	QuizScore   int       `json:"quiz_score"`
	Attempts    int       `json:"attempts"`
	Passed      bool      `json:"passed"`
}

// ChapterTestAttempt is one entry of the append-only chapter test log.
type ChapterTestAttempt struct {
	ChapterID   string    `json:"chapter_id"`
	AttemptedAt time.Time `json:"attempted_at"`
	Score       int       `json:"score"`
	Passed      bool      `json:"passed"`
}

// FinalExamAttempt is one entry of the append-only final exam log.
type FinalExamAttempt struct {
	AttemptedAt time.Time `json:"attempted_at"`
	Score       int       `json:"score"`
	Passed      bool      `json:"passed"`
}

// Cooldown records the last attempt on a throttled assessment.
type Cooldown struct {
	ChapterID     string    `json:"chapter_id,omitempty"`
	LastAttemptAt time.Time `json:"last_attempt_at"`
}

// Progress is the progression record of one user in one course.
type Progress struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`

	// Advisory cursor for "continue" flows.
	CurrentChapterNumber int `json:"current_chapter_number"`
	CurrentLessonNumber  int `json:"current_lesson_number"`

	CompletedLessons     map[string]LessonCompletion `json:"completed_lessons"`
	ChapterTestAttempts  []ChapterTestAttempt        `json:"chapter_test_attempts"`
	ChapterTestCooldowns map[string]Cooldown         `json:"chapter_test_cooldowns"`
	FinalExamAttempts    []FinalExamAttempt          `json:"final_exam_attempts"`
	FinalExamCooldown    *Cooldown                   `json:"final_exam_cooldown,omitempty"`

	CourseCompleted     bool       `json:"course_completed"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	CertificateIssued   bool       `json:"certificate_issued"`
	CertificateIssuedAt *time.Time `json:"certificate_issued_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an empty record with the cursor at (1, 1).
func New(userID, courseID string) *Progress {
	now := time.Now()
	return &Progress{
		UserID:               userID,
		CourseID:             courseID,
		CurrentChapterNumber: 1,
		CurrentLessonNumber:  1,
		CompletedLessons:     make(map[string]LessonCompletion),
		ChapterTestAttempts:  []ChapterTestAttempt{},
		ChapterTestCooldowns: make(map[string]Cooldown),
		FinalExamAttempts:    []FinalExamAttempt{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// LessonPassed reports whether the lesson has a passed completion entry.
func (p *Progress) LessonPassed(lessonID string) bool {
	c, ok := p.CompletedLessons[lessonID]
	return ok && c.Passed
}

// ChapterTestPassed reports whether any attempt on the chapter test passed.
func (p *Progress) ChapterTestPassed(chapterID string) bool {
	for _, a := range p.ChapterTestAttempts {
		if a.ChapterID == chapterID && a.Passed {
			return true
		}
	}
	return false
}

// RecordLessonPass inserts or updates the lesson's single completion entry.
// A later pass overwrites the stored score even when it is lower.
func (p *Progress) RecordLessonPass(lessonID string, score int, at time.Time) LessonCompletion {
	c, ok := p.CompletedLessons[lessonID]
	if !ok {
		c = LessonCompletion{LessonID: lessonID}
	}
	c.Attempts++
	c.Passed = true
	c.QuizScore = score
	c.CompletedAt = at
	p.CompletedLessons[lessonID] = c
	return c
}

// AppendChapterTestAttempt logs the attempt and upserts the chapter cooldown.
func (p *Progress) AppendChapterTestAttempt(chapterID string, score int, passed bool, at time.Time) {
	p.ChapterTestAttempts = append(p.ChapterTestAttempts, ChapterTestAttempt{
		ChapterID:   chapterID,
		AttemptedAt: at,
		Score:       score,
		Passed:      passed,
	})
	p.ChapterTestCooldowns[chapterID] = Cooldown{ChapterID: chapterID, LastAttemptAt: at}
}

// AppendFinalExamAttempt logs the attempt and sets the final exam cooldown.
func (p *Progress) AppendFinalExamAttempt(score int, passed bool, at time.Time) {
	p.FinalExamAttempts = append(p.FinalExamAttempts, FinalExamAttempt{
		AttemptedAt: at,
		Score:       score,
		Passed:      passed,
	})
	p.FinalExamCooldown = &Cooldown{LastAttemptAt: at}
}

// AdvanceCursor moves the cursor forward to (chapter, lesson). It never moves back.
func (p *Progress) AdvanceCursor(chapter, lesson int) {
	if chapter < p.CurrentChapterNumber {
		return
	}
	if chapter == p.CurrentChapterNumber && lesson <= p.CurrentLessonNumber {
		return
	}
	p.CurrentChapterNumber = chapter
	p.CurrentLessonNumber = lesson
}

// MarkCompleted performs the one-way completion transition. It returns false
// when the course was already completed.
func (p *Progress) MarkCompleted(at time.Time) bool {
	if p.CourseCompleted {
		return false
	}
	p.CourseCompleted = true
	p.CompletedAt = &at
	p.CertificateIssued = true
	p.CertificateIssuedAt = &at
	return true
}

// BestFinalExamScore returns the highest final exam score, or 0.
func (p *Progress) BestFinalExamScore() int {
	best := 0
	for _, a := range p.FinalExamAttempts {
		best = max(best, a.Score)
	}
	return best
}

// Clone returns a deep copy.
func (p *Progress) Clone() *Progress {
	c := *p
	c.CompletedLessons = maps.Clone(p.CompletedLessons)
	c.ChapterTestCooldowns = maps.Clone(p.ChapterTestCooldowns)
	c.ChapterTestAttempts = slices.Clone(p.ChapterTestAttempts)
	c.FinalExamAttempts = slices.Clone(p.FinalExamAttempts)
	if p.FinalExamCooldown != nil {
		fc := *p.FinalExamCooldown
		c.FinalExamCooldown = &fc
	}
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		c.CompletedAt = &t
	}
	if p.CertificateIssuedAt != nil {
		t := *p.CertificateIssuedAt
		c.CertificateIssuedAt = &t
	}
	if c.CompletedLessons == nil {
		c.CompletedLessons = make(map[string]LessonCompletion)
	}
	if c.ChapterTestCooldowns == nil {
		c.ChapterTestCooldowns = make(map[string]Cooldown)
	}
	return &c
}
