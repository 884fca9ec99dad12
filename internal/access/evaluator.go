// Package access decides whether a learner may open a lesson, a chapter test
// or the final exam. Decisions are recomputed from completion facts on every
// call; the progress cursor is consulted only where noted.
package access

import (
	"context"
	"fmt"

	"github.com/p-n-ai/pai-academy/internal/catalog"
	"github.com/p-n-ai/pai-academy/internal/platform/apperr"
	"github.com/p-n-ai/pai-academy/internal/progress"
)

const domain = "access"

// Reasons attached to allowed decisions.
const (
	ReasonElevated                = "elevated access"
	ReasonFirstLesson             = "first lesson"
	ReasonAlreadyCompleted        = "already completed"
	ReasonPreviousChapterComplete = "previous chapter completed"
	ReasonNoPreviousLesson        = "no previous lesson"
	ReasonPreviousLessonComplete  = "previous lesson completed"
	ReasonChapterCompleted        = "chapter completed"
	ReasonAllLessonsCompleted     = "all lessons completed"
	ReasonAllRequirementsMet      = "all requirements met"
)

// Decision is the outcome of an access check. Message is set on denials.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// Allow returns an allowed decision with the given reason.
func Allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }

// Deny returns a denied decision with the given message.
func Deny(message string) Decision { return Decision{Message: message} }

// ProgressReader is the read side of progress.Store.
type ProgressReader interface {
	Get(ctx context.Context, userID, courseID string) (*progress.Progress, bool, error)
}

// Evaluator answers gating questions from the catalog and stored progress.
type Evaluator struct {
	catalog  catalog.Reader
	progress ProgressReader
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(reader catalog.Reader, store ProgressReader) *Evaluator {
	return &Evaluator{catalog: reader, progress: store}
}

// CanAccessLesson decides whether id may open the lesson.
func (e *Evaluator) CanAccessLesson(ctx context.Context, id *Identity, lessonID string) (Decision, error) {
	if id == nil {
		return Decision{}, apperr.Unauthorized(domain, "CanAccessLesson")
	}
	if id.Elevated() {
		return Allow(ReasonElevated), nil
	}

	lesson, err := e.catalog.GetLesson(ctx, lessonID)
	if err != nil {
		return Decision{}, err
	}
	chapter, err := e.catalog.GetChapter(ctx, lesson.ChapterID)
	if err != nil {
		return Decision{}, err
	}

	if chapter.Number == 1 && lesson.Number == 1 {
		return Allow(ReasonFirstLesson), nil
	}

	p, found, err := e.progress.Get(ctx, id.UserID, chapter.CourseID)
	if err != nil {
		return Decision{}, fmt.Errorf("load progress: %w", err)
	}
	if !found {
		return Deny("must start from lesson 1"), nil
	}

	if p.LessonPassed(lesson.ID) {
		return Allow(ReasonAlreadyCompleted), nil
	}

	if lesson.Number == 1 {
		prev, err := e.previousChapterLessons(ctx, chapter)
		if err != nil {
			return Decision{}, err
		}
		for _, l := range prev {
			if !p.LessonPassed(l.ID) {
				return Deny("complete all lessons in previous chapter first"), nil
			}
		}
		return Allow(ReasonPreviousChapterComplete), nil
	}

	lessons, err := e.catalog.ListLessonsOfChapter(ctx, chapter.ID)
	if err != nil {
		return Decision{}, err
	}
	for _, l := range lessons {
		if l.Number != lesson.Number-1 {
			continue
		}
		if p.LessonPassed(l.ID) {
			return Allow(ReasonPreviousLessonComplete), nil
		}
		return Deny(fmt.Sprintf("complete lesson %d first", lesson.Number-1)), nil
	}
	return Allow(ReasonNoPreviousLesson), nil
}

// previousChapterLessons returns the lessons of the chapter numbered one below
// ch, or none when that chapter is missing.
func (e *Evaluator) previousChapterLessons(ctx context.Context, ch catalog.Chapter) ([]catalog.Lesson, error) {
	chapters, err := e.catalog.ListChaptersOfCourse(ctx, ch.CourseID)
	if err != nil {
		return nil, err
	}
	for _, c := range chapters {
		if c.Number == ch.Number-1 {
			return e.catalog.ListLessonsOfChapter(ctx, c.ID)
		}
	}
	return nil, nil
}

// CanAccessChapterTest decides whether id may take the chapter's test.
func (e *Evaluator) CanAccessChapterTest(ctx context.Context, id *Identity, chapterID string) (Decision, error) {
	if id == nil {
		return Decision{}, apperr.Unauthorized(domain, "CanAccessChapterTest")
	}
	if id.Elevated() {
		return Allow(ReasonElevated), nil
	}

	chapter, err := e.catalog.GetChapter(ctx, chapterID)
	if err != nil {
		return Decision{}, err
	}

	p, found, err := e.progress.Get(ctx, id.UserID, chapter.CourseID)
	if err != nil {
		return Decision{}, fmt.Errorf("load progress: %w", err)
	}
	if !found {
		return Deny("complete all chapter lessons first"), nil
	}

	lessons, err := e.catalog.ListLessonsOfChapter(ctx, chapter.ID)
	if err != nil {
		return Decision{}, err
	}

	switch {
	case p.CurrentChapterNumber > chapter.Number:
		return Allow(ReasonChapterCompleted), nil
	case p.CurrentChapterNumber == chapter.Number:
		passed := 0
		for _, l := range lessons {
			if p.LessonPassed(l.ID) {
				passed++
			}
		}
		if passed >= len(lessons) {
			return Allow(ReasonAllLessonsCompleted), nil
		}
	}
	return Deny(fmt.Sprintf("complete all %d lessons first", len(lessons))), nil
}

// CanAccessFinalExam decides whether id may take the course's final exam.
func (e *Evaluator) CanAccessFinalExam(ctx context.Context, id *Identity, courseID string) (Decision, error) {
	if id == nil {
		return Decision{}, apperr.Unauthorized(domain, "CanAccessFinalExam")
	}
	if id.Elevated() {
		return Allow(ReasonElevated), nil
	}

	chapters, err := e.catalog.ListChaptersOfCourse(ctx, courseID)
	if err != nil {
		return Decision{}, err
	}

	p, found, err := e.progress.Get(ctx, id.UserID, courseID)
	if err != nil {
		return Decision{}, fmt.Errorf("load progress: %w", err)
	}
	if !found {
		return Deny("complete all chapters first"), nil
	}

	passed := 0
	for _, ch := range chapters {
		if p.ChapterTestPassed(ch.ID) {
			passed++
		}
	}
	if passed == len(chapters) {
		return Allow(ReasonAllRequirementsMet), nil
	}
	return Deny(fmt.Sprintf("pass all %d chapter tests first; you've passed %d/%d",
		len(chapters), passed, len(chapters))), nil
}
