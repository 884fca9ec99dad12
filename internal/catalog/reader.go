// Package catalog provides read-only access to the course → chapter → lesson
// hierarchy and its question bank.
package catalog

import (
	"context"
	"sort"
)

const domain = "catalog"

// Reader is the read-only catalog contract consumed by the progression engine.
// Missing entities are reported with an apperr NotFound error naming the entity.
type Reader interface {
	GetCourse(ctx context.Context, id string) (Course, error)
	GetChapter(ctx context.Context, id string) (Chapter, error)
	GetLesson(ctx context.Context, id string) (Lesson, error)
	// ListLessonsOfChapter returns the chapter's lessons ordered by lesson number.
	ListLessonsOfChapter(ctx context.Context, chapterID string) ([]Lesson, error)
	// ListChaptersOfCourse returns the course's chapters ordered by chapter number.
	ListChaptersOfCourse(ctx context.Context, courseID string) ([]Chapter, error)
	// GetQuestions returns the questions in the order of ids. Unknown ids are skipped.
	GetQuestions(ctx context.Context, ids []string) ([]Question, error)
}

func sortLessons(ls []Lesson) {
	sort.Slice(ls, func(i, j int) bool { return ls[i].Number < ls[j].Number })
}

func sortChapters(cs []Chapter) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Number < cs[j].Number })
}
