// Package catalogtest builds small, regular catalogs for tests.
package catalogtest

import (
	"fmt"

	"github.com/p-n-ai/pai-academy/internal/catalog"
)

const (
	CourseID       = "course-1"
	CorrectAnswer  = "A"
	WrongAnswer    = "B"
	QuizPassing    = 50
	TestPassing    = 70
	ExamPassing    = 70
	CooldownHours  = 24
	QuestionsPerQA = 2
)

// ChapterID returns the id of chapter n.
func ChapterID(n int) string { return fmt.Sprintf("ch%d", n) }

// LessonID returns the id of lesson l in chapter c.
func LessonID(c, l int) string { return fmt.Sprintf("ch%d-l%d", c, l) }

// CourseFile builds a course whose chapter i has lessons[i] lessons. Every
// quiz, chapter test and the final exam has two questions answered by "A".
func CourseFile(lessons ...int) catalog.CourseFile {
	cf := catalog.CourseFile{
		ID:    CourseID,
		Title: "Foundations of Go",
	}
	cf.FinalExam = catalog.Assessment{
		QuestionIDs:      addQuestions(&cf, "exam", catalog.QuestionExam),
		PassingScore:     ExamPassing,
		CooldownHours:    CooldownHours,
		TimeLimitMinutes: 60,
	}
	for i, n := range lessons {
		c := i + 1
		ch := catalog.ChapterFile{
			ID:     ChapterID(c),
			Number: c,
			Title:  fmt.Sprintf("Chapter %d", c),
			ChapterTest: catalog.Assessment{
				QuestionIDs:      addQuestions(&cf, ChapterID(c)+"-test", catalog.QuestionTest),
				PassingScore:     TestPassing,
				CooldownHours:    CooldownHours,
				TimeLimitMinutes: 30,
			},
		}
		for l := 1; l <= n; l++ {
			ch.Lessons = append(ch.Lessons, catalog.Lesson{
				ID:     LessonID(c, l),
				Number: l,
				Title:  fmt.Sprintf("Lesson %d.%d", c, l),
				Quiz: catalog.Quiz{
					QuestionIDs:      addQuestions(&cf, LessonID(c, l), catalog.QuestionQuiz),
					PassingScore:     QuizPassing,
					UnlimitedRetries: true,
				},
			})
		}
		cf.Chapters = append(cf.Chapters, ch)
	}
	return cf
}

// New returns a catalog holding CourseFile(lessons...).
func New(lessons ...int) *catalog.Catalog {
	c := catalog.New()
	if err := c.Add(CourseFile(lessons...)); err != nil {
		panic(err)
	}
	return c
}

func addQuestions(cf *catalog.CourseFile, owner string, typ catalog.QuestionType) []string {
	ids := make([]string, 0, QuestionsPerQA)
	for i := 1; i <= QuestionsPerQA; i++ {
		id := fmt.Sprintf("%s-q%d", owner, i)
		cf.Questions = append(cf.Questions, catalog.Question{
			ID:            id,
			Text:          fmt.Sprintf("Question %d for %s", i, owner),
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: CorrectAnswer,
			Explanation:   "A is correct.",
			Type:          typ,
		})
		ids = append(ids, id)
	}
	return ids
}
