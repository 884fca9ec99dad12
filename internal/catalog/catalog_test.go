package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-academy/internal/catalog"
	"github.com/p-n-ai/pai-academy/internal/catalog/catalogtest"
	"github.com/p-n-ai/pai-academy/internal/platform/apperr"
)

func TestLoadDir_LoadsCourse(t *testing.T) {
	dir := setupTestCatalog(t)

	c, err := catalog.LoadDir(dir)
	require.NoError(t, err)

	course, err := c.GetCourse(context.Background(), "go-basics")
	require.NoError(t, err)
	assert.Equal(t, "Go Basics", course.Title)
	assert.Equal(t, []string{"ch-1", "ch-2"}, course.ChapterIDs)
	assert.Equal(t, 70, course.FinalExam.PassingScore)
}

func TestLoadDir_ParentLinks(t *testing.T) {
	c, err := catalog.LoadDir(setupTestCatalog(t))
	require.NoError(t, err)

	ctx := context.Background()
	lesson, err := c.GetLesson(ctx, "l-2-1")
	require.NoError(t, err)
	assert.Equal(t, "ch-2", lesson.ChapterID)

	ch, err := c.GetChapter(ctx, lesson.ChapterID)
	require.NoError(t, err)
	assert.Equal(t, "go-basics", ch.CourseID)
	assert.Equal(t, 2, ch.Number)
}

func TestLoadDir_OrdersByNumber(t *testing.T) {
	c, err := catalog.LoadDir(setupTestCatalog(t))
	require.NoError(t, err)

	ctx := context.Background()
	lessons, err := c.ListLessonsOfChapter(ctx, "ch-1")
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, 1, lessons[0].Number)
	assert.Equal(t, 2, lessons[1].Number)

	chapters, err := c.ListChaptersOfCourse(ctx, "go-basics")
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	assert.Equal(t, "ch-1", chapters[0].ID)
}

func TestLoadDir_SkipsSchemaViolations(t *testing.T) {
	dir := setupTestCatalog(t)
	os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(`
id: broken
title: Broken
final_exam: {question_ids: [], passing_score: 140}
chapters: []
`), 0o644)

	c, err := catalog.LoadDir(dir)
	require.NoError(t, err)

	_, err = c.GetCourse(context.Background(), "broken")
	assert.True(t, apperr.IsNotFound(err))
	assert.Len(t, c.AllCourses(), 1)
}

func TestLoadDir_SkipsNonCourseYAML(t *testing.T) {
	dir := setupTestCatalog(t)
	os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte("theme: dark\n"), 0o644)

	c, err := catalog.LoadDir(dir)
	require.NoError(t, err)
	assert.Len(t, c.AllCourses(), 1)
}

func TestLoadDir_EmptyDir(t *testing.T) {
	c, err := catalog.LoadDir(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, c.AllCourses())
}

func TestAdd_RejectsCorrectAnswerOutsideOptions(t *testing.T) {
	cf := catalogtest.CourseFile(1)
	cf.Questions[0].CorrectAnswer = "a" // options are upper-case

	err := catalog.New().Add(cf)
	assert.ErrorContains(t, err, "correct answer is not one of the options")
}

func TestAdd_RejectsSparseLessonNumbers(t *testing.T) {
	cf := catalogtest.CourseFile(2)
	cf.Chapters[0].Lessons[1].Number = 3

	err := catalog.New().Add(cf)
	assert.ErrorContains(t, err, "numbers must form 1..2")
}

func TestAdd_RejectsUnknownQuestion(t *testing.T) {
	cf := catalogtest.CourseFile(1)
	cf.FinalExam.QuestionIDs = append(cf.FinalExam.QuestionIDs, "missing")

	err := catalog.New().Add(cf)
	assert.ErrorContains(t, err, "unknown question missing")
}

func TestAdd_RejectsDuplicateCourse(t *testing.T) {
	c := catalog.New()
	require.NoError(t, c.Add(catalogtest.CourseFile(1)))
	assert.Error(t, c.Add(catalogtest.CourseFile(1)))
}

func TestAdd_RejectsDuplicateIDs(t *testing.T) {
	t.Run("question within a course", func(t *testing.T) {
		cf := catalogtest.CourseFile(1)
		cf.Questions = append(cf.Questions, cf.Questions[0])

		err := catalog.New().Add(cf)
		assert.ErrorContains(t, err, `duplicate question id "exam-q1"`)
	})

	t.Run("lesson shared by two chapters", func(t *testing.T) {
		cf := catalogtest.CourseFile(1, 1)
		cf.Chapters[1].Lessons[0].ID = cf.Chapters[0].Lessons[0].ID

		c := catalog.New()
		assert.ErrorContains(t, c.Add(cf), `duplicate lesson id "ch1-l1"`)
		_, err := c.GetChapter(context.Background(), catalogtest.ChapterID(1))
		assert.True(t, apperr.IsNotFound(err), "rejected course is not indexed")
	})

	t.Run("chapter within a course", func(t *testing.T) {
		cf := catalogtest.CourseFile(1, 1)
		cf.Chapters[1].ID = cf.Chapters[0].ID

		assert.ErrorContains(t, catalog.New().Add(cf), `duplicate chapter id "ch1"`)
	})

	t.Run("question owned by another course", func(t *testing.T) {
		c := catalogtest.New(1)

		other := catalogtest.CourseFile(1)
		other.ID = "course-2"
		for i := range other.Chapters {
			other.Chapters[i].ID += "-b"
			for j := range other.Chapters[i].Lessons {
				other.Chapters[i].Lessons[j].ID += "-b"
			}
		}
		other.Questions[0].CorrectAnswer = other.Questions[0].Options[3]

		assert.ErrorContains(t, c.Add(other), `question id "exam-q1" already indexed`)

		qs, err := c.GetQuestions(context.Background(), []string{"exam-q1"})
		require.NoError(t, err)
		require.Len(t, qs, 1)
		assert.Equal(t, catalogtest.CorrectAnswer, qs[0].CorrectAnswer, "answer key unchanged")
		_, err = c.GetCourse(context.Background(), "course-2")
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("lesson owned by another course", func(t *testing.T) {
		c := catalogtest.New(1)

		other := catalog.CourseFile{
			ID:    "course-2",
			Title: "Other",
			Chapters: []catalog.ChapterFile{{
				ID:      "other-ch1",
				Number:  1,
				Lessons: []catalog.Lesson{{ID: catalogtest.LessonID(1, 1), Number: 1}},
			}},
		}
		assert.ErrorContains(t, c.Add(other), `lesson id "ch1-l1" already indexed`)
	})
}

func TestNotFound(t *testing.T) {
	c := catalogtest.New(1)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want string
	}{
		{"course", func() error { _, err := c.GetCourse(ctx, "x"); return err }, "course not found"},
		{"chapter", func() error { _, err := c.GetChapter(ctx, "x"); return err }, "chapter not found"},
		{"lesson", func() error { _, err := c.GetLesson(ctx, "x"); return err }, "lesson not found"},
		{"lessons of chapter", func() error { _, err := c.ListLessonsOfChapter(ctx, "x"); return err }, "chapter not found"},
		{"chapters of course", func() error { _, err := c.ListChaptersOfCourse(ctx, "x"); return err }, "course not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			assert.True(t, apperr.IsNotFound(err))
			assert.Equal(t, tt.want, apperr.Message(err))
		})
	}
}

func TestGetQuestions_PreservesOrderAndSkipsUnknown(t *testing.T) {
	c := catalogtest.New(1)

	qs, err := c.GetQuestions(context.Background(), []string{"exam-q2", "nope", "exam-q1"})
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "exam-q2", qs[0].ID)
	assert.Equal(t, "exam-q1", qs[1].ID)
}

func setupTestCatalog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	coursesDir := filepath.Join(dir, "courses")
	os.MkdirAll(coursesDir, 0o755)

	os.WriteFile(filepath.Join(coursesDir, "go-basics.yaml"), []byte(`
id: go-basics
title: Go Basics
final_exam:
  question_ids: [e1]
  passing_score: 70
  cooldown_hours: 24
  time_limit_minutes: 60
chapters:
  - id: ch-2
    number: 2
    title: Types
    chapter_test: {question_ids: [t2], passing_score: 70, cooldown_hours: 12}
    lessons:
      - id: l-2-1
        number: 1
        quiz: {question_ids: [q3], passing_score: 100}
  - id: ch-1
    number: 1
    title: Syntax
    chapter_test: {question_ids: [t1], passing_score: 70, cooldown_hours: 12}
    lessons:
      - id: l-1-2
        number: 2
        quiz: {question_ids: [q2], passing_score: 100}
      - id: l-1-1
        number: 1
        quiz: {question_ids: [q1], passing_score: 100, unlimited_retries: true}
questions:
  - {id: q1, text: "Keyword for a loop?", options: [for, while, loop, repeat], correct_answer: for, type: quiz}
  - {id: q2, text: "Declare and assign?", options: [":=", "=", "<-", "=>"], correct_answer: ":=", type: quiz}
  - {id: q3, text: "Zero value of int?", options: ["0", "nil", "1", "-1"], correct_answer: "0", type: quiz}
  - {id: t1, text: "Entry point?", options: [main, init, start, run], correct_answer: main, type: test}
  - {id: t2, text: "Type of 'a'?", options: [rune, byte, string, char], correct_answer: rune, type: test}
  - {id: e1, text: "Go was announced in?", options: ["2009", "2007", "2012", "2001"], correct_answer: "2009", type: exam}
`), 0o644)

	return dir
}
