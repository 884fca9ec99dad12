package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-academy/internal/platform/apperr"
)

// CourseFile is the on-disk shape of one course definition.
type CourseFile struct {
	ID        string        `yaml:"id"`
	Title     string        `yaml:"title"`
	FinalExam Assessment    `yaml:"final_exam"`
	Chapters  []ChapterFile `yaml:"chapters"`
	Questions []Question    `yaml:"questions"`
}

// ChapterFile is a chapter together with its lessons.
type ChapterFile struct {
	ID          string     `yaml:"id"`
	Number      int        `yaml:"number"`
	Title       string     `yaml:"title"`
	ChapterTest Assessment `yaml:"chapter_test"`
	Lessons     []Lesson   `yaml:"lessons"`
}

// Catalog is an in-memory, indexed Reader.
type Catalog struct {
	courses   map[string]Course
	chapters  map[string]Chapter
	lessons   map[string]Lesson
	questions map[string]Question
	mu        sync.RWMutex
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		courses:   make(map[string]Course),
		chapters:  make(map[string]Chapter),
		lessons:   make(map[string]Lesson),
		questions: make(map[string]Question),
	}
}

// LoadDir walks rootDir and indexes every valid *.yaml course file.
// Invalid files are skipped with a warning.
func LoadDir(rootDir string) (*Catalog, error) {
	c := New()
	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}
		return c.loadFile(path)
	})
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	slog.Info("catalog loaded",
		"courses", len(c.courses),
		"chapters", len(c.chapters),
		"lessons", len(c.lessons),
		"questions", len(c.questions),
	)
	return c, nil
}

func (c *Catalog) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		slog.Warn("skipping invalid course YAML", "path", path, "error", err)
		return nil
	}
	if _, ok := doc["chapters"]; !ok {
		return nil // Not a course file
	}
	if err := ValidateDocument(doc); err != nil {
		slog.Warn("skipping course file that fails schema", "path", path, "error", err)
		return nil
	}

	var cf CourseFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		slog.Warn("skipping invalid course YAML", "path", path, "error", err)
		return nil
	}
	if err := c.Add(cf); err != nil {
		slog.Warn("skipping inconsistent course", "path", path, "course_id", cf.ID, "error", err)
	}
	return nil
}

// Add validates a course definition and indexes it.
func (c *Catalog) Add(cf CourseFile) error {
	if err := checkCourse(cf); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.courses[cf.ID]; exists {
		return fmt.Errorf("duplicate course id %q", cf.ID)
	}
	if err := c.checkIndexedLocked(cf); err != nil {
		return err
	}

	course := Course{ID: cf.ID, Title: cf.Title, FinalExam: cf.FinalExam}
	for _, chf := range cf.Chapters {
		ch := Chapter{
			ID:          chf.ID,
			CourseID:    cf.ID,
			Number:      chf.Number,
			Title:       chf.Title,
			ChapterTest: chf.ChapterTest,
		}
		for _, l := range chf.Lessons {
			l.ChapterID = chf.ID
			ch.LessonIDs = append(ch.LessonIDs, l.ID)
			c.lessons[l.ID] = l
		}
		course.ChapterIDs = append(course.ChapterIDs, ch.ID)
		c.chapters[ch.ID] = ch
	}
	for _, q := range cf.Questions {
		c.questions[q.ID] = q
	}
	c.courses[cf.ID] = course
	return nil
}

// checkIndexedLocked rejects ids already owned by another course. It must be
// called with c.mu held.
func (c *Catalog) checkIndexedLocked(cf CourseFile) error {
	var errs []error
	for _, ch := range cf.Chapters {
		if _, exists := c.chapters[ch.ID]; exists {
			errs = append(errs, fmt.Errorf("chapter id %q already indexed", ch.ID))
		}
		for _, l := range ch.Lessons {
			if _, exists := c.lessons[l.ID]; exists {
				errs = append(errs, fmt.Errorf("lesson id %q already indexed", l.ID))
			}
		}
	}
	for _, q := range cf.Questions {
		if _, exists := c.questions[q.ID]; exists {
			errs = append(errs, fmt.Errorf("question id %q already indexed", q.ID))
		}
	}
	return errors.Join(errs...)
}

// checkCourse enforces the invariants the schema cannot express.
func checkCourse(cf CourseFile) error {
	var errs []error
	if cf.ID == "" {
		errs = append(errs, errors.New("course id is required"))
	}

	questions := make(map[string]bool, len(cf.Questions))
	for _, q := range cf.Questions {
		if questions[q.ID] {
			errs = append(errs, fmt.Errorf("duplicate question id %q", q.ID))
		}
		if len(q.Options) != 4 {
			errs = append(errs, fmt.Errorf("question %s: want 4 options, got %d", q.ID, len(q.Options)))
		}
		if !q.HasOption(q.CorrectAnswer) {
			errs = append(errs, fmt.Errorf("question %s: correct answer is not one of the options", q.ID))
		}
		questions[q.ID] = true
	}
	refs := func(owner string, ids []string) {
		for _, id := range ids {
			if !questions[id] {
				errs = append(errs, fmt.Errorf("%s: unknown question %s", owner, id))
			}
		}
	}

	refs("final exam", cf.FinalExam.QuestionIDs)
	chapterIDs := make(map[string]bool, len(cf.Chapters))
	lessonIDs := make(map[string]bool)
	chapterNumbers := make([]int, 0, len(cf.Chapters))
	for _, ch := range cf.Chapters {
		if chapterIDs[ch.ID] {
			errs = append(errs, fmt.Errorf("duplicate chapter id %q", ch.ID))
		}
		chapterIDs[ch.ID] = true
		chapterNumbers = append(chapterNumbers, ch.Number)
		refs("chapter "+ch.ID, ch.ChapterTest.QuestionIDs)

		lessonNumbers := make([]int, 0, len(ch.Lessons))
		for _, l := range ch.Lessons {
			if lessonIDs[l.ID] {
				errs = append(errs, fmt.Errorf("duplicate lesson id %q", l.ID))
			}
			lessonIDs[l.ID] = true
			lessonNumbers = append(lessonNumbers, l.Number)
			refs("lesson "+l.ID, l.Quiz.QuestionIDs)
		}
		if err := checkDense(lessonNumbers); err != nil {
			errs = append(errs, fmt.Errorf("chapter %s lessons: %w", ch.ID, err))
		}
	}
	if err := checkDense(chapterNumbers); err != nil {
		errs = append(errs, fmt.Errorf("chapters: %w", err))
	}

	return errors.Join(errs...)
}

// checkDense verifies numbers form the sequence 1..N in any order.
func checkDense(numbers []int) error {
	seen := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		if n < 1 || n > len(numbers) || seen[n] {
			return fmt.Errorf("numbers must form 1..%d, got %v", len(numbers), numbers)
		}
		seen[n] = true
	}
	return nil
}

func (c *Catalog) GetCourse(_ context.Context, id string) (Course, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	course, ok := c.courses[id]
	if !ok {
		return Course{}, apperr.NotFound(domain, "GetCourse", "course")
	}
	return course, nil
}

func (c *Catalog) GetChapter(_ context.Context, id string) (Chapter, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.chapters[id]
	if !ok {
		return Chapter{}, apperr.NotFound(domain, "GetChapter", "chapter")
	}
	return ch, nil
}

func (c *Catalog) GetLesson(_ context.Context, id string) (Lesson, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.lessons[id]
	if !ok {
		return Lesson{}, apperr.NotFound(domain, "GetLesson", "lesson")
	}
	return l, nil
}

func (c *Catalog) ListLessonsOfChapter(_ context.Context, chapterID string) ([]Lesson, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.chapters[chapterID]
	if !ok {
		return nil, apperr.NotFound(domain, "ListLessonsOfChapter", "chapter")
	}
	lessons := make([]Lesson, 0, len(ch.LessonIDs))
	for _, id := range ch.LessonIDs {
		lessons = append(lessons, c.lessons[id])
	}
	sortLessons(lessons)
	return lessons, nil
}

func (c *Catalog) ListChaptersOfCourse(_ context.Context, courseID string) ([]Chapter, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	course, ok := c.courses[courseID]
	if !ok {
		return nil, apperr.NotFound(domain, "ListChaptersOfCourse", "course")
	}
	chapters := make([]Chapter, 0, len(course.ChapterIDs))
	for _, id := range course.ChapterIDs {
		chapters = append(chapters, c.chapters[id])
	}
	sortChapters(chapters)
	return chapters, nil
}

func (c *Catalog) GetQuestions(_ context.Context, ids []string) ([]Question, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	questions := make([]Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := c.questions[id]; ok {
			questions = append(questions, q)
		}
	}
	return questions, nil
}

// AllCourses returns every indexed course.
func (c *Catalog) AllCourses() []Course {
	c.mu.RLock()
	defer c.mu.RUnlock()
	courses := make([]Course, 0, len(c.courses))
	for _, course := range c.courses {
		courses = append(courses, course)
	}
	return courses
}
