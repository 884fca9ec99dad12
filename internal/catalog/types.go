package catalog

// QuestionType tags which kind of assessment a question belongs to.
type QuestionType string

const (
	QuestionQuiz QuestionType = "quiz"
	QuestionTest QuestionType = "test"
	QuestionExam QuestionType = "exam"
)

// Course is the root of the catalog hierarchy.
type Course struct {
	ID         string     `yaml:"id" json:"id"`
	Title      string     `yaml:"title" json:"title"`
	ChapterIDs []string   `yaml:"-" json:"chapter_ids"`
	FinalExam  Assessment `yaml:"final_exam" json:"final_exam"`
}

// Chapter belongs to exactly one course. Number is 1-based and dense within the course.
type Chapter struct {
	ID          string     `yaml:"id" json:"id"`
	CourseID    string     `yaml:"-" json:"course_id"`
	Number      int        `yaml:"number" json:"number"`
	Title       string     `yaml:"title" json:"title"`
	LessonIDs   []string   `yaml:"-" json:"lesson_ids"`
	ChapterTest Assessment `yaml:"chapter_test" json:"chapter_test"`
}

// Lesson belongs to exactly one chapter. Number is 1-based and dense within the chapter.
type Lesson struct {
	ID        string `yaml:"id" json:"id"`
	ChapterID string `yaml:"-" json:"chapter_id"`
	Number    int    `yaml:"number" json:"number"`
	Title     string `yaml:"title" json:"title"`
	Quiz      Quiz   `yaml:"quiz" json:"quiz"`
}

// Assessment describes a chapter test or the final exam.
type Assessment struct {
	QuestionIDs      []string `yaml:"question_ids" json:"question_ids"`
	PassingScore     int      `yaml:"passing_score" json:"passing_score"`
	CooldownHours    int      `yaml:"cooldown_hours" json:"cooldown_hours"`
	TimeLimitMinutes int      `yaml:"time_limit_minutes" json:"time_limit_minutes"`
}

// Quiz describes the quiz attached to a lesson.
type Quiz struct {
	QuestionIDs      []string `yaml:"question_ids" json:"question_ids"`
	PassingScore     int      `yaml:"passing_score" json:"passing_score"`
	UnlimitedRetries bool     `yaml:"unlimited_retries" json:"unlimited_retries"`
}

// Question is immutable from the engine's point of view.
type Question struct {
	ID            string       `yaml:"id" json:"id"`
	Text          string       `yaml:"text" json:"text"`
	Options       []string     `yaml:"options" json:"options"`
	CorrectAnswer string       `yaml:"correct_answer" json:"correct_answer"`
	Explanation   string       `yaml:"explanation" json:"explanation,omitempty"`
	AudioURL      string       `yaml:"audio_url" json:"audio_url,omitempty"`
	Type          QuestionType `yaml:"type" json:"type"`
}

// HasOption reports whether s equals one of the options byte-for-byte.
func (q Question) HasOption(s string) bool {
	for _, o := range q.Options {
		if o == s {
			return true
		}
	}
	return false
}
