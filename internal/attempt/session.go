package attempt

import (
	"time"

	"github.com/p-n-ai/pai-academy/internal/catalog"
)

// PublicQuestion is a question as served to a learner, without its answer.
type PublicQuestion struct {
	ID       string               `json:"id"`
	Text     string               `json:"text"`
	Options  []string             `json:"options"`
	AudioURL string               `json:"audio_url,omitempty"`
	Type     catalog.QuestionType `json:"type"`
}

// Session is a started chapter test or final exam.
type Session struct {
	CourseID         string           `json:"course_id"`
	ChapterID        string           `json:"chapter_id,omitempty"`
	Questions        []PublicQuestion `json:"questions"`
	PassingScore     int              `json:"passing_score"`
	TimeLimitMinutes int              `json:"time_limit_minutes"`
	StartedAt        time.Time        `json:"started_at"`
}

func newSession(courseID, chapterID string, a catalog.Assessment, questions []catalog.Question, startedAt time.Time) *Session {
	public := make([]PublicQuestion, 0, len(questions))
	for _, q := range questions {
		public = append(public, PublicQuestion{
			ID:       q.ID,
			Text:     q.Text,
			Options:  append([]string(nil), q.Options...),
			AudioURL: q.AudioURL,
			Type:     q.Type,
		})
	}
	return &Session{
		CourseID:         courseID,
		ChapterID:        chapterID,
		Questions:        public,
		PassingScore:     a.PassingScore,
		TimeLimitMinutes: a.TimeLimitMinutes,
		StartedAt:        startedAt,
	}
}
