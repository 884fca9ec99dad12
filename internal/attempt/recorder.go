// Package attempt records graded submissions into learner progress. It owns
// the cooldown checks, the lesson completion upsert, the attempt logs and the
// one-way course completion transition that triggers certificate issuance.
package attempt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/p-n-ai/pai-academy/internal/access"
	"github.com/p-n-ai/pai-academy/internal/catalog"
	"github.com/p-n-ai/pai-academy/internal/certificate"
	"github.com/p-n-ai/pai-academy/internal/grading"
	"github.com/p-n-ai/pai-academy/internal/platform/apperr"
	"github.com/p-n-ai/pai-academy/internal/progress"
)

const domain = "attempt"

// Issuer mints certificates for a completed course.
type Issuer interface {
	Issue(ctx context.Context, req certificate.Request) ([]certificate.Certificate, error)
}

// Outcome is the result of starting or submitting an assessment. A denied
// Decision carries no Result; Cooldown is set when a cooldown caused the denial.
type Outcome struct {
	Decision        access.Decision           `json:"decision"`
	Cooldown        *Cooldown                 `json:"cooldown,omitempty"`
	Session         *Session                  `json:"session,omitempty"`
	Result          *grading.Result           `json:"result,omitempty"`
	CourseCompleted bool                      `json:"course_completed,omitempty"`
	Certificates    []certificate.Certificate `json:"certificates,omitempty"`
}

// RecorderConfig holds dependencies for the Recorder.
type RecorderConfig struct {
	Catalog   catalog.Reader
	Store     progress.Store
	Evaluator *access.Evaluator
	Issuer    Issuer
	Events    progress.EventLogger
	Now       func() time.Time         // defaults to time.Now
	Shuffle   func([]catalog.Question) // defaults to a uniform shuffle
}

// Recorder applies submissions to progress.
type Recorder struct {
	catalog   catalog.Reader
	store     progress.Store
	evaluator *access.Evaluator
	issuer    Issuer
	events    progress.EventLogger
	now       func() time.Time
	shuffle   func([]catalog.Question)
}

// NewRecorder creates a Recorder.
func NewRecorder(cfg RecorderConfig) *Recorder {
	evaluator := cfg.Evaluator
	if evaluator == nil {
		evaluator = access.NewEvaluator(cfg.Catalog, cfg.Store)
	}
	events := cfg.Events
	if events == nil {
		events = progress.NopEventLogger{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	shuffle := cfg.Shuffle
	if shuffle == nil {
		shuffle = func(qs []catalog.Question) {
			rand.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
		}
	}
	return &Recorder{
		catalog:   cfg.Catalog,
		store:     cfg.Store,
		evaluator: evaluator,
		issuer:    cfg.Issuer,
		events:    events,
		now:       now,
		shuffle:   shuffle,
	}
}

// Evaluator returns the access evaluator used for gating.
func (r *Recorder) Evaluator() *access.Evaluator { return r.evaluator }

// Progress returns the caller's progress in a course, creating it on first read.
func (r *Recorder) Progress(ctx context.Context, id *access.Identity, courseID string) (*progress.Progress, error) {
	if id == nil {
		return nil, apperr.Unauthorized(domain, "Progress")
	}
	if _, err := r.catalog.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	p, err := r.store.GetOrCreate(ctx, id.UserID, courseID)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return p, nil
}

// SubmitLessonQuiz grades a lesson quiz. Only a passing submission is recorded.
func (r *Recorder) SubmitLessonQuiz(ctx context.Context, id *access.Identity, lessonID string, answers []grading.Answer) (Outcome, error) {
	decision, err := r.evaluator.CanAccessLesson(ctx, id, lessonID)
	if err != nil {
		return Outcome{}, err
	}
	if !decision.Allowed {
		return Outcome{Decision: decision}, nil
	}

	lesson, err := r.catalog.GetLesson(ctx, lessonID)
	if err != nil {
		return Outcome{}, err
	}
	chapter, err := r.catalog.GetChapter(ctx, lesson.ChapterID)
	if err != nil {
		return Outcome{}, err
	}

	result, err := r.grade(ctx, lesson.Quiz.QuestionIDs, answers, lesson.Quiz.PassingScore)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Decision: decision, Result: &result}
	if !result.Passed {
		return out, nil
	}

	now := r.now()
	var completion progress.LessonCompletion
	if _, err := r.store.Update(ctx, id.UserID, chapter.CourseID, func(p *progress.Progress) error {
		completion = p.RecordLessonPass(lesson.ID, result.CorrectCount, now)
		p.AdvanceCursor(chapter.Number, lesson.Number+1)
		return nil
	}); err != nil {
		return Outcome{}, fmt.Errorf("record lesson completion: %w", err)
	}

	slog.Info("lesson completed",
		"user_id", id.UserID,
		"course_id", chapter.CourseID,
		"lesson_id", lesson.ID,
		"score", result.CorrectCount,
		"attempts", completion.Attempts,
	)
	r.logEvent(progress.Event{
		UserID:    id.UserID,
		CourseID:  chapter.CourseID,
		EventType: progress.EventLessonCompleted,
		Data: map[string]any{
			"lesson_id":  lesson.ID,
			"chapter_id": chapter.ID,
			"quiz_score": result.CorrectCount,
			"attempts":   completion.Attempts,
		},
		CreatedAt: now,
	})
	return out, nil
}

// CheckChapterTestCooldown reports the caller's cooldown on a chapter test.
func (r *Recorder) CheckChapterTestCooldown(ctx context.Context, id *access.Identity, chapterID string) (Cooldown, error) {
	if id == nil {
		return Cooldown{}, apperr.Unauthorized(domain, "CheckChapterTestCooldown")
	}
	chapter, err := r.catalog.GetChapter(ctx, chapterID)
	if err != nil {
		return Cooldown{}, err
	}
	p, err := r.peek(ctx, id.UserID, chapter.CourseID)
	if err != nil {
		return Cooldown{}, err
	}
	return chapterCooldown(p, chapter.ID, chapter.ChapterTest.CooldownHours, r.now()), nil
}

// CheckFinalExamCooldown reports the caller's cooldown on the course's final exam.
func (r *Recorder) CheckFinalExamCooldown(ctx context.Context, id *access.Identity, courseID string) (Cooldown, error) {
	if id == nil {
		return Cooldown{}, apperr.Unauthorized(domain, "CheckFinalExamCooldown")
	}
	course, err := r.catalog.GetCourse(ctx, courseID)
	if err != nil {
		return Cooldown{}, err
	}
	p, err := r.peek(ctx, id.UserID, course.ID)
	if err != nil {
		return Cooldown{}, err
	}
	return finalExamCooldown(p, course.FinalExam.CooldownHours, r.now()), nil
}

// StartChapterTest returns the chapter test's questions, shuffled and without
// answers, when access and cooldown permit.
func (r *Recorder) StartChapterTest(ctx context.Context, id *access.Identity, chapterID string) (Outcome, error) {
	decision, err := r.evaluator.CanAccessChapterTest(ctx, id, chapterID)
	if err != nil {
		return Outcome{}, err
	}
	if !decision.Allowed {
		return Outcome{Decision: decision}, nil
	}

	chapter, err := r.catalog.GetChapter(ctx, chapterID)
	if err != nil {
		return Outcome{}, err
	}
	cd, err := r.CheckChapterTestCooldown(ctx, id, chapterID)
	if err != nil {
		return Outcome{}, err
	}
	if cd.Active {
		return denied(cd), nil
	}

	session, err := r.start(ctx, chapter.CourseID, chapter.ID, chapter.ChapterTest)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Decision: decision, Session: session}, nil
}

// StartFinalExam returns the final exam's questions, shuffled and without
// answers, when access and cooldown permit.
func (r *Recorder) StartFinalExam(ctx context.Context, id *access.Identity, courseID string) (Outcome, error) {
	decision, err := r.evaluator.CanAccessFinalExam(ctx, id, courseID)
	if err != nil {
		return Outcome{}, err
	}
	if !decision.Allowed {
		return Outcome{Decision: decision}, nil
	}

	course, err := r.catalog.GetCourse(ctx, courseID)
	if err != nil {
		return Outcome{}, err
	}
	cd, err := r.CheckFinalExamCooldown(ctx, id, courseID)
	if err != nil {
		return Outcome{}, err
	}
	if cd.Active {
		return denied(cd), nil
	}

	session, err := r.start(ctx, course.ID, "", course.FinalExam)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Decision: decision, Session: session}, nil
}

// SubmitChapterTest grades a chapter test. Every graded submission is logged
// and restarts the chapter cooldown; a pass moves the cursor to the next chapter.
func (r *Recorder) SubmitChapterTest(ctx context.Context, id *access.Identity, chapterID string, answers []grading.Answer) (Outcome, error) {
	decision, err := r.evaluator.CanAccessChapterTest(ctx, id, chapterID)
	if err != nil {
		return Outcome{}, err
	}
	if !decision.Allowed {
		return Outcome{Decision: decision}, nil
	}

	chapter, err := r.catalog.GetChapter(ctx, chapterID)
	if err != nil {
		return Outcome{}, err
	}
	test := chapter.ChapterTest

	cd, err := r.CheckChapterTestCooldown(ctx, id, chapterID)
	if err != nil {
		return Outcome{}, err
	}
	if cd.Active {
		return denied(cd), nil
	}

	result, err := r.grade(ctx, test.QuestionIDs, answers, test.PassingScore)
	if err != nil {
		return Outcome{}, err
	}

	now := r.now()
	_, err = r.store.Update(ctx, id.UserID, chapter.CourseID, func(p *progress.Progress) error {
		if cd := chapterCooldown(p, chapter.ID, test.CooldownHours, now); cd.Active {
			return &cooldownError{cooldown: cd}
		}
		p.AppendChapterTestAttempt(chapter.ID, result.Score, result.Passed, now)
		if result.Passed {
			p.AdvanceCursor(chapter.Number+1, 1)
		}
		return nil
	})
	var cdErr *cooldownError
	if errors.As(err, &cdErr) {
		return denied(cdErr.cooldown), nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("record chapter test attempt: %w", err)
	}

	slog.Info("chapter test submitted",
		"user_id", id.UserID,
		"course_id", chapter.CourseID,
		"chapter_id", chapter.ID,
		"score", result.Score,
		"passed", result.Passed,
	)
	r.logEvent(progress.Event{
		UserID:    id.UserID,
		CourseID:  chapter.CourseID,
		EventType: progress.EventChapterTestSubmitted,
		Data: map[string]any{
			"chapter_id": chapter.ID,
			"score":      result.Score,
			"passed":     result.Passed,
		},
		CreatedAt: now,
	})
	return Outcome{Decision: decision, Result: &result}, nil
}

// SubmitFinalExam grades the final exam. The first passing submission marks
// the course completed and issues certificates; later passes are logged only.
func (r *Recorder) SubmitFinalExam(ctx context.Context, id *access.Identity, courseID string, answers []grading.Answer) (Outcome, error) {
	decision, err := r.evaluator.CanAccessFinalExam(ctx, id, courseID)
	if err != nil {
		return Outcome{}, err
	}
	if !decision.Allowed {
		return Outcome{Decision: decision}, nil
	}

	course, err := r.catalog.GetCourse(ctx, courseID)
	if err != nil {
		return Outcome{}, err
	}
	exam := course.FinalExam

	cd, err := r.CheckFinalExamCooldown(ctx, id, courseID)
	if err != nil {
		return Outcome{}, err
	}
	if cd.Active {
		return denied(cd), nil
	}

	result, err := r.grade(ctx, exam.QuestionIDs, answers, exam.PassingScore)
	if err != nil {
		return Outcome{}, err
	}

	now := r.now()
	completedNow := false
	updated, err := r.store.Update(ctx, id.UserID, course.ID, func(p *progress.Progress) error {
		completedNow = false
		if cd := finalExamCooldown(p, exam.CooldownHours, now); cd.Active {
			return &cooldownError{cooldown: cd}
		}
		p.AppendFinalExamAttempt(result.Score, result.Passed, now)
		if result.Passed {
			completedNow = p.MarkCompleted(now)
		}
		return nil
	})
	var cdErr *cooldownError
	if errors.As(err, &cdErr) {
		return denied(cdErr.cooldown), nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("record final exam attempt: %w", err)
	}

	slog.Info("final exam submitted",
		"user_id", id.UserID,
		"course_id", course.ID,
		"score", result.Score,
		"passed", result.Passed,
		"completed_now", completedNow,
	)
	r.logEvent(progress.Event{
		UserID:    id.UserID,
		CourseID:  course.ID,
		EventType: progress.EventFinalExamSubmitted,
		Data: map[string]any{
			"score":  result.Score,
			"passed": result.Passed,
		},
		CreatedAt: now,
	})

	out := Outcome{Decision: decision, Result: &result, CourseCompleted: updated.CourseCompleted}
	if !completedNow {
		return out, nil
	}

	certs, err := r.issue(ctx, id, course, result.Score, now)
	if err != nil {
		return out, err
	}
	out.Certificates = certs
	return out, nil
}

// ReissueCertificates re-runs issuance for a learner whose course is already
// marked completed, recovering from an issuance failure after the completion
// transition. Existing certificates are returned unchanged. Elevated only.
func (r *Recorder) ReissueCertificates(ctx context.Context, id *access.Identity, userID, courseID string) ([]certificate.Certificate, error) {
	if id == nil {
		return nil, apperr.Unauthorized(domain, "ReissueCertificates")
	}
	if !id.Elevated() {
		return nil, apperr.New(domain, "ReissueCertificates", apperr.ErrForbidden, "elevated role required")
	}

	course, err := r.catalog.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	p, found, err := r.store.Get(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	if !found || !p.CertificateIssued {
		return nil, apperr.Validation(domain, "ReissueCertificates", "course not completed")
	}

	completedAt := r.now()
	if p.CompletedAt != nil {
		completedAt = *p.CompletedAt
	}
	return r.issue(ctx, &access.Identity{UserID: userID}, course, p.BestFinalExamScore(), completedAt)
}

func (r *Recorder) issue(ctx context.Context, id *access.Identity, course catalog.Course, score int, completedAt time.Time) ([]certificate.Certificate, error) {
	if r.issuer == nil {
		return nil, nil
	}
	certs, err := r.issuer.Issue(ctx, certificate.Request{
		UserID:      id.UserID,
		CourseID:    course.ID,
		CourseTitle: course.Title,
		Score:       score,
		CompletedAt: completedAt,
		Recipient:   certificate.Recipient{UserID: id.UserID, Name: id.Name, Email: id.Email},
	})
	if err != nil {
		slog.Error("certificate issuance failed",
			"user_id", id.UserID,
			"course_id", course.ID,
			"error", err,
		)
		return nil, fmt.Errorf("issue certificates: %w", err)
	}

	for _, c := range certs {
		r.logEvent(progress.Event{
			UserID:    id.UserID,
			CourseID:  course.ID,
			EventType: progress.EventCertificateIssued,
			Data: map[string]any{
				"kind":   c.Kind,
				"number": c.Number,
			},
			CreatedAt: completedAt,
		})
	}
	return certs, nil
}

func (r *Recorder) start(ctx context.Context, courseID, chapterID string, a catalog.Assessment) (*Session, error) {
	questions, err := r.catalog.GetQuestions(ctx, a.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, grading.ErrNoQuestions
	}
	r.shuffle(questions)
	return newSession(courseID, chapterID, a, questions, r.now()), nil
}

func (r *Recorder) grade(ctx context.Context, questionIDs []string, answers []grading.Answer, passingScore int) (grading.Result, error) {
	questions, err := r.catalog.GetQuestions(ctx, questionIDs)
	if err != nil {
		return grading.Result{}, fmt.Errorf("get questions: %w", err)
	}
	return grading.Grade(questions, answers, passingScore)
}

// peek reads progress without creating it.
func (r *Recorder) peek(ctx context.Context, userID, courseID string) (*progress.Progress, error) {
	p, found, err := r.store.Get(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	if !found {
		return nil, nil
	}
	return p, nil
}

func (r *Recorder) logEvent(e progress.Event) {
	if err := r.events.LogEvent(e); err != nil {
		slog.Warn("failed to log progress event",
			"type", e.EventType,
			"user_id", e.UserID,
			"course_id", e.CourseID,
			"error", err,
		)
	}
}

func denied(cd Cooldown) Outcome {
	return Outcome{Decision: access.Deny(cd.Message()), Cooldown: &cd}
}
