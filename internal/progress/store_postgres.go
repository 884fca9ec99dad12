package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

const selectColumns = `user_id, course_id, current_chapter_number, current_lesson_number,
	completed_lessons, chapter_test_attempts, chapter_test_cooldowns, final_exam_attempts, final_exam_cooldown,
	course_completed, completed_at, certificate_issued, certificate_issued_at, created_at, updated_at`

// PostgresStore is a PostgreSQL-backed Store. Each record is one row keyed by
// (user_id, course_id); Update locks that row with SELECT ... FOR UPDATE.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed progress store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Get(ctx context.Context, userID, courseID string) (*Progress, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	p, err := scanProgress(s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM progress WHERE user_id = $1 AND course_id = $2`,
		userID, courseID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get progress: %w", err)
	}
	return p, true, nil
}

func (s *PostgresStore) GetOrCreate(ctx context.Context, userID, courseID string) (*Progress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := ensureRow(ctx, s.pool, userID, courseID); err != nil {
		return nil, err
	}
	p, err := scanProgress(s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM progress WHERE user_id = $1 AND course_id = $2`,
		userID, courseID,
	))
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Save(ctx context.Context, p *Progress) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := ensureRow(ctx, s.pool, p.UserID, p.CourseID); err != nil {
		return err
	}
	return writeProgress(ctx, s.pool, p)
}

func (s *PostgresStore) Update(ctx context.Context, userID, courseID string, fn func(*Progress) error) (*Progress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin progress update: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := ensureRow(ctx, tx, userID, courseID); err != nil {
		return nil, err
	}

	p, err := scanProgress(tx.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM progress WHERE user_id = $1 AND course_id = $2 FOR UPDATE`,
		userID, courseID,
	))
	if err != nil {
		return nil, fmt.Errorf("lock progress: %w", err)
	}

	if err := fn(p); err != nil {
		return nil, err
	}

	if err := writeProgress(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit progress update: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListByCourse(ctx context.Context, courseID string) ([]*Progress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM progress WHERE course_id = $1 ORDER BY created_at ASC`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var out []*Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func ensureRow(ctx context.Context, db execer, userID, courseID string) error {
	if userID == "" || courseID == "" {
		return fmt.Errorf("user_id and course_id are required")
	}
	if _, err := db.Exec(ctx,
		`INSERT INTO progress (user_id, course_id)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id, course_id) DO NOTHING`,
		userID, courseID,
	); err != nil {
		return fmt.Errorf("create progress: %w", err)
	}
	return nil
}

func writeProgress(ctx context.Context, db execer, p *Progress) error {
	completed, err := json.Marshal(p.CompletedLessons)
	if err != nil {
		return fmt.Errorf("marshal completed lessons: %w", err)
	}
	chapterAttempts, err := json.Marshal(nonNil(p.ChapterTestAttempts))
	if err != nil {
		return fmt.Errorf("marshal chapter test attempts: %w", err)
	}
	cooldowns, err := json.Marshal(p.ChapterTestCooldowns)
	if err != nil {
		return fmt.Errorf("marshal chapter test cooldowns: %w", err)
	}
	examAttempts, err := json.Marshal(nonNil(p.FinalExamAttempts))
	if err != nil {
		return fmt.Errorf("marshal final exam attempts: %w", err)
	}
	var examCooldown []byte
	if p.FinalExamCooldown != nil {
		if examCooldown, err = json.Marshal(p.FinalExamCooldown); err != nil {
			return fmt.Errorf("marshal final exam cooldown: %w", err)
		}
	}

	p.UpdatedAt = time.Now()
	cmd, err := db.Exec(ctx,
		`UPDATE progress SET
		   current_chapter_number = $3,
		   current_lesson_number = $4,
		   completed_lessons = $5::jsonb,
		   chapter_test_attempts = $6::jsonb,
		   chapter_test_cooldowns = $7::jsonb,
		   final_exam_attempts = $8::jsonb,
		   final_exam_cooldown = $9::jsonb,
		   course_completed = $10,
		   completed_at = $11,
		   certificate_issued = $12,
		   certificate_issued_at = $13,
		   updated_at = $14
		 WHERE user_id = $1 AND course_id = $2`,
		p.UserID, p.CourseID,
		p.CurrentChapterNumber, p.CurrentLessonNumber,
		string(completed), string(chapterAttempts), string(cooldowns), string(examAttempts),
		nullIfEmpty(examCooldown),
		p.CourseCompleted, p.CompletedAt,
		p.CertificateIssued, p.CertificateIssuedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("progress not found: %s/%s", p.UserID, p.CourseID)
	}
	return nil
}

func scanProgress(row pgx.Row) (*Progress, error) {
	p := &Progress{}
	var completed, chapterAttempts, cooldowns, examAttempts, examCooldown []byte

	if err := row.Scan(
		&p.UserID,
		&p.CourseID,
		&p.CurrentChapterNumber,
		&p.CurrentLessonNumber,
		&completed,
		&chapterAttempts,
		&cooldowns,
		&examAttempts,
		&examCooldown,
		&p.CourseCompleted,
		&p.CompletedAt,
		&p.CertificateIssued,
		&p.CertificateIssuedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := unmarshalColumn(completed, &p.CompletedLessons); err != nil {
		return nil, fmt.Errorf("decode completed_lessons: %w", err)
	}
	if err := unmarshalColumn(chapterAttempts, &p.ChapterTestAttempts); err != nil {
		return nil, fmt.Errorf("decode chapter_test_attempts: %w", err)
	}
	if err := unmarshalColumn(cooldowns, &p.ChapterTestCooldowns); err != nil {
		return nil, fmt.Errorf("decode chapter_test_cooldowns: %w", err)
	}
	if err := unmarshalColumn(examAttempts, &p.FinalExamAttempts); err != nil {
		return nil, fmt.Errorf("decode final_exam_attempts: %w", err)
	}
	if len(examCooldown) > 0 {
		p.FinalExamCooldown = &Cooldown{}
		if err := json.Unmarshal(examCooldown, p.FinalExamCooldown); err != nil {
			return nil, fmt.Errorf("decode final_exam_cooldown: %w", err)
		}
	}

	if p.CompletedLessons == nil {
		p.CompletedLessons = make(map[string]LessonCompletion)
	}
	if p.ChapterTestCooldowns == nil {
		p.ChapterTestCooldowns = make(map[string]Cooldown)
	}
	p.ChapterTestAttempts = nonNil(p.ChapterTestAttempts)
	p.FinalExamAttempts = nonNil(p.FinalExamAttempts)
	return p, nil
}

func unmarshalColumn(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func nullIfEmpty(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
