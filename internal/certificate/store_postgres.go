package certificate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-academy/internal/platform/apperr"
)

const dbTimeout = 5 * time.Second

const insertColumns = `id, number, verification_code, kind, user_id, course_id,
	recipient_name, recipient_email, course_title, score, completed_at, issued_at`

const certificateColumns = `id::text, number, verification_code, kind, user_id, course_id,
	recipient_name, recipient_email, course_title, score, completed_at, issued_at`

// PostgresStore persists certificates in the certificates table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed certificate store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context, cert *Certificate) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO certificates (`+insertColumns+`)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		cert.ID, cert.Number, cert.VerificationCode, cert.Kind, cert.UserID, cert.CourseID,
		cert.UserName, cert.UserEmail, cert.CourseTitle, cert.Score,
		cert.CompletedAt, cert.IssuedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &apperr.Error{
			Domain:  domain,
			Op:      "Create",
			Kind:    apperr.ErrConflict,
			Message: "certificate already issued",
			Err:     err,
		}
	}
	if err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, userID, courseID, kind string) (*Certificate, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	c, err := scanCertificate(s.pool.QueryRow(ctx,
		`SELECT `+certificateColumns+` FROM certificates
		 WHERE user_id = $1 AND course_id = $2 AND kind = $3`,
		userID, courseID, kind,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find certificate: %w", err)
	}
	return c, true, nil
}

func (s *PostgresStore) GetByVerificationCode(ctx context.Context, code string) (*Certificate, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	c, err := scanCertificate(s.pool.QueryRow(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE verification_code = $1`,
		code,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound(domain, "GetByVerificationCode", "certificate")
	}
	if err != nil {
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Certificate, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE user_id = $1 ORDER BY issued_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query certificates: %w", err)
	}
	defer rows.Close()

	var out []Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}
	return out, nil
}

func scanCertificate(row pgx.Row) (*Certificate, error) {
	c := &Certificate{}
	if err := row.Scan(
		&c.ID,
		&c.Number,
		&c.VerificationCode,
		&c.Kind,
		&c.UserID,
		&c.CourseID,
		&c.UserName,
		&c.UserEmail,
		&c.CourseTitle,
		&c.Score,
		&c.CompletedAt,
		&c.IssuedAt,
	); err != nil {
		return nil, err
	}
	return c, nil
}
