package certificate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-academy/internal/platform/apperr"
)

// Service issues and verifies certificates.
type Service struct {
	generator Generator
	store     Store
	notifier  Notifier
	directory Directory
	kinds     []string
	now       func() time.Time
}

// NewService creates a Service minting one certificate per kind. With no
// kinds it mints a single completion certificate.
func NewService(gen Generator, store Store, notifier Notifier, dir Directory, kinds ...string) *Service {
	if len(kinds) == 0 {
		kinds = []string{KindCompletion}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if dir == nil {
		dir = NewStaticDirectory()
	}
	return &Service{
		generator: gen,
		store:     store,
		notifier:  notifier,
		directory: dir,
		kinds:     kinds,
		now:       time.Now,
	}
}

// Issue mints and persists the configured certificates for req. A kind that
// already has a certificate for the (user, course) pair is returned as is, so
// a retried call does not mint twice. Notification is best-effort.
func (s *Service) Issue(ctx context.Context, req Request) ([]Certificate, error) {
	if req.UserID == "" || req.CourseID == "" {
		return nil, apperr.Validation(domain, "Issue", "user id and course id are required")
	}

	recipient, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	completedAt := req.CompletedAt
	if completedAt.IsZero() {
		completedAt = s.now()
	}

	issued := make([]Certificate, 0, len(s.kinds))
	var fresh []Certificate
	for _, kind := range s.kinds {
		existing, found, err := s.store.Find(ctx, req.UserID, req.CourseID, kind)
		if err != nil {
			return nil, fmt.Errorf("find certificate: %w", err)
		}
		if found {
			issued = append(issued, *existing)
			continue
		}

		num, err := s.generator.Generate(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("generate certificate number: %w", err)
		}
		cert := Certificate{
			ID:               uuid.NewString(),
			Number:           num.Number,
			VerificationCode: num.VerificationCode,
			Kind:             kind,
			UserID:           req.UserID,
			CourseID:         req.CourseID,
			UserName:         NormalizeName(recipient.Name),
			UserEmail:        recipient.Email,
			CourseTitle:      req.CourseTitle,
			Score:            req.Score,
			CompletedAt:      completedAt,
			IssuedAt:         s.now(),
		}
		if err := s.store.Create(ctx, &cert); err != nil {
			return nil, fmt.Errorf("store certificate: %w", err)
		}

		slog.Info("certificate issued",
			"user_id", cert.UserID,
			"course_id", cert.CourseID,
			"kind", cert.Kind,
			"number", cert.Number,
		)
		issued = append(issued, cert)
		fresh = append(fresh, cert)
	}

	for _, cert := range fresh {
		if err := s.notifier.Notify(ctx, cert); err != nil {
			slog.Warn("certificate notification failed",
				"user_id", cert.UserID,
				"course_id", cert.CourseID,
				"number", cert.Number,
				"error", err,
			)
		}
	}
	return issued, nil
}

// resolve fills recipient fields missing from req through the directory.
func (s *Service) resolve(ctx context.Context, req Request) (Recipient, error) {
	r := req.Recipient
	r.UserID = req.UserID
	if r.Name != "" && r.Email != "" {
		return r, nil
	}

	found, err := s.directory.Lookup(ctx, req.UserID)
	if err != nil {
		return Recipient{}, fmt.Errorf("lookup recipient: %w", err)
	}
	if r.Name == "" {
		r.Name = found.Name
	}
	if r.Email == "" {
		r.Email = found.Email
	}
	return r, nil
}

// Verify returns the certificate with the given verification code.
func (s *Service) Verify(ctx context.Context, code string) (*Certificate, error) {
	if code == "" {
		return nil, apperr.Validation(domain, "Verify", "verification code is required")
	}
	return s.store.GetByVerificationCode(ctx, code)
}

// ListByUser returns the user's certificates ordered by issue time.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Certificate, error) {
	return s.store.ListByUser(ctx, userID)
}
