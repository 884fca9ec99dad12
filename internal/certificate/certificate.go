// Package certificate mints, stores and verifies course completion
// certificates. Issuance persists every certificate before any notification
// is attempted; notification failures are logged and swallowed.
package certificate

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

const domain = "certificate"

// KindCompletion is the default certificate kind.
const KindCompletion = "completion"

// Certificate is an immutable issued certificate. Recipient and course fields
// are snapshots taken at issuance.
type Certificate struct {
	ID               string    `json:"id"`
	Number           string    `json:"number"`
	VerificationCode string    `json:"verification_code"`
	Kind             string    `json:"kind"`
	UserID           string    `json:"user_id"`
	CourseID         string    `json:"course_id"`
	UserName         string    `json:"user_name"`
	UserEmail        string    `json:"-"`
	CourseTitle      string    `json:"course_title"`
	Score            int       `json:"score"`
	CompletedAt      time.Time `json:"completed_at"`
	IssuedAt         time.Time `json:"issued_at"`
}

// Recipient is the learner a certificate is issued to.
type Recipient struct {
	UserID string `yaml:"user_id"`
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
}

// Request describes one completed course to certify.
type Request struct {
	UserID      string
	CourseID    string
	CourseTitle string
	Score       int
	CompletedAt time.Time
	// Recipient may be partially filled from the caller's identity; missing
	// fields are resolved through the Directory.
	Recipient Recipient
}

// Numbering is a certificate number and its verification code.
type Numbering struct {
	Number           string `json:"number"`
	VerificationCode string `json:"verification_code"`
}

// Generator produces unique certificate numbers and verification codes.
type Generator interface {
	Generate(ctx context.Context, kind string) (Numbering, error)
}

// Notifier delivers an issued certificate to its recipient.
type Notifier interface {
	Notify(ctx context.Context, cert Certificate) error
}

// NormalizeName trims and NFC-normalizes a display name for the snapshot.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.Join(strings.Fields(name), " "))
}
