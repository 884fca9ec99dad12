package certificate

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sync"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Certificate) error { return nil }

// MockNotifier records notifications for tests. Err, when set, is returned
// from every call after recording it.
type MockNotifier struct {
	Err error

	mu   sync.Mutex
	sent []Certificate
}

func (m *MockNotifier) Notify(_ context.Context, cert Certificate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, cert)
	return m.Err
}

// Sent returns the recorded certificates.
func (m *MockNotifier) Sent() []Certificate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Certificate{}, m.sent...)
}

var emailTemplate = template.Must(template.New("certificate").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Congratulations, {{.UserName}}!</h2>
  <p>You have completed <strong>{{.CourseTitle}}</strong> with a final score of {{.Score}}%.</p>
  <p>Certificate number: <strong>{{.Number}}</strong><br>
     Verification code: <strong>{{.VerificationCode}}</strong></p>
  {{if .VerifyURL}}<p><a href="{{.VerifyURL}}">Verify this certificate</a></p>{{end}}
</body>
</html>`))

// SendGridNotifier emails the certificate details through SendGrid.
type SendGridNotifier struct {
	client    *sendgrid.Client
	from      *mail.Email
	verifyURL string
}

// NewSendGridNotifier creates a SendGrid-backed notifier. verifyURL, when set,
// is the public base URL to which the verification code is appended.
func NewSendGridNotifier(apiKey, fromAddress, fromName, verifyURL string) *SendGridNotifier {
	return &SendGridNotifier{
		client:    sendgrid.NewSendClient(apiKey),
		from:      mail.NewEmail(fromName, fromAddress),
		verifyURL: verifyURL,
	}
}

func (n *SendGridNotifier) Notify(ctx context.Context, cert Certificate) error {
	if cert.UserEmail == "" {
		return fmt.Errorf("recipient email is empty")
	}

	body, err := renderEmail(cert, n.verifyURL)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Your certificate for %s", cert.CourseTitle)
	plain := fmt.Sprintf("You completed %s. Certificate %s, verification code %s.",
		cert.CourseTitle, cert.Number, cert.VerificationCode)

	msg := mail.NewSingleEmail(n.from, subject, mail.NewEmail(cert.UserName, cert.UserEmail), plain, body)
	resp, err := n.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("send certificate email: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("send certificate email: status %d", resp.StatusCode)
	}
	return nil
}

func renderEmail(cert Certificate, verifyURL string) (string, error) {
	data := struct {
		Certificate
		VerifyURL string
	}{Certificate: cert}
	if verifyURL != "" {
		data.VerifyURL = verifyURL + cert.VerificationCode
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render certificate email: %w", err)
	}
	return buf.String(), nil
}
