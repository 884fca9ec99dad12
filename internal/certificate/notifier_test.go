package certificate

import (
	"context"
	"strings"
	"testing"
)

func TestRenderEmail(t *testing.T) {
	body, err := renderEmail(Certificate{
		UserName:         "Ana <script>",
		CourseTitle:      "Foundations of Go",
		Score:            90,
		Number:           "PAI-2026-01",
		VerificationCode: "ABC123",
	}, "https://academy.example.com/verify/")
	if err != nil {
		t.Fatalf("renderEmail() error = %v", err)
	}
	for _, want := range []string{"Foundations of Go", "PAI-2026-01", "https://academy.example.com/verify/ABC123", "&lt;script&gt;"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestSendGridNotifier_RequiresEmail(t *testing.T) {
	n := NewSendGridNotifier("key", "noreply@example.com", "Academy", "")
	if err := n.Notify(context.Background(), Certificate{}); err == nil {
		t.Fatal("expected error for empty recipient email")
	}
}
