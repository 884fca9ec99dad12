package certificate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalGenerator_Format(t *testing.T) {
	g := NewLocalGenerator("pai", "secret")
	g.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }

	n, err := g.Generate(context.Background(), KindCompletion)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^PAI-2026-[0-9A-F]{10}$`), n.Number)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{12}$`), n.VerificationCode)

	d, err := g.Generate(context.Background(), "distinction")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^PAI-D2026-[0-9A-F]{10}$`), d.Number)
}

func TestLocalGenerator_CodeKeyed(t *testing.T) {
	a := NewLocalGenerator("PAI", "secret-a")
	b := NewLocalGenerator("PAI", "secret-b")

	ca, err := a.code("PAI-2026-0000000000")
	require.NoError(t, err)
	ca2, err := a.code("PAI-2026-0000000000")
	require.NoError(t, err)
	cb, err := b.code("PAI-2026-0000000000")
	require.NoError(t, err)

	assert.Equal(t, ca, ca2, "code must be deterministic for a key")
	assert.NotEqual(t, ca, cb, "code must depend on the key")
}

func TestLocalGenerator_Unique(t *testing.T) {
	g := NewLocalGenerator("PAI", "secret")
	seen := make(map[string]bool)
	for range 200 {
		n, err := g.Generate(context.Background(), KindCompletion)
		require.NoError(t, err)
		require.False(t, seen[n.Number], "duplicate number %s", n.Number)
		seen[n.Number] = true
	}
}

func TestHTTPGenerator_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/numbers" {
			http.NotFound(w, r)
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Numbering{
			Number:           "EXT-" + body["kind"],
			VerificationCode: "CODE-1",
		})
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL+"/", 2*time.Second)
	n, err := g.Generate(context.Background(), KindCompletion)
	require.NoError(t, err)
	assert.Equal(t, "EXT-completion", n.Number)
	assert.Equal(t, "CODE-1", n.VerificationCode)
}

func TestHTTPGenerator_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL, 2*time.Second)
	_, err := g.Generate(context.Background(), KindCompletion)
	assert.Error(t, err)
}

func TestKindTag(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{"", ""},
		{KindCompletion, ""},
		{"achievement", "A"},
		{"émérite", "É"},
		{"証明", "証"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			got := kindTag(tt.kind)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
