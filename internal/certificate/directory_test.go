package certificate_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-academy/internal/certificate"
)

func writeDirectory(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadStaticDirectory(t *testing.T) {
	path := writeDirectory(t, `
- user_id: u1
  name: "  Ana   Lima "
  email: ana@example.com
- user_id: u2
  name: Ben
`)

	dir, err := certificate.LoadStaticDirectory(path)
	require.NoError(t, err)

	ctx := context.Background()
	r, err := dir.Lookup(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", r.Name)
	assert.Equal(t, "ana@example.com", r.Email)

	r, err = dir.Lookup(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, "unknown", r.Name)
	assert.Empty(t, r.Email)
}

func TestLoadStaticDirectory_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }},
		{"not a list", func(t *testing.T) string { return writeDirectory(t, "user_id: u1\n") }},
		{"no user id", func(t *testing.T) string { return writeDirectory(t, "- name: Ana\n") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := certificate.LoadStaticDirectory(tt.path(t))
			assert.Error(t, err)
		})
	}
}

func TestLoadStaticDirectory_EmptyPath(t *testing.T) {
	dir, err := certificate.LoadStaticDirectory("")
	require.NoError(t, err)

	r, err := dir.Lookup(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", r.Name)
}

func TestIssue_ResolvesRecipientFromLoadedDirectory(t *testing.T) {
	dir, err := certificate.LoadStaticDirectory(writeDirectory(t, "- {user_id: u1, name: Ana Lima, email: ana@example.com}\n"))
	require.NoError(t, err)
	svc := certificate.NewService(certificate.NewLocalGenerator("PAI", "secret"), certificate.NewMemoryStore(), nil, dir)

	req := request()
	req.Recipient = certificate.Recipient{}
	certs, err := svc.Issue(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.Equal(t, "Ana Lima", certs[0].UserName)
	assert.Equal(t, "ana@example.com", certs[0].UserEmail)
}
