package api

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/p-n-ai/pai-academy/internal/access"
)

func TestAuthenticator_RoundTrip(t *testing.T) {
	a := NewAuthenticator("secret")
	tok, err := a.SignToken(access.Identity{UserID: "u1", Role: access.RoleSuperVisor, Email: "u1@example.com"}, time.Minute)
	if err != nil {
		t.Fatalf("SignToken() error = %v", err)
	}

	id, err := a.Parse(tok)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if id.UserID != "u1" || id.Role != access.RoleSuperVisor || id.Email != "u1@example.com" {
		t.Errorf("identity = %+v", id)
	}
}

func TestAuthenticator_Rejects(t *testing.T) {
	a := NewAuthenticator("secret")

	expired, _ := a.SignToken(access.Identity{UserID: "u1"}, -time.Minute)
	otherKey, _ := NewAuthenticator("other").SignToken(access.Identity{UserID: "u1"}, time.Minute)
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: "Admin"}).SignedString([]byte("secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"wrong key", otherKey},
		{"no subject", noSubject},
		{"garbage", "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.Parse(tt.token); err == nil {
				t.Error("Parse() should fail")
			}
		})
	}
}
