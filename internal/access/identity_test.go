package access

import (
	"context"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"Admin", RoleAdmin},
		{"admin", RoleAdmin},
		{"SUPERVISOR", RoleSuperVisor},
		{"Student", RoleStudent},
		{"", RoleUser},
		{"root", RoleUser},
	}
	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if IdentityFromContext(ctx) != nil {
		t.Fatal("empty context should be anonymous")
	}

	id := &Identity{UserID: "u1", Role: RoleStudent}
	got := IdentityFromContext(WithIdentity(ctx, id))
	if got == nil || got.UserID != "u1" {
		t.Fatalf("IdentityFromContext() = %+v, want u1", got)
	}
	if got.Elevated() {
		t.Error("student should not be elevated")
	}
	var anon *Identity
	if anon.Elevated() {
		t.Error("nil identity should not be elevated")
	}
}
