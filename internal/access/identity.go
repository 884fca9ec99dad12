package access

import (
	"context"
	"strings"
)

// Role is the caller's platform role.
type Role string

const (
	RoleStudent    Role = "Student"
	RoleAdmin      Role = "Admin"
	RoleSuperVisor Role = "SuperVisor"
	RoleUser       Role = "User"
)

// ParseRole maps a role claim to a Role, case-insensitively. Unknown values
// map to RoleUser.
func ParseRole(s string) Role {
	for _, r := range []Role{RoleStudent, RoleAdmin, RoleSuperVisor, RoleUser} {
		if strings.EqualFold(s, string(r)) {
			return r
		}
	}
	return RoleUser
}

// Elevated reports whether the role bypasses gating.
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleSuperVisor
}

// Identity is the resolved caller. A nil *Identity is an anonymous caller.
type Identity struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

// Elevated reports whether the identity bypasses gating.
func (id *Identity) Elevated() bool {
	return id != nil && id.Role.Elevated()
}

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller identity, or nil when anonymous.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}
