package auth

import (
	"context"

	"github.com/lifecompass/backend/pkg/types"
)

// Identity is the authenticated caller of a request
type Identity struct {
	UserID string     `json:"user_id"`
	Email  string     `json:"email"`
	Role   types.Role `json:"role"`
}

type identityKey struct{}

// WithIdentity returns a context carrying id
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// IsAdmin reports whether the identity has the admin role
func (i Identity) IsAdmin() bool {
	return i.Role == types.RoleAdmin
}
