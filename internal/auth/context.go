// ABOUTME: Authentication context for tracking identity through request handlers
// ABOUTME: Provides WithAuth/FromContext for propagating auth info via context

package auth

import (
	"context"

	"github.com/2389/todo-gateway/internal/records"
)

// Authentication methods recorded on AuthContext.
const (
	MethodJWT    = "jwt"
	MethodSSH    = "ssh"
	MethodHeader = "header"
)

// AuthContext holds the authenticated identity extracted from a request.
// This is populated by the auth interceptor and middleware and can be
// retrieved from context in handlers. Whether the identity is the record
// store owner is decided by the store, not here.
type AuthContext struct {
	Identity records.Identity
	Method   string // MethodJWT | MethodSSH | MethodHeader
}

// authContextKey is the key type for storing AuthContext in context.Context.
type authContextKey struct{}

// WithAuth returns a new context with the AuthContext attached.
func WithAuth(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// FromContext retrieves the AuthContext from the context, returning nil if not present.
func FromContext(ctx context.Context) *AuthContext {
	val := ctx.Value(authContextKey{})
	if val == nil {
		return nil
	}
	auth, ok := val.(*AuthContext)
	if !ok {
		return nil
	}
	return auth
}

// MustFromContext retrieves the AuthContext from the context, panicking if not present.
func MustFromContext(ctx context.Context) *AuthContext {
	auth := FromContext(ctx)
	if auth == nil {
		panic("auth: AuthContext not found in context")
	}
	return auth
}

// IdentityFromContext returns the authenticated identity, or the zero identity.
func IdentityFromContext(ctx context.Context) records.Identity {
	if a := FromContext(ctx); a != nil {
		return a.Identity
	}
	return ""
}
