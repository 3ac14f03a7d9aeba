// Package ctxutil provides shared context key accessors.
//
// It holds the context key for the caller's validated claims: server's auth
// middleware stores them with WithClaims, and server reads them back with
// ClaimsFromContext. The mcp package does not import it.
package ctxutil

import (
	"context"

	"github.com/ashita-ai/senate/internal/auth"
)

type contextKey string

const keyClaims contextKey = "claims"

// WithClaims returns a new context carrying the given claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, keyClaims, claims)
}

// ClaimsFromContext extracts the JWT claims from the context.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	if v, ok := ctx.Value(keyClaims).(*auth.Claims); ok {
		return v
	}
	return nil
}
