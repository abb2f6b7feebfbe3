package middleware

import (
	"context"

	"github.com/mealmesh/mealmesh-backend/pkg/auth"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// PrincipalFromContext returns the authenticated actor, zero when the auth
// middleware did not run.
func PrincipalFromContext(ctx context.Context) auth.Principal {
	if ctx == nil {
		return auth.Principal{}
	}
	if p, ok := ctx.Value(ctxPrincipal).(auth.Principal); ok {
		return p
	}
	return auth.Principal{}
}

// WithPrincipal injects the authenticated actor into the context.
func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, p)
}
