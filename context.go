package steward

import (
	"context"

	"github.com/xraph/steward/id"
)

type contextKey int

const (
	ctxKeyTenantID contextKey = iota
	ctxKeyPrincipalID
)

// WithTenant returns a context carrying the given tenant ID.
// Use this for standalone mode (without Forge).
func WithTenant(ctx context.Context, tenantID id.TenantID) context.Context {
	return context.WithValue(ctx, ctxKeyTenantID, tenantID)
}

// WithPrincipal returns a context carrying the caller's principal ID.
func WithPrincipal(ctx context.Context, principalID id.PrincipalID) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipalID, principalID)
}

// PrincipalFromContext extracts the caller's principal ID, if present.
func PrincipalFromContext(ctx context.Context) (id.PrincipalID, bool) {
	v, ok := ctx.Value(ctxKeyPrincipalID).(id.PrincipalID)
	return v, ok
}

func tenantIDFromContext(ctx context.Context) id.TenantID {
	v, ok := ctx.Value(ctxKeyTenantID).(id.TenantID)
	if !ok {
		return id.Nil
	}
	return v
}
