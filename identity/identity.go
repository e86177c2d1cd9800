// Package identity defines the port to the external identity provider:
// the system that owns principals, credentials, signed claims bundles,
// and session lifetimes. Steward never persists principals itself; it
// provisions and deletes them through this interface.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/steward/id"
	"github.com/xraph/steward/membership"
)

// ErrPrincipalNotFound is returned when a principal does not exist in the
// identity provider.
var ErrPrincipalNotFound = errors.New("identity: principal not found")

// Principal is an authenticated identity, independent of role and tenant.
type Principal struct {
	ID         id.PrincipalID `json:"id"`
	Email      string         `json:"email"`
	Name       string         `json:"name,omitempty"`
	VerifiedAt time.Time      `json:"verified_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Claims is the signed claims bundle asserting a principal's current role
// and tenant. After a mutation, the bundle is subject to propagation
// delay: reads may return the zero Claims until the provider has caught
// up. The zero value means "no claims visible yet", not an error.
type Claims struct {
	Role     membership.Role `json:"role,omitempty"`
	TenantID id.TenantID     `json:"tenant_id,omitempty"`
}

// Resolved reports whether both role and tenant are present.
func (c Claims) Resolved() bool {
	return c.Role != "" && !c.TenantID.IsNil()
}

// Matches reports whether the claims agree with a membership on role and
// tenant, the comparison the propagation reconciler performs.
func (c Claims) Matches(m *membership.Membership) bool {
	if m == nil {
		return false
	}
	return c.Role == m.Role && c.TenantID.String() == m.TenantID.String()
}

// Provider is the identity provider port. Every method is a suspension
// point: callers must tolerate arbitrary latency and transient
// unavailability on each call.
type Provider interface {
	// CreatePrincipal provisions a new principal. The credential is
	// placeholder-only; the invite flow delivers a reset link.
	CreatePrincipal(ctx context.Context, email, name string) (*Principal, error)

	// GetPrincipal retrieves a principal. Returns an error wrapping
	// ErrPrincipalNotFound when it does not exist.
	GetPrincipal(ctx context.Context, principalID id.PrincipalID) (*Principal, error)

	// DeletePrincipal removes a principal. Used both for member deletion
	// and for compensating a failed two-phase create.
	DeletePrincipal(ctx context.Context, principalID id.PrincipalID) error

	// SetClaims writes the claims bundle for a principal. Visibility of
	// the new bundle to Claims readers may lag.
	SetClaims(ctx context.Context, principalID id.PrincipalID, c Claims) error

	// Claims reads the currently visible claims bundle. forceRefresh
	// bypasses any provider-side credential cache. A principal with no
	// visible bundle yields the zero Claims and a nil error; only
	// transport failures and unknown principals return errors.
	Claims(ctx context.Context, principalID id.PrincipalID, forceRefresh bool) (Claims, error)

	// RevokeSessions invalidates every active session for the principal.
	RevokeSessions(ctx context.Context, principalID id.PrincipalID) error

	// PasswordResetLink generates a single-use credential reset link for
	// the given email address.
	PasswordResetLink(ctx context.Context, email string) (string, error)
}
