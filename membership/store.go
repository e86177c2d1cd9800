package membership

import (
	"context"
	"errors"

	"github.com/xraph/steward/id"
)

// ErrNotFound is returned when no membership exists for a principal.
var ErrNotFound = errors.New("membership: not found")

// Store defines persistence operations for memberships.
type Store interface {
	// PutMembership writes a membership, replacing any existing membership
	// held by the same principal. The one-membership-per-principal
	// invariant is enforced here, not by callers.
	PutMembership(ctx context.Context, m *Membership) error

	// GetMembershipByPrincipal retrieves the principal's active membership.
	// Returns an error wrapping ErrNotFound when the principal has none.
	GetMembershipByPrincipal(ctx context.Context, principalID id.PrincipalID) (*Membership, error)

	// DeleteMembershipByPrincipal removes the principal's membership.
	DeleteMembershipByPrincipal(ctx context.Context, principalID id.PrincipalID) error

	// ListMemberships returns memberships matching the filter.
	ListMemberships(ctx context.Context, filter *ListFilter) ([]*Membership, error)

	// CountMemberships returns the number of memberships matching the filter.
	CountMemberships(ctx context.Context, filter *ListFilter) (int64, error)

	// OwnerExists reports whether the tenant has an owner membership.
	OwnerExists(ctx context.Context, tenantID id.TenantID) (bool, error)

	// DeleteMembershipsByTenant removes all memberships for a tenant.
	DeleteMembershipsByTenant(ctx context.Context, tenantID id.TenantID) error
}
