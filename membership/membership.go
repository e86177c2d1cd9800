// Package membership defines the Membership entity: the binding of a
// principal to exactly one role within exactly one tenant.
package membership

import (
	"time"

	"github.com/xraph/steward/id"
)

// Role is the fixed role enumeration for tenant members.
type Role string

const (
	// RoleOwner is the single controlling member of a tenant. Exactly one
	// owner membership exists per tenant once bootstrapping completes.
	RoleOwner Role = "owner"

	// RoleAssistant is a delegated operational role without member
	// administration rights.
	RoleAssistant Role = "assistant"

	// RoleStaff is a regular member.
	RoleStaff Role = "staff"

	// RolePending is the transient role held between signup and owner
	// confirmation. It grants nothing.
	RolePending Role = "pending"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAssistant, RoleStaff, RolePending:
		return true
	}
	return false
}

// Assignable reports whether r may be granted through the member mutation
// paths. The owner role is excluded: it is only ever established through
// the one-time bootstrap.
func (r Role) Assignable() bool {
	return r.Valid() && r != RoleOwner
}

// ParseRole parses a role string.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// Membership binds a principal to one role within one tenant.
// A principal holds at most one membership at a time; writing a new one
// replaces the previous binding (no merge).
type Membership struct {
	ID          id.MembershipID `json:"id" db:"id"`
	TenantID    id.TenantID     `json:"tenant_id" db:"tenant_id"`
	PrincipalID id.PrincipalID  `json:"principal_id" db:"principal_id"`
	Role        Role            `json:"role" db:"role"`
	Name        string          `json:"name,omitempty" db:"name"`
	Email       string          `json:"email,omitempty" db:"email"`
	GrantedBy   id.PrincipalID  `json:"granted_by,omitempty" db:"granted_by"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Equivalent reports whether two memberships agree on the fields the
// propagation reconciler compares: role and tenant.
func (m *Membership) Equivalent(other *Membership) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.Role == other.Role && m.TenantID.String() == other.TenantID.String()
}

// ListFilter contains filters for listing memberships.
type ListFilter struct {
	TenantID    id.TenantID    `json:"tenant_id,omitempty"`
	PrincipalID id.PrincipalID `json:"principal_id,omitempty"`
	Role        Role           `json:"role,omitempty"`
	Search      string         `json:"search,omitempty"`
	Limit       int            `json:"limit,omitempty"`
	Offset      int            `json:"offset,omitempty"`
}
