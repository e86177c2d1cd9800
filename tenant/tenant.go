// Package tenant defines the Tenant entity: one isolated operational unit
// whose data must never be visible across tenant boundaries.
package tenant

import (
	"time"

	"github.com/xraph/steward/id"
)

// Tenant represents one operational unit (e.g. a single restaurant).
type Tenant struct {
	ID id.TenantID `json:"id" db:"id"`

	Name string `json:"name" db:"name"`

	// OwnerPrincipalID is the principal that bootstrapped the tenant.
	// Nil until bootstrap completes; immutable afterwards.
	OwnerPrincipalID id.PrincipalID `json:"owner_principal_id,omitempty" db:"owner_principal_id"`

	Metadata  map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// Bootstrapped reports whether the tenant already has a confirmed owner.
func (t *Tenant) Bootstrapped() bool {
	return !t.OwnerPrincipalID.IsNil()
}

// ListFilter contains filters for listing tenants.
type ListFilter struct {
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}
