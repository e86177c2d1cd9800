package tenant

import (
	"context"
	"errors"

	"github.com/xraph/steward/id"
)

// ErrNotFound is returned when a tenant cannot be found.
var ErrNotFound = errors.New("tenant: not found")

// ErrOwnerSet is returned when attempting to change an already-set owner.
var ErrOwnerSet = errors.New("tenant: owner already set")

// Store defines persistence operations for tenants.
type Store interface {
	// CreateTenant persists a new tenant.
	CreateTenant(ctx context.Context, t *Tenant) error

	// GetTenant retrieves a tenant by ID. Returns an error wrapping
	// ErrNotFound when it does not exist.
	GetTenant(ctx context.Context, tenantID id.TenantID) (*Tenant, error)

	// SetTenantOwner records the bootstrapping principal. The owner is
	// set-once: a second call with a different principal fails with an
	// error wrapping ErrOwnerSet.
	SetTenantOwner(ctx context.Context, tenantID id.TenantID, ownerID id.PrincipalID) error

	// UpdateTenant persists changes to mutable tenant fields.
	UpdateTenant(ctx context.Context, t *Tenant) error

	// DeleteTenant removes a tenant by ID.
	DeleteTenant(ctx context.Context, tenantID id.TenantID) error

	// ListTenants returns tenants matching the filter.
	ListTenants(ctx context.Context, filter *ListFilter) ([]*Tenant, error)

	// CountTenants returns the number of tenants matching the filter.
	CountTenants(ctx context.Context, filter *ListFilter) (int64, error)
}
