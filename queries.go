package steward

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xraph/steward/decisionlog"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/membership"
	"github.com/xraph/steward/tenant"
)

// Tenant management and the read-side of the member directory. Reads are
// still tenant-scoped: a caller only ever sees its own tenant.

// CreateTenantRequest asks for a new, ownerless tenant.
type CreateTenantRequest struct {
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CreateTenant provisions a new tenant. The tenant starts without an
// owner; the first principal to bootstrap it becomes one.
func (e *Engine) CreateTenant(ctx context.Context, req *CreateTenantRequest) (*tenant.Tenant, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Detail: "required"}
	}

	now := e.now()
	t := &tenant.Tenant{
		ID:        id.NewTenantID(),
		Name:      name,
		Metadata:  req.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.CreateTenant(ctx, t); err != nil {
		return nil, fmt.Errorf("%w: create tenant: %v", ErrUpstreamUnavailable, err)
	}

	e.logger.Info("steward: tenant created",
		slog.String("tenant", t.ID.String()),
		slog.String("name", name))
	if e.plugins != nil {
		e.plugins.EmitTenantCreated(ctx, t)
	}
	return t, nil
}

// GetTenant retrieves a tenant by ID.
func (e *Engine) GetTenant(ctx context.Context, tenantID id.TenantID) (*tenant.Tenant, error) {
	return e.store.GetTenant(ctx, tenantID)
}

// ListTenants returns tenants matching the filter.
func (e *Engine) ListTenants(ctx context.Context, filter *tenant.ListFilter) ([]*tenant.Tenant, error) {
	if filter == nil {
		filter = &tenant.ListFilter{}
	}
	return e.store.ListTenants(ctx, filter)
}

// ListMembers returns the members of the caller's tenant. Any resolved
// non-pending member may read the directory; callers outside the tenant
// are denied before any row is touched.
func (e *Engine) ListMembers(ctx context.Context, callerID id.PrincipalID, tenantID id.TenantID, filter *membership.ListFilter) ([]*membership.Membership, error) {
	if err := e.requireTenantMember(ctx, callerID, tenantID); err != nil {
		return nil, err
	}
	if filter == nil {
		filter = &membership.ListFilter{}
	}
	filter.TenantID = tenantID
	return e.store.ListMemberships(ctx, filter)
}

// GetMember returns one member of the caller's tenant.
func (e *Engine) GetMember(ctx context.Context, callerID id.PrincipalID, tenantID id.TenantID, principalID id.PrincipalID) (*membership.Membership, error) {
	if err := e.requireTenantMember(ctx, callerID, tenantID); err != nil {
		return nil, err
	}
	return e.loadTenantMember(ctx, tenantID, principalID)
}

// DecisionLogs returns decision audit entries for the caller's tenant.
// The audit trail is owner-only.
func (e *Engine) DecisionLogs(ctx context.Context, callerID id.PrincipalID, tenantID id.TenantID, filter *decisionlog.QueryFilter) ([]*decisionlog.Entry, error) {
	caller, err := e.resolveCaller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if caller == nil {
		return nil, &PermissionDeniedError{Decision: deny(CodeDenyNoMembership, "caller has no membership")}
	}
	if caller.TenantID.String() != tenantID.String() {
		return nil, &PermissionDeniedError{Decision: deny(CodeDenyCrossTenant, "target tenant differs from caller's tenant")}
	}
	if caller.Role != RoleOwner {
		return nil, &PermissionDeniedError{Decision: deny(CodeDenyNotOwner, "only the owner can read the audit trail")}
	}

	if filter == nil {
		filter = &decisionlog.QueryFilter{}
	}
	filter.TenantID = tenantID
	return e.store.ListDecisionLogs(ctx, filter)
}

// requireTenantMember denies callers that are unresolved, pending, or
// bound to a different tenant.
func (e *Engine) requireTenantMember(ctx context.Context, callerID id.PrincipalID, tenantID id.TenantID) error {
	caller, err := e.resolveCaller(ctx, callerID)
	if err != nil {
		return err
	}
	switch {
	case caller == nil:
		return &PermissionDeniedError{Decision: deny(CodeDenyNoMembership, "caller has no membership")}
	case caller.TenantID.String() != tenantID.String():
		return &PermissionDeniedError{Decision: deny(CodeDenyCrossTenant, "target tenant differs from caller's tenant")}
	case caller.Role == RolePending:
		return &PermissionDeniedError{Decision: deny(CodeDenyDefault, "pending members hold no read access")}
	}
	return nil
}
