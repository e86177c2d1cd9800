package steward

import (
	"context"

	"github.com/xraph/forge"

	"github.com/xraph/steward/id"
)

// scopeTenant extracts the tenant scope from forge.Scope or the standalone
// context. Falls back to the explicit context tenant when Forge scope is
// not set (standalone mode). An unparseable Forge org ID yields id.Nil,
// which downstream checks treat as cross-tenant.
func scopeTenant(ctx context.Context) id.TenantID {
	s, ok := forge.ScopeFrom(ctx)
	if ok && s.OrgID() != "" {
		tid, err := id.ParseTenantID(s.OrgID())
		if err != nil {
			return id.Nil
		}
		return tid
	}
	return tenantIDFromContext(ctx)
}
