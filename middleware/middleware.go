// Package middleware provides HTTP authorization middleware for Steward.
package middleware

import (
	"encoding/json"

	"github.com/xraph/forge"

	"github.com/xraph/steward"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/membership"
)

// RequireMember admits only resolved, non-pending members of the tenant
// named by the ":tenantId" path parameter. The caller is taken from the
// request context (Authsome user ID).
func RequireMember(eng *steward.Engine) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			caller, tenantID, ok := resolveCaller(ctx, eng)
			if !ok {
				return denyResponse(ctx)
			}
			if caller.TenantID.String() != tenantID.String() || caller.Role == membership.RolePending {
				return denyResponse(ctx)
			}
			return next(ctx)
		}
	}
}

// RequireRole admits only members of the tenant holding one of the given
// roles.
func RequireRole(eng *steward.Engine, roles ...steward.Role) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			caller, tenantID, ok := resolveCaller(ctx, eng)
			if !ok {
				return denyResponse(ctx)
			}
			if caller.TenantID.String() != tenantID.String() {
				return denyResponse(ctx)
			}
			for _, r := range roles {
				if caller.Role == r {
					return next(ctx)
				}
			}
			return denyResponse(ctx)
		}
	}
}

// RequireAction enforces the full role policy for the given action on the
// tenant from the ":tenantId" path parameter.
func RequireAction(eng *steward.Engine, action steward.Action) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			caller, tenantID, ok := resolveCaller(ctx, eng)
			if !ok {
				return denyResponse(ctx)
			}
			err := eng.Enforce(ctx.Context(), &steward.AuthzRequest{
				Membership:     caller,
				Action:         action,
				TargetTenantID: tenantID,
			})
			if err != nil {
				return denyResponse(ctx)
			}
			return next(ctx)
		}
	}
}

// resolveCaller extracts the authenticated principal from the request
// context and loads its membership. Unknown principals and principals
// without memberships are rejected: there is no anonymous fallback.
func resolveCaller(ctx forge.Context, eng *steward.Engine) (*membership.Membership, id.TenantID, bool) {
	tenantID, err := id.ParseTenantID(ctx.Param("tenantId"))
	if err != nil {
		return nil, id.Nil, false
	}
	userID := forge.UserIDFromContext(ctx.Context())
	if userID == "" {
		return nil, id.Nil, false
	}
	principalID, err := id.ParsePrincipalID(userID)
	if err != nil {
		return nil, id.Nil, false
	}
	caller, err := eng.Store().GetMembershipByPrincipal(ctx.Context(), principalID)
	if err != nil {
		return nil, id.Nil, false
	}
	return caller, tenantID, true
}

func denyResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(403)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "access denied"})
}
