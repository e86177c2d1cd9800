// Package steward provides tenant-scoped membership and role authorization
// for Go.
//
// Steward binds externally-authenticated principals to exactly one role
// within exactly one tenant, evaluates every sensitive action against a
// fixed role policy, and owns the privileged mutations that change those
// bindings: owner bootstrap, member provisioning, role assignment, and
// member deletion. It tolerates the asynchronous claim propagation of
// hosted identity providers via bounded-retry resolution, and fails
// closed: a session whose membership cannot be established is forced
// out, never degraded to guest access.
//
//	eng, err := steward.NewEngine(
//	    steward.WithStore(memStore),
//	    steward.WithIdentity(idp),
//	)
//	decision, err := eng.Authorize(ctx, &steward.AuthzRequest{
//	    Membership:     callerMembership,
//	    Action:         steward.ActionCreateMember,
//	    TargetTenantID: tenantID,
//	})
package steward

import (
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/membership"
)

// Role is the fixed role enumeration for tenant members.
type Role = membership.Role

// Role constants re-exported from the membership package.
const (
	RoleOwner     = membership.RoleOwner
	RoleAssistant = membership.RoleAssistant
	RoleStaff     = membership.RoleStaff
	RolePending   = membership.RolePending
)

// Action identifies a privileged operation subject to policy.
type Action string

const (
	// ActionBootstrapOwner is the one-time, authority-free assignment of
	// the first owner to a tenant with no owner yet.
	ActionBootstrapOwner Action = "bootstrap_owner"

	// ActionAssignRole changes an existing member's role.
	ActionAssignRole Action = "assign_role"

	// ActionCreateMember provisions a new principal and binds it to the
	// tenant.
	ActionCreateMember Action = "create_member"

	// ActionDeleteMember removes a member and revokes its sessions.
	ActionDeleteMember Action = "delete_member"
)

// AuthzRequest is the input to a policy evaluation.
type AuthzRequest struct {
	// Membership is the caller's resolved membership. Nil is legal only
	// for ActionBootstrapOwner, where no authority exists yet.
	Membership *membership.Membership `json:"membership,omitempty"`

	Action Action `json:"action"`

	// TargetTenantID is the tenant the action operates on.
	TargetTenantID id.TenantID `json:"target_tenant_id"`

	// TargetPrincipalID identifies the member a delete or role change is
	// aimed at. Nil for tenant-level actions.
	TargetPrincipalID id.PrincipalID `json:"target_principal_id,omitempty"`

	// TargetRole is the current role of the target member, for the
	// delete path's owner protection.
	TargetRole Role `json:"target_role,omitempty"`

	// OwnerExists is precomputed by the caller for ActionBootstrapOwner:
	// whether the tenant already has an owner. The policy engine trusts
	// this flag rather than performing I/O.
	OwnerExists bool `json:"owner_exists,omitempty"`
}

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allowed    bool   `json:"allowed"`
	Code       Code   `json:"code"`
	Reason     string `json:"reason,omitempty"`
	EvalTimeNs int64  `json:"eval_time_ns"`
}

// Code is the decision reason code. Every decision carries one; a bare
// boolean is never returned.
type Code string

const (
	// CodeAllow means the request is permitted.
	CodeAllow Code = "allow"

	// CodeDenyCrossTenant means the target tenant differs from the
	// caller's tenant. Tenant isolation outranks every role.
	CodeDenyCrossTenant Code = "deny_cross_tenant"

	// CodeDenyNoMembership means the caller holds no membership at all.
	CodeDenyNoMembership Code = "deny_no_membership"

	// CodeDenyOwnerExists means bootstrap was requested for a tenant
	// that already has an owner.
	CodeDenyOwnerExists Code = "deny_owner_exists"

	// CodeDenyNotOwner means the action requires the owner role.
	CodeDenyNotOwner Code = "deny_not_owner"

	// CodeDenySelfDelete means a member attempted to delete itself.
	CodeDenySelfDelete Code = "deny_self_delete"

	// CodeDenyOwnerTarget means the delete target is the tenant owner.
	CodeDenyOwnerTarget Code = "deny_owner_target"

	// CodeDenyDefault means no allow rule matched.
	CodeDenyDefault Code = "deny_default"
)
