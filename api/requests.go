package api

// ──────────────────────────────────────────────────
// Authorization requests
// ──────────────────────────────────────────────────

// AuthorizeRequest is the request body for a policy decision.
type AuthorizeRequest struct {
	PrincipalID       string `json:"principal_id" description:"Caller principal ID"`
	Action            string `json:"action" description:"Action (bootstrap_owner, assign_role, create_member, delete_member)"`
	TenantID          string `json:"tenant_id" description:"Target tenant ID"`
	TargetPrincipalID string `json:"target_principal_id,omitempty" description:"Target member principal ID"`
}

// ──────────────────────────────────────────────────
// Tenant requests
// ──────────────────────────────────────────────────

// CreateTenantRequest is the body for creating a tenant.
type CreateTenantRequest struct {
	Name     string         `json:"name" description:"Tenant name"`
	Metadata map[string]any `json:"metadata,omitempty" description:"Custom metadata"`
}

// GetTenantRequest is the path parameter for getting a tenant.
type GetTenantRequest struct {
	TenantID string `path:"tenantId" description:"Tenant ID"`
}

// ListTenantsRequest holds query parameters for listing tenants.
type ListTenantsRequest struct {
	Search string `query:"search" description:"Search by name"`
	Limit  int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset int    `query:"offset" description:"Results to skip"`
}

// BootstrapOwnerRequest is the body for the one-time owner confirmation.
type BootstrapOwnerRequest struct {
	PrincipalID string `json:"principal_id" description:"Principal claiming ownership"`
	Name        string `json:"name,omitempty" description:"Display name"`
	Email       string `json:"email,omitempty" description:"Email address"`
}

// ──────────────────────────────────────────────────
// Member requests
// ──────────────────────────────────────────────────

// CreateMemberRequest is the body for provisioning a new member.
type CreateMemberRequest struct {
	CallerID string `json:"caller_id" description:"Calling principal ID"`
	Email    string `json:"email" description:"New member's email"`
	Name     string `json:"name,omitempty" description:"New member's display name"`
	Role     string `json:"role" description:"Role to grant (assistant or staff)"`
}

// AssignRoleRequest is the body for changing a member's role.
type AssignRoleRequest struct {
	CallerID string `json:"caller_id" description:"Calling principal ID"`
	Role     string `json:"role" description:"New role (assistant or staff)"`
}

// DeleteMemberRequest holds parameters for removing a member.
type DeleteMemberRequest struct {
	CallerID string `query:"caller_id" description:"Calling principal ID"`
}

// GetMemberRequest holds parameters for reading one member.
type GetMemberRequest struct {
	CallerID string `query:"caller_id" description:"Calling principal ID"`
}

// ListMembersRequest holds query parameters for the member directory.
type ListMembersRequest struct {
	CallerID string `query:"caller_id" description:"Calling principal ID"`
	Role     string `query:"role" description:"Filter by role"`
	Search   string `query:"search" description:"Search by name or email"`
	Limit    int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset   int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Session requests
// ──────────────────────────────────────────────────

// ResolveSessionRequest is the body for session membership resolution.
type ResolveSessionRequest struct {
	PrincipalID string `json:"principal_id" description:"Principal to resolve"`
}

// AwaitConsistencyRequest is the body for awaiting claim convergence
// after a mutation.
type AwaitConsistencyRequest struct {
	PrincipalID string `json:"principal_id" description:"Principal whose claims must converge"`
	TenantID    string `json:"tenant_id" description:"Expected tenant binding"`
	Role        string `json:"role" description:"Expected role"`
}

// ──────────────────────────────────────────────────
// Decision log requests
// ──────────────────────────────────────────────────

// ListDecisionLogsRequest holds query parameters for the audit trail.
type ListDecisionLogsRequest struct {
	CallerID string `query:"caller_id" description:"Calling principal ID (must be the owner)"`
	Action   string `query:"action" description:"Filter by action"`
	Decision string `query:"decision" description:"Filter by decision code"`
	Allowed  string `query:"allowed" description:"Filter by outcome (true/false)"`
	After    string `query:"after" description:"After timestamp (RFC3339)"`
	Before   string `query:"before" description:"Before timestamp (RFC3339)"`
	Limit    int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset   int    `query:"offset" description:"Results to skip"`
}
