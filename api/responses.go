package api

// DecisionResponse is the response for a policy decision.
type DecisionResponse struct {
	Allowed    bool   `json:"allowed" description:"Whether the request is allowed"`
	Code       string `json:"code" description:"Decision reason code"`
	Reason     string `json:"reason,omitempty" description:"Human-readable reason"`
	EvalTimeNs int64  `json:"eval_time_ns" description:"Evaluation time in nanoseconds"`
}

// SessionResponse reports the outcome of session resolution.
type SessionResponse struct {
	State      string          `json:"state" description:"Session state (ready, unauthenticated)"`
	Membership *MemberResponse `json:"membership,omitempty" description:"Resolved membership when ready"`
}

// MemberResponse is the wire shape of a membership.
type MemberResponse struct {
	ID          string `json:"id" description:"Membership ID"`
	TenantID    string `json:"tenant_id" description:"Tenant ID"`
	PrincipalID string `json:"principal_id" description:"Principal ID"`
	Role        string `json:"role" description:"Member role"`
	Name        string `json:"name,omitempty" description:"Display name"`
	Email       string `json:"email,omitempty" description:"Email address"`
	GrantedBy   string `json:"granted_by,omitempty" description:"Granting principal ID"`
}

// CreateMemberResponse is the result of member provisioning.
type CreateMemberResponse struct {
	Membership *MemberResponse `json:"membership" description:"The new member's binding"`
	ResetLink  string          `json:"reset_link,omitempty" description:"Single-use credential link for the invite"`
}

// ListResponse wraps a list of items with pagination metadata.
type ListResponse[T any] struct {
	Items  []T   `json:"items" description:"List of items"`
	Total  int64 `json:"total" description:"Total count"`
	Limit  int   `json:"limit" description:"Page size"`
	Offset int   `json:"offset" description:"Page offset"`
}
