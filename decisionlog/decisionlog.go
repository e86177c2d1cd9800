// Package decisionlog defines the authorization decision audit log Entry
// entity. Every gateway decision, allow or deny, is appended here with
// its reason code; a bare boolean is never recorded.
package decisionlog

import (
	"time"

	"github.com/xraph/steward/id"
)

// Entry is a single authorization decision audit record.
type Entry struct {
	ID                id.DecisionLogID `json:"id" db:"id"`
	TenantID          id.TenantID      `json:"tenant_id" db:"tenant_id"`
	PrincipalID       id.PrincipalID   `json:"principal_id" db:"principal_id"`
	Action            string           `json:"action" db:"action"`
	TargetPrincipalID id.PrincipalID   `json:"target_principal_id,omitempty" db:"target_principal_id"`
	Allowed           bool             `json:"allowed" db:"allowed"`
	Decision          string           `json:"decision" db:"decision"`
	Reason            string           `json:"reason,omitempty" db:"reason"`
	EvalTimeNs        int64            `json:"eval_time_ns" db:"eval_time_ns"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying decision logs.
type QueryFilter struct {
	TenantID          id.TenantID    `json:"tenant_id,omitempty"`
	PrincipalID       id.PrincipalID `json:"principal_id,omitempty"`
	TargetPrincipalID id.PrincipalID `json:"target_principal_id,omitempty"`
	Action            string         `json:"action,omitempty"`
	Decision          string         `json:"decision,omitempty"`
	Allowed           *bool          `json:"allowed,omitempty"`
	After             *time.Time     `json:"after,omitempty"`
	Before            *time.Time     `json:"before,omitempty"`
	Limit             int            `json:"limit,omitempty"`
	Offset            int            `json:"offset,omitempty"`
}
