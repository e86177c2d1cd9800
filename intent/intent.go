// Package intent defines the mutation intent log: a durable record written
// before any two-phase mutation that spans the identity provider and the
// document store. Because no transaction covers both systems, the intent
// log is what makes orphaned principals discoverable after a crash.
package intent

import (
	"time"

	"github.com/xraph/steward/id"
)

// Kind identifies the multi-phase operation an intent tracks.
type Kind string

const (
	// KindCreateMember tracks principal provisioning followed by a
	// membership write.
	KindCreateMember Kind = "create_member"
)

// Stage is the progress marker for an intent.
type Stage string

const (
	// StagePending: intent recorded, no external side effect yet.
	StagePending Stage = "pending"

	// StageProvisioned: the principal exists in the identity provider but
	// the membership write has not been confirmed. An intent left in this
	// stage after a crash points at a potential orphan.
	StageProvisioned Stage = "provisioned"

	// StageCompleted: both phases succeeded.
	StageCompleted Stage = "completed"

	// StageCompensated: phase two failed and the provisioned principal
	// was deleted again.
	StageCompensated Stage = "compensated"

	// StageAbandoned: phase one never succeeded; nothing to clean up.
	StageAbandoned Stage = "abandoned"
)

// Resolved reports whether the stage is terminal.
func (s Stage) Resolved() bool {
	switch s {
	case StageCompleted, StageCompensated, StageAbandoned:
		return true
	}
	return false
}

// Intent is one recorded two-phase mutation.
type Intent struct {
	ID       id.IntentID `json:"id" db:"id"`
	Kind     Kind        `json:"kind" db:"kind"`
	TenantID id.TenantID `json:"tenant_id" db:"tenant_id"`

	// PrincipalID is the provisioned principal, set once phase one
	// succeeds. Nil while pending.
	PrincipalID id.PrincipalID `json:"principal_id,omitempty" db:"principal_id"`

	Stage      Stage          `json:"stage" db:"stage"`
	Payload    map[string]any `json:"payload,omitempty" db:"payload"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty" db:"resolved_at"`
}

// ListFilter contains filters for listing intents.
type ListFilter struct {
	TenantID   id.TenantID `json:"tenant_id,omitempty"`
	Kind       Kind        `json:"kind,omitempty"`
	Stage      Stage       `json:"stage,omitempty"`
	Unresolved bool        `json:"unresolved,omitempty"`
	Limit      int         `json:"limit,omitempty"`
	Offset     int         `json:"offset,omitempty"`
}
