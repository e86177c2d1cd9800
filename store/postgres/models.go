package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/steward/decisionlog"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/intent"
	"github.com/xraph/steward/membership"
	"github.com/xraph/steward/tenant"
)

// ──────────────────────────────────────────────────
// Tenant model
// ──────────────────────────────────────────────────

type tenantModel struct {
	grove.BaseModel  `grove:"table:steward_tenants"`
	ID               string         `grove:"id,pk"`
	Name             string         `grove:"name,notnull"`
	OwnerPrincipalID *string        `grove:"owner_principal_id"`
	Metadata         map[string]any `grove:"metadata,type:jsonb"`
	CreatedAt        time.Time      `grove:"created_at,notnull"`
	UpdatedAt        time.Time      `grove:"updated_at,notnull"`
}

func tenantToModel(t *tenant.Tenant) *tenantModel {
	m := &tenantModel{
		ID:        t.ID.String(),
		Name:      t.Name,
		Metadata:  t.Metadata,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if !t.OwnerPrincipalID.IsNil() {
		s := t.OwnerPrincipalID.String()
		m.OwnerPrincipalID = &s
	}
	return m
}

func tenantFromModel(m *tenantModel) *tenant.Tenant {
	tid, _ := id.ParseTenantID(m.ID) //nolint:errcheck // stored IDs are always valid
	t := &tenant.Tenant{
		ID:        tid,
		Name:      m.Name,
		Metadata:  m.Metadata,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.OwnerPrincipalID != nil {
		pid, err := id.ParsePrincipalID(*m.OwnerPrincipalID)
		if err == nil {
			t.OwnerPrincipalID = pid
		}
	}
	return t
}

// ──────────────────────────────────────────────────
// Membership model
// ──────────────────────────────────────────────────

// principal_id carries a unique constraint: a principal holds at most one
// binding, and PutMembership upserts on it.
type membershipModel struct {
	grove.BaseModel `grove:"table:steward_memberships"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	PrincipalID     string    `grove:"principal_id,notnull"`
	Role            string    `grove:"role,notnull"`
	Name            string    `grove:"name"`
	Email           string    `grove:"email"`
	GrantedBy       string    `grove:"granted_by"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func membershipToModel(m *membership.Membership) *membershipModel {
	model := &membershipModel{
		ID:          m.ID.String(),
		TenantID:    m.TenantID.String(),
		PrincipalID: m.PrincipalID.String(),
		Role:        string(m.Role),
		Name:        m.Name,
		Email:       m.Email,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if !m.GrantedBy.IsNil() {
		model.GrantedBy = m.GrantedBy.String()
	}
	return model
}

func membershipFromModel(m *membershipModel) *membership.Membership {
	mid, _ := id.ParseMembershipID(m.ID)         //nolint:errcheck // stored IDs are always valid
	tid, _ := id.ParseTenantID(m.TenantID)       //nolint:errcheck // stored IDs are always valid
	pid, _ := id.ParsePrincipalID(m.PrincipalID) //nolint:errcheck // stored IDs are always valid
	mb := &membership.Membership{
		ID:          mid,
		TenantID:    tid,
		PrincipalID: pid,
		Role:        membership.Role(m.Role),
		Name:        m.Name,
		Email:       m.Email,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.GrantedBy != "" {
		gb, err := id.ParsePrincipalID(m.GrantedBy)
		if err == nil {
			mb.GrantedBy = gb
		}
	}
	return mb
}

// ──────────────────────────────────────────────────
// Intent model
// ──────────────────────────────────────────────────

type intentModel struct {
	grove.BaseModel `grove:"table:steward_intents"`
	ID              string         `grove:"id,pk"`
	Kind            string         `grove:"kind,notnull"`
	TenantID        string         `grove:"tenant_id,notnull"`
	PrincipalID     string         `grove:"principal_id"`
	Stage           string         `grove:"stage,notnull"`
	Payload         map[string]any `grove:"payload,type:jsonb"`
	CreatedAt       time.Time      `grove:"created_at,notnull"`
	ResolvedAt      *time.Time     `grove:"resolved_at"`
}

func intentToModel(in *intent.Intent) *intentModel {
	m := &intentModel{
		ID:         in.ID.String(),
		Kind:       string(in.Kind),
		TenantID:   in.TenantID.String(),
		Stage:      string(in.Stage),
		Payload:    in.Payload,
		CreatedAt:  in.CreatedAt,
		ResolvedAt: in.ResolvedAt,
	}
	if !in.PrincipalID.IsNil() {
		m.PrincipalID = in.PrincipalID.String()
	}
	return m
}

func intentFromModel(m *intentModel) *intent.Intent {
	iid, _ := id.ParseIntentID(m.ID)       //nolint:errcheck // stored IDs are always valid
	tid, _ := id.ParseTenantID(m.TenantID) //nolint:errcheck // stored IDs are always valid
	in := &intent.Intent{
		ID:         iid,
		Kind:       intent.Kind(m.Kind),
		TenantID:   tid,
		Stage:      intent.Stage(m.Stage),
		Payload:    m.Payload,
		CreatedAt:  m.CreatedAt,
		ResolvedAt: m.ResolvedAt,
	}
	if m.PrincipalID != "" {
		pid, err := id.ParsePrincipalID(m.PrincipalID)
		if err == nil {
			in.PrincipalID = pid
		}
	}
	return in
}

// ──────────────────────────────────────────────────
// Decision log model
// ──────────────────────────────────────────────────

type decisionLogModel struct {
	grove.BaseModel   `grove:"table:steward_decision_logs"`
	ID                string    `grove:"id,pk"`
	TenantID          string    `grove:"tenant_id,notnull"`
	PrincipalID       string    `grove:"principal_id"`
	Action            string    `grove:"action,notnull"`
	TargetPrincipalID string    `grove:"target_principal_id"`
	Allowed           bool      `grove:"allowed,notnull"`
	Decision          string    `grove:"decision,notnull"`
	Reason            string    `grove:"reason"`
	EvalTimeNs        int64     `grove:"eval_time_ns,notnull"`
	CreatedAt         time.Time `grove:"created_at,notnull"`
}

func decisionLogToModel(e *decisionlog.Entry) *decisionLogModel {
	m := &decisionLogModel{
		ID:         e.ID.String(),
		TenantID:   e.TenantID.String(),
		Action:     e.Action,
		Allowed:    e.Allowed,
		Decision:   e.Decision,
		Reason:     e.Reason,
		EvalTimeNs: e.EvalTimeNs,
		CreatedAt:  e.CreatedAt,
	}
	if !e.PrincipalID.IsNil() {
		m.PrincipalID = e.PrincipalID.String()
	}
	if !e.TargetPrincipalID.IsNil() {
		m.TargetPrincipalID = e.TargetPrincipalID.String()
	}
	return m
}

func decisionLogFromModel(m *decisionLogModel) *decisionlog.Entry {
	lid, _ := id.ParseDecisionLogID(m.ID)  //nolint:errcheck // stored IDs are always valid
	tid, _ := id.ParseTenantID(m.TenantID) //nolint:errcheck // stored IDs are always valid
	e := &decisionlog.Entry{
		ID:         lid,
		TenantID:   tid,
		Action:     m.Action,
		Allowed:    m.Allowed,
		Decision:   m.Decision,
		Reason:     m.Reason,
		EvalTimeNs: m.EvalTimeNs,
		CreatedAt:  m.CreatedAt,
	}
	if m.PrincipalID != "" {
		pid, err := id.ParsePrincipalID(m.PrincipalID)
		if err == nil {
			e.PrincipalID = pid
		}
	}
	if m.TargetPrincipalID != "" {
		pid, err := id.ParsePrincipalID(m.TargetPrincipalID)
		if err == nil {
			e.TargetPrincipalID = pid
		}
	}
	return e
}
