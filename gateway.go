package steward

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xraph/steward/id"
	"github.com/xraph/steward/identity"
	"github.com/xraph/steward/intent"
	"github.com/xraph/steward/membership"
)

// The mutation gateway: the only write path for memberships. Every
// operation authorizes first, mutates second, and serializes on the
// target principal so concurrent changes to the same member cannot
// silently drop a write.

// BootstrapOwnerRequest asks for the one-time owner confirmation of a
// tenant that has no owner yet.
type BootstrapOwnerRequest struct {
	TenantID    id.TenantID    `json:"tenant_id"`
	PrincipalID id.PrincipalID `json:"principal_id"`
	Name        string         `json:"name,omitempty"`
	Email       string         `json:"email,omitempty"`
}

// CreateMemberRequest asks for a new member: principal provisioning in
// the identity provider followed by a membership write.
type CreateMemberRequest struct {
	CallerID id.PrincipalID  `json:"caller_id"`
	TenantID id.TenantID     `json:"tenant_id"`
	Email    string          `json:"email"`
	Name     string          `json:"name,omitempty"`
	Role     membership.Role `json:"role"`
}

// CreateMemberResult is the outcome of a successful member creation.
type CreateMemberResult struct {
	Membership *membership.Membership `json:"membership"`
	Principal  *identity.Principal    `json:"principal"`

	// ResetLink is the single-use credential link for the invite flow.
	// Empty when link generation failed; the member still exists.
	ResetLink string `json:"reset_link,omitempty"`
}

// AssignRoleRequest asks for a role change on an existing member.
type AssignRoleRequest struct {
	CallerID          id.PrincipalID  `json:"caller_id"`
	TenantID          id.TenantID     `json:"tenant_id"`
	TargetPrincipalID id.PrincipalID  `json:"target_principal_id"`
	Role              membership.Role `json:"role"`
}

// DeleteMemberRequest asks for member removal with session revocation.
type DeleteMemberRequest struct {
	CallerID          id.PrincipalID `json:"caller_id"`
	TenantID          id.TenantID    `json:"tenant_id"`
	TargetPrincipalID id.PrincipalID `json:"target_principal_id"`
}

// BootstrapOwner confirms the first owner of a tenant. No prior authority
// is required: the policy admits the request only while the tenant has no
// owner membership, so exactly one caller can ever win. An existing
// membership held by the principal (typically the transient pending role
// from signup) is replaced by the owner binding.
func (e *Engine) BootstrapOwner(ctx context.Context, req *BootstrapOwnerRequest) (*membership.Membership, error) {
	if req.TenantID.IsNil() {
		return nil, &ValidationError{Field: "tenant_id", Detail: "required"}
	}
	if req.PrincipalID.IsNil() {
		return nil, &ValidationError{Field: "principal_id", Detail: "required"}
	}

	unlock := e.lockTarget(req.PrincipalID)
	defer unlock()

	t, err := e.store.GetTenant(ctx, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("load tenant: %w", err)
	}

	ownerExists, err := e.store.OwnerExists(ctx, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: owner lookup: %v", ErrUpstreamUnavailable, err)
	}
	caller, err := e.resolveCaller(ctx, req.PrincipalID)
	if err != nil {
		return nil, err
	}

	decision, err := e.Authorize(ctx, &AuthzRequest{
		Membership:        caller,
		Action:            ActionBootstrapOwner,
		TargetTenantID:    req.TenantID,
		TargetPrincipalID: req.PrincipalID,
		// The recorded owner may retry: a crash between claiming the
		// tenant and writing the membership leaves the claim in place,
		// and the same principal must be able to finish the bootstrap.
		OwnerExists: ownerExists || (t.Bootstrapped() && t.OwnerPrincipalID.String() != req.PrincipalID.String()),
	})
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &PermissionDeniedError{Decision: decision}
	}

	// Claim the tenant before writing anything else. The claim is a
	// compare-and-set on the tenant row, so exactly one principal can win
	// a concurrent bootstrap; the loser returns here with no membership
	// persisted.
	if err := e.store.SetTenantOwner(ctx, req.TenantID, req.PrincipalID); err != nil {
		if errors.Is(err, ErrTenantOwnerSet) {
			return nil, fmt.Errorf("%w: tenant %s", ErrOwnerExists, req.TenantID)
		}
		return nil, fmt.Errorf("%w: record tenant owner: %v", ErrUpstreamUnavailable, err)
	}

	now := e.now()
	m := &membership.Membership{
		ID:          id.NewMembershipID(),
		TenantID:    req.TenantID,
		PrincipalID: req.PrincipalID,
		Role:        membership.RoleOwner,
		Name:        req.Name,
		Email:       strings.ToLower(req.Email),
		GrantedBy:   req.PrincipalID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if caller != nil {
		// Keep the signup identity fields and creation time; only the
		// binding is rewritten.
		m.ID = caller.ID
		m.CreatedAt = caller.CreatedAt
		if m.Name == "" {
			m.Name = caller.Name
		}
		if m.Email == "" {
			m.Email = caller.Email
		}
	}

	if err := e.store.PutMembership(ctx, m); err != nil {
		return nil, fmt.Errorf("%w: write owner membership: %v", ErrUpstreamUnavailable, err)
	}
	if err := e.setClaims(ctx, m); err != nil {
		return nil, err
	}

	e.logger.Info("steward: owner bootstrapped",
		slog.String("tenant", req.TenantID.String()),
		slog.String("principal", req.PrincipalID.String()))
	if e.plugins != nil {
		e.plugins.EmitOwnerBootstrapped(ctx, m)
	}
	return m, nil
}

// CreateMember provisions a principal in the identity provider and binds
// it to the caller's tenant. The two writes span two systems with no
// shared transaction, so the operation is recorded in the intent log
// before the first side effect and compensated on partial failure: a
// failed membership write deletes the just-provisioned principal rather
// than leaving a credentialed identity with no binding.
func (e *Engine) CreateMember(ctx context.Context, req *CreateMemberRequest) (*CreateMemberResult, error) {
	if req.TenantID.IsNil() {
		return nil, &ValidationError{Field: "tenant_id", Detail: "required"}
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, &ValidationError{Field: "email", Detail: "a valid address is required"}
	}
	if !req.Role.Assignable() {
		return nil, &ValidationError{Field: "role", Detail: fmt.Sprintf("%q is not assignable", req.Role)}
	}

	caller, err := e.resolveCaller(ctx, req.CallerID)
	if err != nil {
		return nil, err
	}
	if err := e.Enforce(ctx, &AuthzRequest{
		Membership:     caller,
		Action:         ActionCreateMember,
		TargetTenantID: req.TenantID,
		TargetRole:     req.Role,
	}); err != nil {
		return nil, err
	}

	// Durable intent before any external side effect. A crash from here
	// on leaves a record the startup sweep can resolve.
	in := &intent.Intent{
		ID:       id.NewIntentID(),
		Kind:     intent.KindCreateMember,
		TenantID: req.TenantID,
		Stage:    intent.StagePending,
		Payload: map[string]any{
			"email": email,
			"name":  req.Name,
			"role":  string(req.Role),
		},
		CreatedAt: e.now(),
	}
	if err := e.store.CreateIntent(ctx, in); err != nil {
		return nil, fmt.Errorf("%w: record intent: %v", ErrUpstreamUnavailable, err)
	}

	// Phase one: provision the principal.
	p, err := e.identity.CreatePrincipal(ctx, email, req.Name)
	if err != nil {
		e.resolveIntent(ctx, in, intent.StageAbandoned)
		return nil, fmt.Errorf("%w: provision principal: %v", ErrUpstreamUnavailable, err)
	}
	in.PrincipalID = p.ID
	in.Stage = intent.StageProvisioned
	if err := e.store.UpdateIntent(ctx, in); err != nil {
		e.logger.Warn("steward: intent stage update failed",
			slog.String("intent", in.ID.String()),
			slog.Any("error", err))
	}

	unlock := e.lockTarget(p.ID)
	defer unlock()

	// Phase two: bind the principal to the tenant.
	now := e.now()
	m := &membership.Membership{
		ID:          id.NewMembershipID(),
		TenantID:    req.TenantID,
		PrincipalID: p.ID,
		Role:        req.Role,
		Name:        req.Name,
		Email:       email,
		GrantedBy:   req.CallerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.PutMembership(ctx, m); err != nil {
		return nil, e.compensateCreate(ctx, in, p.ID, "membership_write", err)
	}
	if err := e.setClaims(ctx, m); err != nil {
		if delErr := e.store.DeleteMembershipByPrincipal(ctx, p.ID); delErr != nil {
			e.logger.Error("steward: membership rollback failed",
				slog.String("principal", p.ID.String()),
				slog.Any("error", delErr))
		}
		return nil, e.compensateCreate(ctx, in, p.ID, "claims_write", err)
	}
	e.resolveIntent(ctx, in, intent.StageCompleted)

	link, err := e.identity.PasswordResetLink(ctx, email)
	if err != nil {
		// The member exists and can sign in once credentials are set
		// another way; a missing invite link is not worth failing for.
		e.logger.Warn("steward: reset link generation failed",
			slog.String("email", email),
			slog.Any("error", err))
		link = ""
	}

	e.logger.Info("steward: member created",
		slog.String("tenant", req.TenantID.String()),
		slog.String("principal", p.ID.String()),
		slog.String("role", string(req.Role)))
	if e.plugins != nil {
		e.plugins.EmitMemberCreated(ctx, m)
	}
	return &CreateMemberResult{Membership: m, Principal: p, ResetLink: link}, nil
}

// AssignRole changes an existing member's role. The owner binding is out
// of reach from this path in both directions: owner cannot be granted
// (not assignable) and the current owner cannot be demoted.
func (e *Engine) AssignRole(ctx context.Context, req *AssignRoleRequest) (*membership.Membership, error) {
	if req.TargetPrincipalID.IsNil() {
		return nil, &ValidationError{Field: "target_principal_id", Detail: "required"}
	}
	if !req.Role.Assignable() {
		return nil, &ValidationError{Field: "role", Detail: fmt.Sprintf("%q is not assignable", req.Role)}
	}

	caller, err := e.resolveCaller(ctx, req.CallerID)
	if err != nil {
		return nil, err
	}

	unlock := e.lockTarget(req.TargetPrincipalID)
	defer unlock()

	target, err := e.loadTenantMember(ctx, req.TenantID, req.TargetPrincipalID)
	if err != nil {
		return nil, err
	}
	if err := e.Enforce(ctx, &AuthzRequest{
		Membership:        caller,
		Action:            ActionAssignRole,
		TargetTenantID:    req.TenantID,
		TargetPrincipalID: req.TargetPrincipalID,
		TargetRole:        target.Role,
	}); err != nil {
		return nil, err
	}
	if target.Role == membership.RoleOwner {
		return nil, &ValidationError{Field: "target_principal_id", Detail: "the owner binding cannot be reassigned"}
	}

	previous := target.Role
	target.Role = req.Role
	target.GrantedBy = req.CallerID
	target.UpdatedAt = e.now()
	if err := e.store.PutMembership(ctx, target); err != nil {
		return nil, fmt.Errorf("%w: write membership: %v", ErrUpstreamUnavailable, err)
	}
	if err := e.setClaims(ctx, target); err != nil {
		return nil, err
	}

	e.logger.Info("steward: role assigned",
		slog.String("tenant", req.TenantID.String()),
		slog.String("principal", req.TargetPrincipalID.String()),
		slog.String("from", string(previous)),
		slog.String("to", string(req.Role)))
	if e.plugins != nil {
		e.plugins.EmitRoleAssigned(ctx, target, previous)
	}
	return target, nil
}

// DeleteMember removes a member from the caller's tenant. Sessions are
// revoked before any record is deleted so the target cannot keep acting
// on a live credential while its binding disappears; if revocation fails,
// nothing is deleted.
func (e *Engine) DeleteMember(ctx context.Context, req *DeleteMemberRequest) error {
	if req.TargetPrincipalID.IsNil() {
		return &ValidationError{Field: "target_principal_id", Detail: "required"}
	}

	caller, err := e.resolveCaller(ctx, req.CallerID)
	if err != nil {
		return err
	}

	unlock := e.lockTarget(req.TargetPrincipalID)
	defer unlock()

	target, err := e.loadTenantMember(ctx, req.TenantID, req.TargetPrincipalID)
	if err != nil {
		return err
	}
	if err := e.Enforce(ctx, &AuthzRequest{
		Membership:        caller,
		Action:            ActionDeleteMember,
		TargetTenantID:    req.TenantID,
		TargetPrincipalID: req.TargetPrincipalID,
		TargetRole:        target.Role,
	}); err != nil {
		return err
	}

	if err := e.identity.RevokeSessions(ctx, req.TargetPrincipalID); err != nil {
		return fmt.Errorf("%w: revoke sessions: %v", ErrUpstreamUnavailable, err)
	}
	if e.plugins != nil {
		e.plugins.EmitSessionsRevoked(ctx, req.TargetPrincipalID)
	}

	if err := e.store.DeleteMembershipByPrincipal(ctx, req.TargetPrincipalID); err != nil {
		return fmt.Errorf("%w: delete membership: %v", ErrUpstreamUnavailable, err)
	}
	if err := e.identity.DeletePrincipal(ctx, req.TargetPrincipalID); err != nil && !errors.Is(err, ErrPrincipalNotFound) {
		// The binding is gone, so the principal holds no privilege; it
		// just lingers in the identity provider until cleaned up.
		return &PartialFailureError{Stage: "principal_delete", Compensated: false, Err: err}
	}

	e.logger.Info("steward: member deleted",
		slog.String("tenant", req.TenantID.String()),
		slog.String("principal", req.TargetPrincipalID.String()))
	if e.plugins != nil {
		e.plugins.EmitMemberDeleted(ctx, target)
	}
	return nil
}

// RecoverIntents sweeps the intent log for two-phase mutations that never
// reached a terminal stage, typically because of a crash between phases,
// and resolves each one: completed work is acknowledged, orphaned
// principals are compensated.
func (e *Engine) RecoverIntents(ctx context.Context) error {
	pending, err := e.store.ListIntents(ctx, &intent.ListFilter{Unresolved: true})
	if err != nil {
		return fmt.Errorf("%w: list intents: %v", ErrUpstreamUnavailable, err)
	}

	for _, in := range pending {
		if in.Kind != intent.KindCreateMember {
			continue
		}
		switch in.Stage {
		case intent.StagePending:
			// No side effect was recorded; nothing to clean up.
			e.resolveIntent(ctx, in, intent.StageAbandoned)

		case intent.StageProvisioned:
			_, err := e.store.GetMembershipByPrincipal(ctx, in.PrincipalID)
			if err == nil {
				// Both phases landed; only the terminal stage is missing.
				e.resolveIntent(ctx, in, intent.StageCompleted)
				continue
			}
			if !errors.Is(err, ErrMembershipNotFound) {
				e.logger.Warn("steward: intent recovery read failed",
					slog.String("intent", in.ID.String()),
					slog.Any("error", err))
				continue
			}
			if err := e.identity.DeletePrincipal(ctx, in.PrincipalID); err != nil && !errors.Is(err, ErrPrincipalNotFound) {
				e.logger.Error("steward: orphan compensation failed",
					slog.String("intent", in.ID.String()),
					slog.String("principal", in.PrincipalID.String()),
					slog.Any("error", err))
				continue
			}
			e.resolveIntent(ctx, in, intent.StageCompensated)
			e.logger.Info("steward: orphaned principal compensated",
				slog.String("intent", in.ID.String()),
				slog.String("principal", in.PrincipalID.String()))
			if e.plugins != nil {
				e.plugins.EmitCompensationRun(ctx, in)
			}
		}
	}
	return nil
}

// compensateCreate rolls back phase one of a failed member creation and
// reports the outcome as a PartialFailureError.
func (e *Engine) compensateCreate(ctx context.Context, in *intent.Intent, principalID id.PrincipalID, stage string, cause error) error {
	if err := e.identity.DeletePrincipal(ctx, principalID); err != nil && !errors.Is(err, ErrPrincipalNotFound) {
		e.logger.Error("steward: compensation failed, orphaned principal remains",
			slog.String("intent", in.ID.String()),
			slog.String("principal", principalID.String()),
			slog.Any("error", err))
		return &PartialFailureError{Stage: stage, Compensated: false, Err: cause}
	}
	e.resolveIntent(ctx, in, intent.StageCompensated)
	if e.plugins != nil {
		e.plugins.EmitCompensationRun(ctx, in)
	}
	return &PartialFailureError{Stage: stage, Compensated: true, Err: cause}
}

// resolveIntent marks an intent terminal. Failures are logged, not
// propagated: the startup sweep re-resolves anything left behind.
func (e *Engine) resolveIntent(ctx context.Context, in *intent.Intent, stage intent.Stage) {
	now := e.now()
	in.Stage = stage
	in.ResolvedAt = &now
	if err := e.store.UpdateIntent(ctx, in); err != nil {
		e.logger.Warn("steward: intent resolution write failed",
			slog.String("intent", in.ID.String()),
			slog.String("stage", string(stage)),
			slog.Any("error", err))
	}
}

// setClaims pushes the membership's role and tenant into the identity
// provider's claims bundle.
func (e *Engine) setClaims(ctx context.Context, m *membership.Membership) error {
	err := e.identity.SetClaims(ctx, m.PrincipalID, identity.Claims{
		Role:     m.Role,
		TenantID: m.TenantID,
	})
	if err != nil {
		return fmt.Errorf("%w: set claims: %v", ErrUpstreamUnavailable, err)
	}
	return nil
}

// loadTenantMember reads the target's membership and hides memberships
// from other tenants behind not-found, so cross-tenant probing cannot
// distinguish "no such member" from "member elsewhere".
func (e *Engine) loadTenantMember(ctx context.Context, tenantID id.TenantID, principalID id.PrincipalID) (*membership.Membership, error) {
	m, err := e.store.GetMembershipByPrincipal(ctx, principalID)
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return nil, fmt.Errorf("principal %s: %w", principalID, ErrMembershipNotFound)
		}
		return nil, fmt.Errorf("%w: load member: %v", ErrUpstreamUnavailable, err)
	}
	if m.TenantID.String() != tenantID.String() {
		return nil, fmt.Errorf("principal %s: %w", principalID, ErrMembershipNotFound)
	}
	return m, nil
}
