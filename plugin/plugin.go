// Package plugin defines the plugin system for Steward.
// Plugins are notified of lifecycle events (authorization performed, member
// created, sessions revoked, etc.) and can react: logging, metrics,
// tracing, etc.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/xraph/steward/id"
	"github.com/xraph/steward/intent"
	"github.com/xraph/steward/membership"
	"github.com/xraph/steward/tenant"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Authorization lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeAuthorize is called before a policy evaluation.
// The req parameter is *steward.AuthzRequest (passed as any to avoid import cycle).
type BeforeAuthorize interface {
	OnBeforeAuthorize(ctx context.Context, req any) error
}

// AfterAuthorize is called after a policy evaluation completes.
// The req parameter is *steward.AuthzRequest; result is *steward.Decision.
type AfterAuthorize interface {
	OnAfterAuthorize(ctx context.Context, req, result any) error
}

// ──────────────────────────────────────────────────
// Tenant lifecycle hooks
// ──────────────────────────────────────────────────

// TenantCreated is called after a tenant is created.
type TenantCreated interface {
	OnTenantCreated(ctx context.Context, t *tenant.Tenant) error
}

// OwnerBootstrapped is called after a tenant's first owner is confirmed.
type OwnerBootstrapped interface {
	OnOwnerBootstrapped(ctx context.Context, m *membership.Membership) error
}

// ──────────────────────────────────────────────────
// Member lifecycle hooks
// ──────────────────────────────────────────────────

// MemberCreated is called after a member is provisioned and bound.
type MemberCreated interface {
	OnMemberCreated(ctx context.Context, m *membership.Membership) error
}

// RoleAssigned is called after a member's role changes. previous is the
// role held before the change.
type RoleAssigned interface {
	OnRoleAssigned(ctx context.Context, m *membership.Membership, previous membership.Role) error
}

// MemberDeleted is called after a member is removed. The membership is the
// last state before deletion.
type MemberDeleted interface {
	OnMemberDeleted(ctx context.Context, m *membership.Membership) error
}

// SessionsRevoked is called after a principal's sessions are invalidated.
type SessionsRevoked interface {
	OnSessionsRevoked(ctx context.Context, principalID id.PrincipalID) error
}

// ──────────────────────────────────────────────────
// Recovery hooks
// ──────────────────────────────────────────────────

// CompensationRun is called after a failed two-phase mutation is rolled
// back, either inline or by the startup intent sweep.
type CompensationRun interface {
	OnCompensationRun(ctx context.Context, in *intent.Intent) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
