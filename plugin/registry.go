package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/steward/id"
	"github.com/xraph/steward/intent"
	"github.com/xraph/steward/membership"
	"github.com/xraph/steward/tenant"
)

// Named entry types pair a hook with the plugin name for logging.

type beforeAuthorizeEntry struct {
	name string
	hook BeforeAuthorize
}
type afterAuthorizeEntry struct {
	name string
	hook AfterAuthorize
}
type tenantCreatedEntry struct {
	name string
	hook TenantCreated
}
type ownerBootstrappedEntry struct {
	name string
	hook OwnerBootstrapped
}
type memberCreatedEntry struct {
	name string
	hook MemberCreated
}
type roleAssignedEntry struct {
	name string
	hook RoleAssigned
}
type memberDeletedEntry struct {
	name string
	hook MemberDeleted
}
type sessionsRevokedEntry struct {
	name string
	hook SessionsRevoked
}
type compensationRunEntry struct {
	name string
	hook CompensationRun
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	beforeAuthorize   []beforeAuthorizeEntry
	afterAuthorize    []afterAuthorizeEntry
	tenantCreated     []tenantCreatedEntry
	ownerBootstrapped []ownerBootstrappedEntry
	memberCreated     []memberCreatedEntry
	roleAssigned      []roleAssignedEntry
	memberDeleted     []memberDeletedEntry
	sessionsRevoked   []sessionsRevokedEntry
	compensationRun   []compensationRunEntry
	shutdown          []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(BeforeAuthorize); ok {
		r.beforeAuthorize = append(r.beforeAuthorize, beforeAuthorizeEntry{name, h})
	}
	if h, ok := p.(AfterAuthorize); ok {
		r.afterAuthorize = append(r.afterAuthorize, afterAuthorizeEntry{name, h})
	}
	if h, ok := p.(TenantCreated); ok {
		r.tenantCreated = append(r.tenantCreated, tenantCreatedEntry{name, h})
	}
	if h, ok := p.(OwnerBootstrapped); ok {
		r.ownerBootstrapped = append(r.ownerBootstrapped, ownerBootstrappedEntry{name, h})
	}
	if h, ok := p.(MemberCreated); ok {
		r.memberCreated = append(r.memberCreated, memberCreatedEntry{name, h})
	}
	if h, ok := p.(RoleAssigned); ok {
		r.roleAssigned = append(r.roleAssigned, roleAssignedEntry{name, h})
	}
	if h, ok := p.(MemberDeleted); ok {
		r.memberDeleted = append(r.memberDeleted, memberDeletedEntry{name, h})
	}
	if h, ok := p.(SessionsRevoked); ok {
		r.sessionsRevoked = append(r.sessionsRevoked, sessionsRevokedEntry{name, h})
	}
	if h, ok := p.(CompensationRun); ok {
		r.compensationRun = append(r.compensationRun, compensationRunEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// ──────────────────────────────────────────────────
// Authorization event emitters
// ──────────────────────────────────────────────────

// EmitBeforeAuthorize notifies all plugins that implement BeforeAuthorize.
func (r *Registry) EmitBeforeAuthorize(ctx context.Context, req any) {
	for _, e := range r.beforeAuthorize {
		if err := e.hook.OnBeforeAuthorize(ctx, req); err != nil {
			r.logHookError("OnBeforeAuthorize", e.name, err)
		}
	}
}

// EmitAfterAuthorize notifies all plugins that implement AfterAuthorize.
func (r *Registry) EmitAfterAuthorize(ctx context.Context, req, result any) {
	for _, e := range r.afterAuthorize {
		if err := e.hook.OnAfterAuthorize(ctx, req, result); err != nil {
			r.logHookError("OnAfterAuthorize", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Tenant event emitters
// ──────────────────────────────────────────────────

// EmitTenantCreated notifies all plugins that implement TenantCreated.
func (r *Registry) EmitTenantCreated(ctx context.Context, t *tenant.Tenant) {
	for _, e := range r.tenantCreated {
		if err := e.hook.OnTenantCreated(ctx, t); err != nil {
			r.logHookError("OnTenantCreated", e.name, err)
		}
	}
}

// EmitOwnerBootstrapped notifies all plugins that implement OwnerBootstrapped.
func (r *Registry) EmitOwnerBootstrapped(ctx context.Context, m *membership.Membership) {
	for _, e := range r.ownerBootstrapped {
		if err := e.hook.OnOwnerBootstrapped(ctx, m); err != nil {
			r.logHookError("OnOwnerBootstrapped", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Member event emitters
// ──────────────────────────────────────────────────

// EmitMemberCreated notifies all plugins that implement MemberCreated.
func (r *Registry) EmitMemberCreated(ctx context.Context, m *membership.Membership) {
	for _, e := range r.memberCreated {
		if err := e.hook.OnMemberCreated(ctx, m); err != nil {
			r.logHookError("OnMemberCreated", e.name, err)
		}
	}
}

// EmitRoleAssigned notifies all plugins that implement RoleAssigned.
func (r *Registry) EmitRoleAssigned(ctx context.Context, m *membership.Membership, previous membership.Role) {
	for _, e := range r.roleAssigned {
		if err := e.hook.OnRoleAssigned(ctx, m, previous); err != nil {
			r.logHookError("OnRoleAssigned", e.name, err)
		}
	}
}

// EmitMemberDeleted notifies all plugins that implement MemberDeleted.
func (r *Registry) EmitMemberDeleted(ctx context.Context, m *membership.Membership) {
	for _, e := range r.memberDeleted {
		if err := e.hook.OnMemberDeleted(ctx, m); err != nil {
			r.logHookError("OnMemberDeleted", e.name, err)
		}
	}
}

// EmitSessionsRevoked notifies all plugins that implement SessionsRevoked.
func (r *Registry) EmitSessionsRevoked(ctx context.Context, principalID id.PrincipalID) {
	for _, e := range r.sessionsRevoked {
		if err := e.hook.OnSessionsRevoked(ctx, principalID); err != nil {
			r.logHookError("OnSessionsRevoked", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Recovery event emitters
// ──────────────────────────────────────────────────

// EmitCompensationRun notifies all plugins that implement CompensationRun.
func (r *Registry) EmitCompensationRun(ctx context.Context, in *intent.Intent) {
	for _, e := range r.compensationRun {
		if err := e.hook.OnCompensationRun(ctx, in); err != nil {
			r.logHookError("OnCompensationRun", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Shutdown emitter
// ──────────────────────────────────────────────────

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated; they must not block the pipeline.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
