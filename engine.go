package steward

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/steward/decisionlog"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/identity"
	"github.com/xraph/steward/plugin"
	"github.com/xraph/steward/store"
)

// Engine is the central authorization engine. It resolves caller
// memberships, evaluates the role policy, owns the privileged membership
// mutations, and fires extension hooks.
type Engine struct {
	store    store.Store
	identity identity.Provider
	plugins  *plugin.Registry
	logger   *slog.Logger
	config   Config
	clock    Clock

	// targets serializes mutations aimed at the same principal so two
	// concurrent role changes cannot silently drop one write.
	targets targetLocks
}

// NewEngine creates a new Steward engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
		clock:  realClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("steward: store is required")
	}
	if e.identity == nil {
		return nil, errors.New("steward: identity provider is required")
	}
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Identity returns the identity provider port.
func (e *Engine) Identity() identity.Provider { return e.identity }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Start performs startup initialization: it sweeps the intent log for
// two-phase mutations interrupted by a crash and compensates orphaned
// principals.
func (e *Engine) Start(ctx context.Context) error {
	return e.RecoverIntents(ctx)
}

// Stop performs graceful shutdown.
func (e *Engine) Stop(ctx context.Context) error {
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	return nil
}

// Authorize evaluates the role policy for the request and records the
// decision in the audit log. Policy denial is a normal return value, not
// an error. This is the hot path.
func (e *Engine) Authorize(ctx context.Context, req *AuthzRequest) (*Decision, error) {
	start := e.clock.Now()

	// A request without an explicit target tenant falls back to the
	// ambient scope (forge scope, or the standalone context tenant).
	if req.TargetTenantID.IsNil() {
		req.TargetTenantID = scopeTenant(ctx)
	}

	if e.plugins != nil {
		e.plugins.EmitBeforeAuthorize(ctx, req)
	}

	result := Evaluate(req)
	result.EvalTimeNs = e.clock.Now().Sub(start).Nanoseconds()

	e.appendDecision(ctx, req, result)

	if e.plugins != nil {
		e.plugins.EmitAfterAuthorize(ctx, req, result)
	}

	return result, nil
}

// Enforce returns an error if the authorization check is denied.
func (e *Engine) Enforce(ctx context.Context, req *AuthzRequest) error {
	result, err := e.Authorize(ctx, req)
	if err != nil {
		return fmt.Errorf("steward authorize: %w", err)
	}
	if !result.Allowed {
		return &PermissionDeniedError{Decision: result}
	}
	return nil
}

// appendDecision writes the decision audit record. Audit failures are
// logged, never allowed to block the decision itself.
func (e *Engine) appendDecision(ctx context.Context, req *AuthzRequest, d *Decision) {
	if e.config.DisableDecisionLog {
		return
	}

	entry := &decisionlog.Entry{
		ID:                id.NewDecisionLogID(),
		TenantID:          req.TargetTenantID,
		Action:            string(req.Action),
		TargetPrincipalID: req.TargetPrincipalID,
		Allowed:           d.Allowed,
		Decision:          string(d.Code),
		Reason:            d.Reason,
		EvalTimeNs:        d.EvalTimeNs,
		CreatedAt:         e.clock.Now(),
	}
	if req.Membership != nil {
		entry.PrincipalID = req.Membership.PrincipalID
	}

	if err := e.store.CreateDecisionLog(ctx, entry); err != nil {
		e.logger.Warn("steward: decision log append failed",
			slog.String("action", string(req.Action)),
			slog.String("decision", string(d.Code)),
			slog.Any("error", err))
	}
}

// ──────────────────────────────────────────────────
// Per-target mutation serialization
// ──────────────────────────────────────────────────

type targetLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (t *targetLocks) lock(key string) func() {
	t.mu.Lock()
	if t.locks == nil {
		t.locks = make(map[string]*sync.Mutex)
	}
	l, ok := t.locks[key]
	if !ok {
		l = &sync.Mutex{}
		t.locks[key] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// lockTarget serializes mutations per target principal. Returns a no-op
// unlock when serialization is disabled.
func (e *Engine) lockTarget(principalID id.PrincipalID) func() {
	if e.config.DisableMutationSerialization {
		return func() {}
	}
	return e.targets.lock(principalID.String())
}

// now is a small helper for stamping entity times.
func (e *Engine) now() time.Time { return e.clock.Now() }
