package steward

import (
	"context"
	"log/slog"
	"sync"

	"github.com/xraph/steward/id"
	"github.com/xraph/steward/membership"
)

// SessionState is the lifecycle state of one authenticated session.
type SessionState string

const (
	// SessionUninitialized: created, resolution not yet attempted.
	SessionUninitialized SessionState = "uninitialized"

	// SessionLoading: a resolution or propagation wait is in flight.
	// Callers must render neither authenticated nor guest UI.
	SessionLoading SessionState = "loading"

	// SessionReady: membership resolved; the session may act.
	SessionReady SessionState = "ready"

	// SessionUnauthenticated: signed out, or forced out after a failed
	// resolution. Terminal until a new Begin.
	SessionUnauthenticated SessionState = "unauthenticated"
)

// Session tracks one principal's resolved membership across mutations.
// It fails closed: any resolution or propagation failure forces the
// session to SessionUnauthenticated rather than leaving it acting on
// stale or absent privilege.
//
// Safe for concurrent use.
type Session struct {
	engine      *Engine
	principalID id.PrincipalID

	mu         sync.Mutex
	state      SessionState
	membership *membership.Membership
}

// NewSession creates an uninitialized session for the principal.
func (e *Engine) NewSession(principalID id.PrincipalID) *Session {
	return &Session{
		engine:      e,
		principalID: principalID,
		state:       SessionUninitialized,
	}
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PrincipalID returns the principal the session belongs to.
func (s *Session) PrincipalID() id.PrincipalID { return s.principalID }

// Membership returns the resolved membership, or nil unless the session
// is ready.
func (s *Session) Membership() *membership.Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionReady {
		return nil
	}
	return s.membership
}

// Begin resolves the principal's membership and moves the session to
// ready. While resolution is in flight the state is loading. Exhausted
// resolution (ErrUnresolved) forces the session out; there is no guest
// fallback.
func (s *Session) Begin(ctx context.Context) (*membership.Membership, error) {
	s.transition(SessionLoading, nil)

	m, err := s.engine.Resolve(ctx, s.principalID)
	if err != nil {
		s.transition(SessionUnauthenticated, nil)
		s.engine.logger.Warn("steward: session resolution failed, forcing sign-out",
			slog.String("principal", s.principalID.String()),
			slog.Any("error", err))
		return nil, err
	}

	s.transition(SessionReady, m)
	return m, nil
}

// AwaitMutation blocks until the identity provider's claims reflect the
// expected membership, then installs it as the session's view. The
// session shows loading for the duration. Propagation timeout
// (ErrTimedOut) forces the session out.
func (s *Session) AwaitMutation(ctx context.Context, expected *membership.Membership) error {
	s.transition(SessionLoading, nil)

	if err := s.engine.AwaitConsistency(ctx, s.principalID, expected); err != nil {
		s.transition(SessionUnauthenticated, nil)
		s.engine.logger.Warn("steward: propagation wait failed, forcing sign-out",
			slog.String("principal", s.principalID.String()),
			slog.Any("error", err))
		return err
	}

	s.transition(SessionReady, expected)
	return nil
}

// Authorize evaluates an action with the session's resolved membership
// as the caller. An unready session authorizes as membership-less and is
// denied by default.
func (s *Session) Authorize(ctx context.Context, action Action, targetTenantID id.TenantID) (*Decision, error) {
	return s.engine.Authorize(ctx, &AuthzRequest{
		Membership:     s.Membership(),
		Action:         action,
		TargetTenantID: targetTenantID,
	})
}

// SignOut releases the session locally. Provider-side revocation is the
// member deletion path's job, not ordinary sign-out.
func (s *Session) SignOut() {
	s.transition(SessionUnauthenticated, nil)
}

func (s *Session) transition(state SessionState, m *membership.Membership) {
	s.mu.Lock()
	s.state = state
	s.membership = m
	s.mu.Unlock()
}
