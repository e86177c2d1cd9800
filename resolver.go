package steward

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/steward/id"
	"github.com/xraph/steward/membership"
)

// Resolve establishes the caller's membership, tolerating the propagation
// delay that follows a fresh signup or role mutation: when no membership
// is visible yet, it polls the store at a fixed interval up to the
// configured attempt budget (default 6 × 2s).
//
// Retries are sequential, read-only, and cover only the "not yet visible"
// condition; transport failures surface immediately as
// ErrUpstreamUnavailable. Exhaustion yields ErrUnresolved, which is fatal
// to the session: the caller must force de-authentication rather than
// continue with ambiguous privilege.
func (e *Engine) Resolve(ctx context.Context, principalID id.PrincipalID) (*membership.Membership, error) {
	attempts := e.config.resolveAttempts()
	interval := e.config.resolveInterval()

	for attempt := 1; attempt <= attempts; attempt++ {
		m, err := e.store.GetMembershipByPrincipal(ctx, principalID)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, ErrMembershipNotFound) {
			return nil, fmt.Errorf("%w: resolve membership: %v", ErrUpstreamUnavailable, err)
		}

		// Nudge the credential cache so the next read sees freshly
		// propagated claims.
		if _, err := e.identity.Claims(ctx, principalID, true); err != nil {
			return nil, fmt.Errorf("%w: refresh claims: %v", ErrUpstreamUnavailable, err)
		}

		e.logger.Debug("steward: membership not yet visible",
			slog.String("principal", principalID.String()),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts))

		if attempt == attempts {
			break
		}
		if err := e.clock.Sleep(ctx, interval); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: principal %s after %d attempts", ErrUnresolved, principalID, attempts)
}

// resolveCaller is the gateway's single-read resolution: an active
// session is expected to already have a visible membership, so there is
// no retry here. Absence is returned as-is for the policy layer to deny.
func (e *Engine) resolveCaller(ctx context.Context, principalID id.PrincipalID) (*membership.Membership, error) {
	m, err := e.store.GetMembershipByPrincipal(ctx, principalID)
	if err == nil {
		return m, nil
	}
	if errors.Is(err, ErrMembershipNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("%w: resolve caller: %v", ErrUpstreamUnavailable, err)
}
