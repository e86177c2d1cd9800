package steward

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/steward/id"
	"github.com/xraph/steward/membership"
)

// reconcileState is the explicit state of one propagation wait.
// Transitions: Polling(n) -> Polling(n+1) | Ok | TimedOut.
type reconcileState int

const (
	statePolling reconcileState = iota
	stateOk
	stateTimedOut
)

// AwaitConsistency blocks until the identity provider's claims bundle for
// the principal matches the expected membership in both role and tenant,
// force-refreshing the credential on every attempt. It owns its own
// attempt budget (default 6 × 2s), counted separately from Resolve's.
//
// Intermediate mismatches are internal and never reported. Exhaustion
// yields ErrTimedOut, which is fatal to the session: the caller must
// force de-authentication so the client re-resolves from scratch.
func (e *Engine) AwaitConsistency(ctx context.Context, principalID id.PrincipalID, expected *membership.Membership) error {
	attempts := e.config.reconcileAttempts()
	interval := e.config.reconcileInterval()

	state := statePolling
	for attempt := 1; state == statePolling; attempt++ {
		claims, err := e.identity.Claims(ctx, principalID, true)
		if err != nil {
			return fmt.Errorf("%w: refresh claims: %v", ErrUpstreamUnavailable, err)
		}

		switch {
		case claims.Matches(expected):
			state = stateOk
		case attempt >= attempts:
			state = stateTimedOut
		default:
			e.logger.Debug("steward: claims not yet consistent",
				slog.String("principal", principalID.String()),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", attempts))
			if err := e.clock.Sleep(ctx, interval); err != nil {
				return err
			}
		}
	}

	if state == stateTimedOut {
		return fmt.Errorf("%w: principal %s after %d attempts", ErrTimedOut, principalID, attempts)
	}
	return nil
}
