package steward

import (
	"errors"
	"fmt"

	"github.com/xraph/steward/decisionlog"
	"github.com/xraph/steward/identity"
	"github.com/xraph/steward/intent"
	"github.com/xraph/steward/membership"
	"github.com/xraph/steward/tenant"
)

var (
	// ErrPermissionDenied is returned when the policy engine declines an
	// action. No state is changed.
	ErrPermissionDenied = errors.New("steward: permission denied")

	// ErrUnresolved is returned when the identity resolver exhausts its
	// retry budget without finding a membership. Fatal to the session.
	ErrUnresolved = errors.New("steward: membership unresolved")

	// ErrTimedOut is returned when the claim propagation reconciler
	// exhausts its attempts without observing the expected state. Fatal
	// to the session.
	ErrTimedOut = errors.New("steward: claim propagation timed out")

	// ErrUpstreamUnavailable is returned when an external collaborator
	// call failed for transport or availability reasons. Recoverable via
	// caller-level retry; steward itself does not retry these.
	ErrUpstreamUnavailable = errors.New("steward: upstream unavailable")

	// ErrOwnerExists is returned when bootstrap is attempted on a tenant
	// that already has a confirmed owner.
	ErrOwnerExists = errors.New("steward: tenant owner already exists")

	// ErrMembershipNotFound is returned when a principal has no
	// membership record.
	ErrMembershipNotFound = membership.ErrNotFound

	// ErrTenantNotFound is returned when a tenant cannot be found.
	ErrTenantNotFound = tenant.ErrNotFound

	// ErrTenantOwnerSet is returned when a tenant's set-once owner record
	// is written a second time.
	ErrTenantOwnerSet = tenant.ErrOwnerSet

	// ErrIntentNotFound is returned when a mutation intent cannot be found.
	ErrIntentNotFound = intent.ErrNotFound

	// ErrDecisionLogNotFound is returned when a decision log entry cannot
	// be found.
	ErrDecisionLogNotFound = decisionlog.ErrNotFound

	// ErrPrincipalNotFound is returned when the identity provider has no
	// such principal.
	ErrPrincipalNotFound = identity.ErrPrincipalNotFound

	// ErrSessionRevoked is returned when an operation is attempted on a
	// session whose provider-side credentials were revoked.
	ErrSessionRevoked = errors.New("steward: session revoked")
)

// ValidationError reports a malformed input to a gateway operation.
// Recoverable; the caller must correct the named field.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("steward: invalid %s", e.Field)
	}
	return fmt.Sprintf("steward: invalid %s: %s", e.Field, e.Detail)
}

// PermissionDeniedError carries the full policy decision behind a denial.
// It wraps ErrPermissionDenied so errors.Is works on the sentinel.
type PermissionDeniedError struct {
	Decision *Decision
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("steward: permission denied: %s (%s)", e.Decision.Code, e.Decision.Reason)
}

// Unwrap lets errors.Is match ErrPermissionDenied.
func (e *PermissionDeniedError) Unwrap() error { return ErrPermissionDenied }

// PartialFailureError reports a two-phase mutation that failed after its
// first phase succeeded. Compensated is true when the orphaned principal
// was rolled back; false means manual cleanup is required. Callers must
// surface this distinctly from ordinary failure.
type PartialFailureError struct {
	Stage       string
	Compensated bool
	Err         error
}

func (e *PartialFailureError) Error() string {
	if e.Compensated {
		return fmt.Sprintf("steward: partial failure at %s, rolled back: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("steward: partial failure at %s, manual cleanup required: %v", e.Stage, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *PartialFailureError) Unwrap() error { return e.Err }
