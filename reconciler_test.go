package steward

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/steward/id"
	"github.com/xraph/steward/identity"
	idmem "github.com/xraph/steward/identity/memory"
	"github.com/xraph/steward/store/memory"
)

// newLaggedEngine builds an engine whose identity provider delays claim
// visibility by lag, measured on the fake clock.
func newLaggedEngine(t *testing.T, lag time.Duration) (*Engine, *idmem.Provider, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	idp := idmem.New(
		idmem.WithPropagationLag(lag),
		idmem.WithNowFunc(clock.Now),
	)
	eng, err := NewEngine(
		WithStore(memory.New()),
		WithIdentity(idp),
		WithClock(clock),
	)
	if err != nil {
		t.Fatal(err)
	}
	return eng, idp, clock
}

func TestAwaitConsistencyImmediate(t *testing.T) {
	eng, idp, clock := newLaggedEngine(t, 0)
	ctx := context.Background()

	principalID := id.NewPrincipalID()
	idp.AddPrincipal(&identity.Principal{ID: principalID, Email: "m@example.com"})
	expected := member(id.NewTenantID(), principalID, RoleStaff)
	if err := idp.SetClaims(ctx, principalID, identity.Claims{Role: expected.Role, TenantID: expected.TenantID}); err != nil {
		t.Fatal(err)
	}

	if err := eng.AwaitConsistency(ctx, principalID, expected); err != nil {
		t.Fatal(err)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("expected no sleeps, got %d", len(clock.sleeps))
	}
}

func TestAwaitConsistencyConverges(t *testing.T) {
	// A 3s lag against a 2s poll interval: the claims become visible
	// between the second and third attempt.
	eng, idp, clock := newLaggedEngine(t, 3*time.Second)
	ctx := context.Background()

	principalID := id.NewPrincipalID()
	idp.AddPrincipal(&identity.Principal{ID: principalID, Email: "m@example.com"})
	expected := member(id.NewTenantID(), principalID, RoleAssistant)
	if err := idp.SetClaims(ctx, principalID, identity.Claims{Role: expected.Role, TenantID: expected.TenantID}); err != nil {
		t.Fatal(err)
	}

	if err := eng.AwaitConsistency(ctx, principalID, expected); err != nil {
		t.Fatal(err)
	}
	if len(clock.sleeps) != 2 {
		t.Fatalf("expected 2 sleeps before convergence, got %d", len(clock.sleeps))
	}
}

func TestAwaitConsistencyTimeout(t *testing.T) {
	// A lag beyond the whole attempt budget: 6 attempts with 5 sleeps of
	// 2s advance the clock by only 10s.
	eng, idp, clock := newLaggedEngine(t, time.Minute)
	ctx := context.Background()

	principalID := id.NewPrincipalID()
	idp.AddPrincipal(&identity.Principal{ID: principalID, Email: "m@example.com"})
	expected := member(id.NewTenantID(), principalID, RoleStaff)
	if err := idp.SetClaims(ctx, principalID, identity.Claims{Role: expected.Role, TenantID: expected.TenantID}); err != nil {
		t.Fatal(err)
	}

	err := eng.AwaitConsistency(ctx, principalID, expected)
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}
	if len(clock.sleeps) != 5 {
		t.Fatalf("expected 5 sleeps, got %d", len(clock.sleeps))
	}
}

func TestAwaitConsistencyStaleClaims(t *testing.T) {
	// Visible claims carrying the old role never satisfy the wait for the
	// new one.
	eng, idp, _ := newLaggedEngine(t, 0)
	ctx := context.Background()

	principalID := id.NewPrincipalID()
	idp.AddPrincipal(&identity.Principal{ID: principalID, Email: "m@example.com"})
	tenantID := id.NewTenantID()
	if err := idp.SetClaims(ctx, principalID, identity.Claims{Role: RoleStaff, TenantID: tenantID}); err != nil {
		t.Fatal(err)
	}

	err := eng.AwaitConsistency(ctx, principalID, member(tenantID, principalID, RoleAssistant))
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}
}

func TestAwaitConsistencyUnknownPrincipal(t *testing.T) {
	eng, _, _ := newLaggedEngine(t, 0)

	principalID := id.NewPrincipalID()
	err := eng.AwaitConsistency(context.Background(), principalID, member(id.NewTenantID(), principalID, RoleStaff))
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}
