package steward

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/steward/id"
	"github.com/xraph/steward/identity"
	"github.com/xraph/steward/membership"
)

func TestResolveImmediate(t *testing.T) {
	eng, s, idp, clock := newTestEngine(t)
	ctx := context.Background()

	principalID := id.NewPrincipalID()
	idp.AddPrincipal(&identity.Principal{ID: principalID, Email: "m@example.com"})
	m := member(id.NewTenantID(), principalID, RoleStaff)
	if err := s.PutMembership(ctx, m); err != nil {
		t.Fatal(err)
	}

	got, err := eng.Resolve(ctx, principalID)
	if err != nil {
		t.Fatal(err)
	}
	if got.PrincipalID.String() != principalID.String() {
		t.Fatalf("resolved wrong principal: %s", got.PrincipalID)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("expected no sleeps on immediate hit, got %d", len(clock.sleeps))
	}
}

func TestResolveRetriesUntilVisible(t *testing.T) {
	eng, s, idp, clock := newTestEngine(t)
	ctx := context.Background()

	principalID := id.NewPrincipalID()
	idp.AddPrincipal(&identity.Principal{ID: principalID, Email: "late@example.com"})
	m := member(id.NewTenantID(), principalID, RoleStaff)

	// The membership lands only after the third retry sleep, as if claim
	// propagation took that long.
	clock.afterSleep = func(n int) {
		if n == 3 {
			if err := s.PutMembership(ctx, m); err != nil {
				t.Error(err)
			}
		}
	}

	got, err := eng.Resolve(ctx, principalID)
	if err != nil {
		t.Fatal(err)
	}
	if got.PrincipalID.String() != principalID.String() {
		t.Fatalf("resolved wrong principal: %s", got.PrincipalID)
	}
	if len(clock.sleeps) != 3 {
		t.Fatalf("expected 3 sleeps, got %d", len(clock.sleeps))
	}
}

func TestResolveExhaustion(t *testing.T) {
	eng, _, idp, clock := newTestEngine(t)

	principalID := id.NewPrincipalID()
	idp.AddPrincipal(&identity.Principal{ID: principalID, Email: "ghost@example.com"})

	_, err := eng.Resolve(context.Background(), principalID)
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}

	// 6 attempts, a sleep between each pair, none after the last.
	if len(clock.sleeps) != 5 {
		t.Fatalf("expected 5 sleeps, got %d", len(clock.sleeps))
	}
	if total := clock.sleptTotal(); total != 10*time.Second {
		t.Fatalf("expected 10s total wait, got %s", total)
	}
}

func TestResolveConfiguredBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResolveMaxAttempts = 2
	cfg.ResolveInterval = 250 * time.Millisecond
	eng, _, idp, clock := newTestEngine(t, WithConfig(cfg))

	principalID := id.NewPrincipalID()
	idp.AddPrincipal(&identity.Principal{ID: principalID, Email: "ghost@example.com"})

	_, err := eng.Resolve(context.Background(), principalID)
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
	if len(clock.sleeps) != 1 {
		t.Fatalf("expected 1 sleep, got %d", len(clock.sleeps))
	}
	if clock.sleeps[0] != 250*time.Millisecond {
		t.Fatalf("expected configured interval, got %s", clock.sleeps[0])
	}
}

func TestResolveContextCanceled(t *testing.T) {
	eng, _, idp, clock := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())

	principalID := id.NewPrincipalID()
	idp.AddPrincipal(&identity.Principal{ID: principalID, Email: "gone@example.com"})

	clock.afterSleep = func(n int) {
		if n == 1 {
			cancel()
		}
	}

	_, err := eng.Resolve(ctx, principalID)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrUnresolved) {
		t.Fatal("cancellation must not be reported as exhaustion")
	}
}

func TestResolveUnknownPrincipal(t *testing.T) {
	// The claims nudge fails for a principal the provider never saw; the
	// resolver reports it as an upstream failure without burning retries.
	eng, _, _, clock := newTestEngine(t)

	_, err := eng.Resolve(context.Background(), id.NewPrincipalID())
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("expected no sleeps, got %d", len(clock.sleeps))
	}
}

func TestResolveCallerAbsence(t *testing.T) {
	eng, s, _, _ := newTestEngine(t)
	ctx := context.Background()

	m, err := eng.resolveCaller(ctx, id.NewPrincipalID())
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Fatal("expected nil membership for unknown caller")
	}

	principalID := id.NewPrincipalID()
	want := member(id.NewTenantID(), principalID, membership.RoleAssistant)
	if err := s.PutMembership(ctx, want); err != nil {
		t.Fatal(err)
	}
	m, err = eng.resolveCaller(ctx, principalID)
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Role != membership.RoleAssistant {
		t.Fatalf("expected assistant membership, got %+v", m)
	}
}
