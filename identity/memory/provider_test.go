package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/steward/id"
	"github.com/xraph/steward/identity"
)

func TestPrincipalLifecycle(t *testing.T) {
	p := New()
	ctx := context.Background()

	pr, err := p.CreatePrincipal(ctx, "m@example.com", "M")
	if err != nil {
		t.Fatal(err)
	}
	got, err := p.GetPrincipal(ctx, pr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Email != "m@example.com" {
		t.Fatalf("expected email round-trip, got %q", got.Email)
	}

	if err := p.DeletePrincipal(ctx, pr.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := p.GetPrincipal(ctx, pr.ID); !errors.Is(err, identity.ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound, got %v", err)
	}
	if err := p.DeletePrincipal(ctx, pr.ID); !errors.Is(err, identity.ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound on double delete, got %v", err)
	}
}

func TestClaimsPropagationLag(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := New(
		WithPropagationLag(3*time.Second),
		WithNowFunc(func() time.Time { return now }),
	)
	ctx := context.Background()

	pr, err := p.CreatePrincipal(ctx, "m@example.com", "M")
	if err != nil {
		t.Fatal(err)
	}
	want := identity.Claims{Role: "staff", TenantID: id.NewTenantID()}
	if err := p.SetClaims(ctx, pr.ID, want); err != nil {
		t.Fatal(err)
	}

	// Inside the lag window even a force read sees nothing.
	c, err := p.Claims(ctx, pr.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if c.Resolved() {
		t.Fatalf("expected zero claims during the lag window, got %+v", c)
	}

	now = now.Add(3 * time.Second)
	c, err = p.Claims(ctx, pr.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if c.Role != want.Role || c.TenantID.String() != want.TenantID.String() {
		t.Fatalf("expected committed claims after the lag, got %+v", c)
	}
}

func TestClaimsSnapshotWithoutForce(t *testing.T) {
	p := New()
	ctx := context.Background()

	pr, err := p.CreatePrincipal(ctx, "m@example.com", "M")
	if err != nil {
		t.Fatal(err)
	}
	want := identity.Claims{Role: "assistant", TenantID: id.NewTenantID()}
	if err := p.SetClaims(ctx, pr.ID, want); err != nil {
		t.Fatal(err)
	}

	// A cached read reflects only what a force refresh has installed.
	c, err := p.Claims(ctx, pr.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if c.Resolved() {
		t.Fatalf("expected empty snapshot before any force refresh, got %+v", c)
	}

	if _, err := p.Claims(ctx, pr.ID, true); err != nil {
		t.Fatal(err)
	}
	c, err = p.Claims(ctx, pr.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if c.Role != want.Role || c.TenantID.String() != want.TenantID.String() {
		t.Fatalf("expected snapshot installed by force refresh, got %+v", c)
	}
}

func TestRevokeSessionsClearsSnapshot(t *testing.T) {
	p := New()
	ctx := context.Background()

	pr, err := p.CreatePrincipal(ctx, "m@example.com", "M")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.SetClaims(ctx, pr.ID, identity.Claims{Role: "staff", TenantID: id.NewTenantID()}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Claims(ctx, pr.ID, true); err != nil {
		t.Fatal(err)
	}

	if err := p.RevokeSessions(ctx, pr.ID); err != nil {
		t.Fatal(err)
	}
	if n := p.Revocations(pr.ID); n != 1 {
		t.Fatalf("expected 1 revocation, got %d", n)
	}

	c, err := p.Claims(ctx, pr.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if c.Resolved() {
		t.Fatalf("expected snapshot cleared on revocation, got %+v", c)
	}
}

func TestPasswordResetLinksAreDistinct(t *testing.T) {
	p := New()
	ctx := context.Background()

	a, err := p.PasswordResetLink(ctx, "m@example.com")
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.PasswordResetLink(ctx, "m@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if a == "" || a == b {
		t.Fatalf("expected distinct single-use links, got %q and %q", a, b)
	}
}
