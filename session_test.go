package steward

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/steward/id"
	"github.com/xraph/steward/identity"
)

func TestSessionBegin(t *testing.T) {
	eng, s, idp, _ := newTestEngine(t)
	ctx := context.Background()

	principalID := id.NewPrincipalID()
	idp.AddPrincipal(&identity.Principal{ID: principalID, Email: "m@example.com"})
	m := member(id.NewTenantID(), principalID, RoleStaff)
	if err := s.PutMembership(ctx, m); err != nil {
		t.Fatal(err)
	}

	sess := eng.NewSession(principalID)
	if sess.State() != SessionUninitialized {
		t.Fatalf("expected uninitialized, got %s", sess.State())
	}
	if sess.Membership() != nil {
		t.Fatal("an unready session must expose no membership")
	}

	got, err := sess.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sess.State() != SessionReady {
		t.Fatalf("expected ready, got %s", sess.State())
	}
	if got.PrincipalID.String() != principalID.String() {
		t.Fatalf("resolved wrong principal: %s", got.PrincipalID)
	}
}

func TestSessionBeginFailsClosed(t *testing.T) {
	eng, _, idp, _ := newTestEngine(t)

	// Known principal, no membership ever: exhaustion forces the session
	// out instead of leaving it in guest limbo.
	principalID := id.NewPrincipalID()
	idp.AddPrincipal(&identity.Principal{ID: principalID, Email: "ghost@example.com"})

	sess := eng.NewSession(principalID)
	_, err := sess.Begin(context.Background())
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
	if sess.State() != SessionUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", sess.State())
	}
	if sess.Membership() != nil {
		t.Fatal("a forced-out session must expose no membership")
	}
}

func TestSessionAwaitMutation(t *testing.T) {
	eng, _, idp, _ := newTestEngine(t)
	ctx := context.Background()
	tn, owner := seedTenant(t, eng, idp)

	res, err := eng.CreateMember(ctx, &CreateMemberRequest{
		CallerID: owner.PrincipalID, TenantID: tn.ID, Email: "staff@example.com", Role: RoleStaff,
	})
	if err != nil {
		t.Fatal(err)
	}
	sess := eng.NewSession(res.Principal.ID)
	if _, err := sess.Begin(ctx); err != nil {
		t.Fatal(err)
	}

	updated, err := eng.AssignRole(ctx, &AssignRoleRequest{
		CallerID:          owner.PrincipalID,
		TenantID:          tn.ID,
		TargetPrincipalID: res.Principal.ID,
		Role:              RoleAssistant,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := sess.AwaitMutation(ctx, updated); err != nil {
		t.Fatal(err)
	}
	if sess.State() != SessionReady {
		t.Fatalf("expected ready, got %s", sess.State())
	}
	if got := sess.Membership(); got == nil || got.Role != RoleAssistant {
		t.Fatalf("expected assistant view installed, got %+v", got)
	}
}

func TestSessionAwaitMutationTimeout(t *testing.T) {
	eng, idp, _ := newLaggedEngine(t, time.Minute)
	ctx := context.Background()

	principalID := id.NewPrincipalID()
	idp.AddPrincipal(&identity.Principal{ID: principalID, Email: "m@example.com"})
	expected := member(id.NewTenantID(), principalID, RoleAssistant)
	if err := idp.SetClaims(ctx, principalID, identity.Claims{Role: expected.Role, TenantID: expected.TenantID}); err != nil {
		t.Fatal(err)
	}

	sess := eng.NewSession(principalID)
	err := sess.AwaitMutation(ctx, expected)
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}
	if sess.State() != SessionUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", sess.State())
	}
}

func TestSessionAuthorize(t *testing.T) {
	eng, _, idp, _ := newTestEngine(t)
	ctx := context.Background()
	tn, owner := seedTenant(t, eng, idp)

	sess := eng.NewSession(owner.PrincipalID)
	if _, err := sess.Begin(ctx); err != nil {
		t.Fatal(err)
	}

	d, err := sess.Authorize(ctx, ActionCreateMember, tn.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Fatalf("expected allow for owner session, got %s", d.Code)
	}

	// Signed out, the same check authorizes as membership-less.
	sess.SignOut()
	if sess.State() != SessionUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", sess.State())
	}
	d, err = sess.Authorize(ctx, ActionCreateMember, tn.ID)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed || d.Code != CodeDenyNoMembership {
		t.Fatalf("expected %s, got %s", CodeDenyNoMembership, d.Code)
	}
}
