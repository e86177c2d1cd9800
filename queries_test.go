package steward

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/steward/decisionlog"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/membership"
)

func TestCreateTenantValidation(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)

	var verr *ValidationError
	_, err := eng.CreateTenant(context.Background(), &CreateTenantRequest{Name: "   "})
	if !errors.As(err, &verr) || verr.Field != "name" {
		t.Fatalf("expected name validation error, got %v", err)
	}
}

func TestListMembers(t *testing.T) {
	eng, _, idp, _ := newTestEngine(t)
	ctx := context.Background()
	tn, owner := seedTenant(t, eng, idp)

	for _, email := range []string{"a@example.com", "b@example.com"} {
		if _, err := eng.CreateMember(ctx, &CreateMemberRequest{
			CallerID: owner.PrincipalID, TenantID: tn.ID, Email: email, Role: RoleStaff,
		}); err != nil {
			t.Fatal(err)
		}
	}

	members, err := eng.ListMembers(ctx, owner.PrincipalID, tn.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 3 {
		t.Fatalf("expected 3 members including the owner, got %d", len(members))
	}

	staff, err := eng.ListMembers(ctx, owner.PrincipalID, tn.ID, &membership.ListFilter{Role: RoleStaff})
	if err != nil {
		t.Fatal(err)
	}
	if len(staff) != 2 {
		t.Fatalf("expected 2 staff, got %d", len(staff))
	}
}

func TestListMembersDeniedOutsideTenant(t *testing.T) {
	eng, _, idp, _ := newTestEngine(t)
	ctx := context.Background()
	tnA, _ := seedTenant(t, eng, idp)
	_, ownerB := seedTenant(t, eng, idp)

	// A member of tenant B cannot read tenant A's directory.
	_, err := eng.ListMembers(ctx, ownerB.PrincipalID, tnA.ID, nil)
	var denied *PermissionDeniedError
	if !errors.As(err, &denied) || denied.Decision.Code != CodeDenyCrossTenant {
		t.Fatalf("expected %s, got %v", CodeDenyCrossTenant, err)
	}

	// An unknown caller holds no read access at all.
	_, err = eng.ListMembers(ctx, id.NewPrincipalID(), tnA.ID, nil)
	if !errors.As(err, &denied) || denied.Decision.Code != CodeDenyNoMembership {
		t.Fatalf("expected %s, got %v", CodeDenyNoMembership, err)
	}
}

func TestListMembersDeniedForPending(t *testing.T) {
	eng, s, idp, _ := newTestEngine(t)
	ctx := context.Background()
	tn, _ := seedTenant(t, eng, idp)

	pendingID := id.NewPrincipalID()
	if err := s.PutMembership(ctx, member(tn.ID, pendingID, RolePending)); err != nil {
		t.Fatal(err)
	}

	_, err := eng.ListMembers(ctx, pendingID, tn.ID, nil)
	var denied *PermissionDeniedError
	if !errors.As(err, &denied) || denied.Decision.Code != CodeDenyDefault {
		t.Fatalf("expected %s, got %v", CodeDenyDefault, err)
	}
}

func TestGetMemberHidesOtherTenants(t *testing.T) {
	eng, _, idp, _ := newTestEngine(t)
	ctx := context.Background()
	tnA, ownerA := seedTenant(t, eng, idp)
	tnB, ownerB := seedTenant(t, eng, idp)

	res, err := eng.CreateMember(ctx, &CreateMemberRequest{
		CallerID: ownerB.PrincipalID, TenantID: tnB.ID, Email: "b@example.com", Role: RoleStaff,
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = eng.GetMember(ctx, ownerA.PrincipalID, tnA.ID, res.Principal.ID)
	if !errors.Is(err, ErrMembershipNotFound) {
		t.Fatalf("expected ErrMembershipNotFound, got %v", err)
	}
}

func TestDecisionLogsOwnerOnly(t *testing.T) {
	eng, _, idp, _ := newTestEngine(t)
	ctx := context.Background()
	tn, owner := seedTenant(t, eng, idp)

	res, err := eng.CreateMember(ctx, &CreateMemberRequest{
		CallerID: owner.PrincipalID, TenantID: tn.ID, Email: "staff@example.com", Role: RoleStaff,
	})
	if err != nil {
		t.Fatal(err)
	}

	entries, err := eng.DecisionLogs(ctx, owner.PrincipalID, tn.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Fatal("expected the bootstrap and create decisions in the audit trail")
	}

	_, err = eng.DecisionLogs(ctx, res.Principal.ID, tn.ID, nil)
	var denied *PermissionDeniedError
	if !errors.As(err, &denied) || denied.Decision.Code != CodeDenyNotOwner {
		t.Fatalf("expected %s, got %v", CodeDenyNotOwner, err)
	}
}

func TestDecisionLogsFilterByAllowed(t *testing.T) {
	eng, _, idp, _ := newTestEngine(t)
	ctx := context.Background()
	tn, owner := seedTenant(t, eng, idp)

	// Produce one denied decision next to the allowed bootstrap.
	_, err := eng.BootstrapOwner(ctx, &BootstrapOwnerRequest{
		TenantID:    tn.ID,
		PrincipalID: id.NewPrincipalID(),
	})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	allowedOnly := true
	entries, err := eng.DecisionLogs(ctx, owner.PrincipalID, tn.ID, &decisionlog.QueryFilter{Allowed: &allowedOnly})
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if !e.Allowed {
			t.Fatalf("expected only allowed entries, got %+v", e)
		}
	}
	if len(entries) == 0 {
		t.Fatal("expected at least the bootstrap allow entry")
	}
}
