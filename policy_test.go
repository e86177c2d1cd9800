package steward

import (
	"testing"

	"github.com/xraph/steward/id"
	"github.com/xraph/steward/membership"
)

func member(tenantID id.TenantID, principalID id.PrincipalID, role membership.Role) *membership.Membership {
	return &membership.Membership{
		ID:          id.NewMembershipID(),
		TenantID:    tenantID,
		PrincipalID: principalID,
		Role:        role,
	}
}

func TestEvaluateTenantIsolation(t *testing.T) {
	home := id.NewTenantID()
	other := id.NewTenantID()
	owner := member(home, id.NewPrincipalID(), RoleOwner)

	for _, action := range []Action{ActionCreateMember, ActionAssignRole, ActionDeleteMember, ActionBootstrapOwner} {
		d := Evaluate(&AuthzRequest{
			Membership:        owner,
			Action:            action,
			TargetTenantID:    other,
			TargetPrincipalID: id.NewPrincipalID(),
		})
		if d.Allowed {
			t.Fatalf("%s: expected cross-tenant deny even for owner", action)
		}
		if d.Code != CodeDenyCrossTenant {
			t.Fatalf("%s: expected %s, got %s", action, CodeDenyCrossTenant, d.Code)
		}
	}
}

func TestEvaluateBootstrap(t *testing.T) {
	tenantID := id.NewTenantID()

	// No membership, no owner: the very first user wins.
	d := Evaluate(&AuthzRequest{
		Action:         ActionBootstrapOwner,
		TargetTenantID: tenantID,
	})
	if !d.Allowed || d.Code != CodeAllow {
		t.Fatalf("expected allow for first bootstrap, got %s: %s", d.Code, d.Reason)
	}

	// Owner already confirmed: denied regardless of who asks.
	d = Evaluate(&AuthzRequest{
		Action:         ActionBootstrapOwner,
		TargetTenantID: tenantID,
		OwnerExists:    true,
	})
	if d.Allowed || d.Code != CodeDenyOwnerExists {
		t.Fatalf("expected %s, got %s", CodeDenyOwnerExists, d.Code)
	}

	// A pending membership in the same tenant may still bootstrap.
	d = Evaluate(&AuthzRequest{
		Membership:     member(tenantID, id.NewPrincipalID(), RolePending),
		Action:         ActionBootstrapOwner,
		TargetTenantID: tenantID,
	})
	if !d.Allowed {
		t.Fatalf("expected pending member to bootstrap, got %s: %s", d.Code, d.Reason)
	}
}

func TestEvaluateNoMembership(t *testing.T) {
	tenantID := id.NewTenantID()
	for _, action := range []Action{ActionCreateMember, ActionAssignRole, ActionDeleteMember} {
		d := Evaluate(&AuthzRequest{
			Action:            action,
			TargetTenantID:    tenantID,
			TargetPrincipalID: id.NewPrincipalID(),
		})
		if d.Allowed || d.Code != CodeDenyNoMembership {
			t.Fatalf("%s: expected %s, got %s", action, CodeDenyNoMembership, d.Code)
		}
	}
}

func TestEvaluateOwnerOnlyMutations(t *testing.T) {
	tenantID := id.NewTenantID()
	target := id.NewPrincipalID()

	for _, role := range []Role{RoleAssistant, RoleStaff, RolePending} {
		caller := member(tenantID, id.NewPrincipalID(), role)
		for _, action := range []Action{ActionCreateMember, ActionAssignRole, ActionDeleteMember} {
			d := Evaluate(&AuthzRequest{
				Membership:        caller,
				Action:            action,
				TargetTenantID:    tenantID,
				TargetPrincipalID: target,
				TargetRole:        RoleStaff,
			})
			if d.Allowed {
				t.Fatalf("%s as %s: expected deny", action, role)
			}
			if d.Code != CodeDenyNotOwner {
				t.Fatalf("%s as %s: expected %s, got %s", action, role, CodeDenyNotOwner, d.Code)
			}
		}
	}

	owner := member(tenantID, id.NewPrincipalID(), RoleOwner)
	for _, action := range []Action{ActionCreateMember, ActionAssignRole, ActionDeleteMember} {
		d := Evaluate(&AuthzRequest{
			Membership:        owner,
			Action:            action,
			TargetTenantID:    tenantID,
			TargetPrincipalID: target,
			TargetRole:        RoleStaff,
		})
		if !d.Allowed {
			t.Fatalf("%s as owner: expected allow, got %s: %s", action, d.Code, d.Reason)
		}
	}
}

func TestEvaluateSelfDelete(t *testing.T) {
	tenantID := id.NewTenantID()
	principalID := id.NewPrincipalID()
	owner := member(tenantID, principalID, RoleOwner)

	d := Evaluate(&AuthzRequest{
		Membership:        owner,
		Action:            ActionDeleteMember,
		TargetTenantID:    tenantID,
		TargetPrincipalID: principalID,
		TargetRole:        RoleOwner,
	})
	if d.Allowed || d.Code != CodeDenySelfDelete {
		t.Fatalf("expected %s, got %s", CodeDenySelfDelete, d.Code)
	}
}

func TestEvaluateOwnerTarget(t *testing.T) {
	tenantID := id.NewTenantID()
	owner := member(tenantID, id.NewPrincipalID(), RoleOwner)

	d := Evaluate(&AuthzRequest{
		Membership:        owner,
		Action:            ActionDeleteMember,
		TargetTenantID:    tenantID,
		TargetPrincipalID: id.NewPrincipalID(),
		TargetRole:        RoleOwner,
	})
	if d.Allowed || d.Code != CodeDenyOwnerTarget {
		t.Fatalf("expected %s, got %s", CodeDenyOwnerTarget, d.Code)
	}
}

func TestEvaluateDefaultDeny(t *testing.T) {
	tenantID := id.NewTenantID()
	owner := member(tenantID, id.NewPrincipalID(), RoleOwner)

	d := Evaluate(&AuthzRequest{
		Membership:     owner,
		Action:         Action("unknown_action"),
		TargetTenantID: tenantID,
	})
	if d.Allowed || d.Code != CodeDenyDefault {
		t.Fatalf("expected %s, got %s", CodeDenyDefault, d.Code)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	tenantID := id.NewTenantID()
	req := &AuthzRequest{
		Membership:        member(tenantID, id.NewPrincipalID(), RoleStaff),
		Action:            ActionCreateMember,
		TargetTenantID:    tenantID,
		TargetPrincipalID: id.NewPrincipalID(),
	}
	first := Evaluate(req)
	for i := 0; i < 10; i++ {
		d := Evaluate(req)
		if d.Allowed != first.Allowed || d.Code != first.Code {
			t.Fatalf("evaluation not deterministic: %v vs %v", d, first)
		}
	}
}
