package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/steward/decisionlog"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/intent"
	"github.com/xraph/steward/membership"
	"github.com/xraph/steward/store"
	"github.com/xraph/steward/tenant"
)

// Compile-time check that *Store implements store.Store.
var _ store.Store = (*Store)(nil)

func TestMembershipLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	tid := id.NewTenantID()
	pid := id.NewPrincipalID()
	m := &membership.Membership{
		ID:          id.NewMembershipID(),
		TenantID:    tid,
		PrincipalID: pid,
		Role:        membership.RoleStaff,
		Name:        "Dana",
		Email:       "dana@example.com",
	}

	if err := s.PutMembership(ctx, m); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetMembershipByPrincipal(ctx, pid)
	if err != nil {
		t.Fatal(err)
	}
	if got.Role != membership.RoleStaff {
		t.Fatalf("expected staff, got %s", got.Role)
	}

	// A second put for the same principal replaces the binding.
	m.Role = membership.RoleAssistant
	if err := s.PutMembership(ctx, m); err != nil {
		t.Fatal(err)
	}
	got, err = s.GetMembershipByPrincipal(ctx, pid)
	if err != nil {
		t.Fatal(err)
	}
	if got.Role != membership.RoleAssistant {
		t.Fatalf("expected assistant after replace, got %s", got.Role)
	}
	count, err := s.CountMemberships(ctx, &membership.ListFilter{TenantID: tid})
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 membership after replace, got %d", count)
	}

	if err := s.DeleteMembershipByPrincipal(ctx, pid); err != nil {
		t.Fatal(err)
	}
	_, err = s.GetMembershipByPrincipal(ctx, pid)
	if !errors.Is(err, membership.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOwnerExists(t *testing.T) {
	ctx := context.Background()
	s := New()

	tid := id.NewTenantID()
	other := id.NewTenantID()

	exists, err := s.OwnerExists(ctx, tid)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("empty tenant should have no owner")
	}

	if err := s.PutMembership(ctx, &membership.Membership{
		ID:          id.NewMembershipID(),
		TenantID:    tid,
		PrincipalID: id.NewPrincipalID(),
		Role:        membership.RoleOwner,
	}); err != nil {
		t.Fatal(err)
	}

	exists, err = s.OwnerExists(ctx, tid)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("owner membership not detected")
	}

	// Isolation: the owner of one tenant is invisible to another.
	exists, err = s.OwnerExists(ctx, other)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("owner leaked across tenants")
	}
}

func TestListMembershipsFilter(t *testing.T) {
	ctx := context.Background()
	s := New()

	tid := id.NewTenantID()
	other := id.NewTenantID()
	for i, role := range []membership.Role{membership.RoleOwner, membership.RoleStaff, membership.RoleStaff} {
		if err := s.PutMembership(ctx, &membership.Membership{
			ID:          id.NewMembershipID(),
			TenantID:    tid,
			PrincipalID: id.NewPrincipalID(),
			Role:        role,
			Name:        []string{"Ana", "Ben", "Cleo"}[i],
		}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.PutMembership(ctx, &membership.Membership{
		ID:          id.NewMembershipID(),
		TenantID:    other,
		PrincipalID: id.NewPrincipalID(),
		Role:        membership.RoleStaff,
	}); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListMemberships(ctx, &membership.ListFilter{TenantID: tid})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 members, got %d", len(list))
	}

	list, err = s.ListMemberships(ctx, &membership.ListFilter{TenantID: tid, Role: membership.RoleStaff})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 staff, got %d", len(list))
	}

	list, err = s.ListMemberships(ctx, &membership.ListFilter{TenantID: tid, Search: "cleo"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 search hit, got %d", len(list))
	}
}

func TestTenantOwnerSetOnce(t *testing.T) {
	ctx := context.Background()
	s := New()

	tn := &tenant.Tenant{ID: id.NewTenantID(), Name: "corner-bistro"}
	if err := s.CreateTenant(ctx, tn); err != nil {
		t.Fatal(err)
	}

	owner := id.NewPrincipalID()
	if err := s.SetTenantOwner(ctx, tn.ID, owner); err != nil {
		t.Fatal(err)
	}

	// Idempotent for the same principal.
	if err := s.SetTenantOwner(ctx, tn.ID, owner); err != nil {
		t.Fatalf("same-owner set should be idempotent: %v", err)
	}

	// Rejected for a different principal.
	err := s.SetTenantOwner(ctx, tn.ID, id.NewPrincipalID())
	if !errors.Is(err, tenant.ErrOwnerSet) {
		t.Fatalf("expected ErrOwnerSet, got %v", err)
	}

	got, err := s.GetTenant(ctx, tn.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.OwnerPrincipalID.String() != owner.String() {
		t.Fatal("owner record changed after rejected overwrite")
	}
}

func TestIntentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	tid := id.NewTenantID()
	in := &intent.Intent{
		ID:        id.NewIntentID(),
		Kind:      intent.KindCreateMember,
		TenantID:  tid,
		Stage:     intent.StagePending,
		CreatedAt: time.Now().Add(-time.Hour),
	}
	if err := s.CreateIntent(ctx, in); err != nil {
		t.Fatal(err)
	}

	unresolved, err := s.ListIntents(ctx, &intent.ListFilter{Unresolved: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(unresolved) != 1 {
		t.Fatalf("expected 1 unresolved intent, got %d", len(unresolved))
	}

	now := time.Now()
	in.Stage = intent.StageCompleted
	in.ResolvedAt = &now
	if err := s.UpdateIntent(ctx, in); err != nil {
		t.Fatal(err)
	}

	unresolved, err = s.ListIntents(ctx, &intent.ListFilter{Unresolved: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(unresolved) != 0 {
		t.Fatalf("resolved intent still listed as unresolved")
	}

	purged, err := s.PurgeResolvedIntents(ctx, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged intent, got %d", purged)
	}
	_, err = s.GetIntent(ctx, in.ID)
	if !errors.Is(err, intent.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after purge, got %v", err)
	}
}

func TestDecisionLogQueries(t *testing.T) {
	ctx := context.Background()
	s := New()

	tid := id.NewTenantID()
	allowed := &decisionlog.Entry{
		ID:        id.NewDecisionLogID(),
		TenantID:  tid,
		Action:    "create_member",
		Allowed:   true,
		Decision:  "allow",
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	denied := &decisionlog.Entry{
		ID:        id.NewDecisionLogID(),
		TenantID:  tid,
		Action:    "delete_member",
		Allowed:   false,
		Decision:  "deny_not_owner",
		CreatedAt: time.Now(),
	}
	for _, e := range []*decisionlog.Entry{allowed, denied} {
		if err := s.CreateDecisionLog(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	f := false
	list, err := s.ListDecisionLogs(ctx, &decisionlog.QueryFilter{TenantID: tid, Allowed: &f})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Decision != "deny_not_owner" {
		t.Fatalf("denied-only filter returned %d entries", len(list))
	}

	purged, err := s.PurgeDecisionLogs(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged entry, got %d", purged)
	}

	if err := s.DeleteDecisionLogsByTenant(ctx, tid); err != nil {
		t.Fatal(err)
	}
	count, err := s.CountDecisionLogs(ctx, &decisionlog.QueryFilter{TenantID: tid})
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected empty log after tenant delete, got %d", count)
	}
}
