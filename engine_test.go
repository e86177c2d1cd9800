package steward

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/steward/decisionlog"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/identity"
	idmem "github.com/xraph/steward/identity/memory"
	"github.com/xraph/steward/membership"
	"github.com/xraph/steward/store/memory"
	"github.com/xraph/steward/tenant"
)

// fakeClock advances instantly on Sleep so retry loops run without real
// delays. afterSleep, when set, runs after each sleep with the count of
// sleeps so far.
type fakeClock struct {
	mu         sync.Mutex
	now        time.Time
	sleeps     []time.Duration
	afterSleep func(n int)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	n := len(c.sleeps)
	hook := c.afterSleep
	c.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return nil
}

func (c *fakeClock) sleptTotal() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total time.Duration
	for _, d := range c.sleeps {
		total += d
	}
	return total
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *memory.Store, *idmem.Provider, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	s := memory.New()
	idp := idmem.New(idmem.WithNowFunc(clock.Now))
	all := append([]Option{
		WithStore(s),
		WithIdentity(idp),
		WithClock(clock),
	}, opts...)
	eng, err := NewEngine(all...)
	if err != nil {
		t.Fatal(err)
	}
	return eng, s, idp, clock
}

// seedTenant creates a tenant and a confirmed owner for it.
func seedTenant(t *testing.T, eng *Engine, idp *idmem.Provider) (*tenant.Tenant, *membership.Membership) {
	t.Helper()
	ctx := context.Background()

	tn, err := eng.CreateTenant(ctx, &CreateTenantRequest{Name: "corner-bistro"})
	if err != nil {
		t.Fatal(err)
	}

	ownerID := id.NewPrincipalID()
	idp.AddPrincipal(&identity.Principal{ID: ownerID, Email: "owner@example.com", Name: "Owner"})
	m, err := eng.BootstrapOwner(ctx, &BootstrapOwnerRequest{
		TenantID:    tn.ID,
		PrincipalID: ownerID,
		Name:        "Owner",
		Email:       "owner@example.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	return tn, m
}

func TestNewEngineRequiresStore(t *testing.T) {
	_, err := NewEngine(WithIdentity(idmem.New()))
	if err == nil {
		t.Fatal("expected error when store is nil")
	}
}

func TestNewEngineRequiresIdentity(t *testing.T) {
	_, err := NewEngine(WithStore(memory.New()))
	if err == nil {
		t.Fatal("expected error when identity provider is nil")
	}
}

func TestAuthorizeAppendsDecisionLog(t *testing.T) {
	eng, s, _, _ := newTestEngine(t)
	ctx := context.Background()
	tenantID := id.NewTenantID()

	d, err := eng.Authorize(ctx, &AuthzRequest{
		Action:         ActionCreateMember,
		TargetTenantID: tenantID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Fatal("expected deny without membership")
	}

	entries, err := s.ListDecisionLogs(ctx, &decisionlog.QueryFilter{TenantID: tenantID})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 decision log entry, got %d", len(entries))
	}
	if entries[0].Allowed {
		t.Fatal("expected denied entry")
	}
	if entries[0].Decision != string(CodeDenyNoMembership) {
		t.Fatalf("expected %s, got %s", CodeDenyNoMembership, entries[0].Decision)
	}
}

func TestAuthorizeDisabledDecisionLog(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DisableDecisionLog = true
	eng, s, _, _ := newTestEngine(t, WithConfig(cfg))
	ctx := context.Background()
	tenantID := id.NewTenantID()

	if _, err := eng.Authorize(ctx, &AuthzRequest{
		Action:         ActionCreateMember,
		TargetTenantID: tenantID,
	}); err != nil {
		t.Fatal(err)
	}

	count, err := s.CountDecisionLogs(ctx, &decisionlog.QueryFilter{TenantID: tenantID})
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected no decision log entries, got %d", count)
	}
}

func TestEnforceDenied(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)

	err := eng.Enforce(context.Background(), &AuthzRequest{
		Action:         ActionCreateMember,
		TargetTenantID: id.NewTenantID(),
	})
	if err == nil {
		t.Fatal("expected error for denied check")
	}
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	var denied *PermissionDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected PermissionDeniedError, got %T", err)
	}
	if denied.Decision.Code != CodeDenyNoMembership {
		t.Fatalf("expected %s, got %s", CodeDenyNoMembership, denied.Decision.Code)
	}
}

func TestAuthorizeScopeFallback(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	tenantID := id.NewTenantID()
	caller := member(tenantID, id.NewPrincipalID(), RoleOwner)

	// No explicit target tenant: the ambient context scope applies.
	ctx := WithTenant(context.Background(), tenantID)
	d, err := eng.Authorize(ctx, &AuthzRequest{
		Membership: caller,
		Action:     ActionCreateMember,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Fatalf("expected allow within scoped tenant, got %s: %s", d.Code, d.Reason)
	}

	// A foreign ambient scope is still cross-tenant.
	ctx = WithTenant(context.Background(), id.NewTenantID())
	d, err = eng.Authorize(ctx, &AuthzRequest{
		Membership: caller,
		Action:     ActionCreateMember,
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed || d.Code != CodeDenyCrossTenant {
		t.Fatalf("expected %s, got %s", CodeDenyCrossTenant, d.Code)
	}
}

func TestAuthorizeEvalTime(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)

	d, err := eng.Authorize(context.Background(), &AuthzRequest{
		Action:         ActionBootstrapOwner,
		TargetTenantID: id.NewTenantID(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.EvalTimeNs < 0 {
		t.Fatalf("expected non-negative eval time, got %d", d.EvalTimeNs)
	}
}
