// Package memory provides an in-memory implementation of the Steward
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xraph/steward/decisionlog"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/intent"
	"github.com/xraph/steward/membership"
	"github.com/xraph/steward/tenant"
)

// Compile-time interface checks.
var (
	_ membership.Store  = (*Store)(nil)
	_ tenant.Store      = (*Store)(nil)
	_ intent.Store      = (*Store)(nil)
	_ decisionlog.Store = (*Store)(nil)
)

// Store is a thread-safe in-memory store for all Steward entities.
// Memberships are keyed by principal: a principal holds at most one
// binding, and a write replaces the previous one.
type Store struct {
	mu sync.RWMutex

	memberships  map[string]*membership.Membership // principalID -> binding
	tenants      map[string]*tenant.Tenant
	intents      map[string]*intent.Intent
	decisionLogs map[string]*decisionlog.Entry
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		memberships:  make(map[string]*membership.Membership),
		tenants:      make(map[string]*tenant.Tenant),
		intents:      make(map[string]*intent.Intent),
		decisionLogs: make(map[string]*decisionlog.Entry),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Membership Store
// ──────────────────────────────────────────────────

func (s *Store) PutMembership(_ context.Context, m *membership.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[m.PrincipalID.String()] = copyMembership(m)
	return nil
}

func (s *Store) GetMembershipByPrincipal(_ context.Context, principalID id.PrincipalID) (*membership.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memberships[principalID.String()]
	if !ok {
		return nil, fmt.Errorf("principal %s: %w", principalID, membership.ErrNotFound)
	}
	return copyMembership(m), nil
}

func (s *Store) DeleteMembershipByPrincipal(_ context.Context, principalID id.PrincipalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memberships, principalID.String())
	return nil
}

func (s *Store) ListMemberships(_ context.Context, filter *membership.ListFilter) ([]*membership.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*membership.Membership, 0, len(s.memberships))
	for _, m := range s.memberships {
		if filter != nil {
			if !filter.TenantID.IsNil() && m.TenantID.String() != filter.TenantID.String() {
				continue
			}
			if !filter.PrincipalID.IsNil() && m.PrincipalID.String() != filter.PrincipalID.String() {
				continue
			}
			if filter.Role != "" && m.Role != filter.Role {
				continue
			}
			if filter.Search != "" && !matchesSearch(m, filter.Search) {
				continue
			}
		}
		result = append(result, copyMembership(m))
	}
	return applyPagination(result, paginationOpts(filter)), nil
}

func (s *Store) CountMemberships(ctx context.Context, filter *membership.ListFilter) (int64, error) {
	list, err := s.ListMemberships(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) OwnerExists(_ context.Context, tenantID id.TenantID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.memberships {
		if m.TenantID.String() == tenantID.String() && m.Role == membership.RoleOwner {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) DeleteMembershipsByTenant(_ context.Context, tenantID id.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, m := range s.memberships {
		if m.TenantID.String() == tenantID.String() {
			delete(s.memberships, k)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Tenant Store
// ──────────────────────────────────────────────────

func (s *Store) CreateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID.String()] = copyTenant(t)
	return nil
}

func (s *Store) GetTenant(_ context.Context, tenantID id.TenantID) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[tenantID.String()]
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, tenant.ErrNotFound)
	}
	return copyTenant(t), nil
}

func (s *Store) SetTenantOwner(_ context.Context, tenantID id.TenantID, ownerID id.PrincipalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tenantID.String()]
	if !ok {
		return fmt.Errorf("tenant %s: %w", tenantID, tenant.ErrNotFound)
	}
	if !t.OwnerPrincipalID.IsNil() && t.OwnerPrincipalID.String() != ownerID.String() {
		return fmt.Errorf("tenant %s: %w", tenantID, tenant.ErrOwnerSet)
	}
	t.OwnerPrincipalID = ownerID
	t.UpdatedAt = time.Now()
	return nil
}

func (s *Store) UpdateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[t.ID.String()]; !ok {
		return fmt.Errorf("tenant %s: %w", t.ID, tenant.ErrNotFound)
	}
	s.tenants[t.ID.String()] = copyTenant(t)
	return nil
}

func (s *Store) DeleteTenant(_ context.Context, tenantID id.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tenants, tenantID.String())
	return nil
}

func (s *Store) ListTenants(_ context.Context, filter *tenant.ListFilter) ([]*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*tenant.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		if filter != nil && filter.Search != "" &&
			!strings.Contains(strings.ToLower(t.Name), strings.ToLower(filter.Search)) {
			continue
		}
		result = append(result, copyTenant(t))
	}
	p := pagOpts{}
	if filter != nil {
		p = pagOpts{limit: filter.Limit, offset: filter.Offset}
	}
	return applyPagination(result, p), nil
}

func (s *Store) CountTenants(ctx context.Context, filter *tenant.ListFilter) (int64, error) {
	list, err := s.ListTenants(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

// ──────────────────────────────────────────────────
// Intent Store
// ──────────────────────────────────────────────────

func (s *Store) CreateIntent(_ context.Context, in *intent.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[in.ID.String()] = copyIntent(in)
	return nil
}

func (s *Store) UpdateIntent(_ context.Context, in *intent.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.intents[in.ID.String()]; !ok {
		return fmt.Errorf("intent %s: %w", in.ID, intent.ErrNotFound)
	}
	s.intents[in.ID.String()] = copyIntent(in)
	return nil
}

func (s *Store) GetIntent(_ context.Context, intentID id.IntentID) (*intent.Intent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.intents[intentID.String()]
	if !ok {
		return nil, fmt.Errorf("intent %s: %w", intentID, intent.ErrNotFound)
	}
	return copyIntent(in), nil
}

func (s *Store) ListIntents(_ context.Context, filter *intent.ListFilter) ([]*intent.Intent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*intent.Intent, 0, len(s.intents))
	for _, in := range s.intents {
		if filter != nil {
			if !filter.TenantID.IsNil() && in.TenantID.String() != filter.TenantID.String() {
				continue
			}
			if filter.Kind != "" && in.Kind != filter.Kind {
				continue
			}
			if filter.Stage != "" && in.Stage != filter.Stage {
				continue
			}
			if filter.Unresolved && in.Stage.Resolved() {
				continue
			}
		}
		result = append(result, copyIntent(in))
	}
	p := pagOpts{}
	if filter != nil {
		p = pagOpts{limit: filter.Limit, offset: filter.Offset}
	}
	return applyPagination(result, p), nil
}

func (s *Store) PurgeResolvedIntents(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for k, in := range s.intents {
		if in.Stage.Resolved() && in.CreatedAt.Before(before) {
			delete(s.intents, k)
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// DecisionLog Store
// ──────────────────────────────────────────────────

func (s *Store) CreateDecisionLog(_ context.Context, e *decisionlog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisionLogs[e.ID.String()] = copyDecisionLog(e)
	return nil
}

func (s *Store) GetDecisionLog(_ context.Context, logID id.DecisionLogID) (*decisionlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.decisionLogs[logID.String()]
	if !ok {
		return nil, fmt.Errorf("decision log %s: %w", logID, decisionlog.ErrNotFound)
	}
	return copyDecisionLog(e), nil
}

func (s *Store) ListDecisionLogs(_ context.Context, filter *decisionlog.QueryFilter) ([]*decisionlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*decisionlog.Entry, 0, len(s.decisionLogs))
	for _, e := range s.decisionLogs {
		if filter != nil {
			if !filter.TenantID.IsNil() && e.TenantID.String() != filter.TenantID.String() {
				continue
			}
			if !filter.PrincipalID.IsNil() && e.PrincipalID.String() != filter.PrincipalID.String() {
				continue
			}
			if !filter.TargetPrincipalID.IsNil() && e.TargetPrincipalID.String() != filter.TargetPrincipalID.String() {
				continue
			}
			if filter.Action != "" && e.Action != filter.Action {
				continue
			}
			if filter.Decision != "" && e.Decision != filter.Decision {
				continue
			}
			if filter.Allowed != nil && e.Allowed != *filter.Allowed {
				continue
			}
			if filter.After != nil && e.CreatedAt.Before(*filter.After) {
				continue
			}
			if filter.Before != nil && e.CreatedAt.After(*filter.Before) {
				continue
			}
		}
		result = append(result, copyDecisionLog(e))
	}
	p := pagOpts{}
	if filter != nil {
		p = pagOpts{limit: filter.Limit, offset: filter.Offset}
	}
	return applyPagination(result, p), nil
}

func (s *Store) CountDecisionLogs(ctx context.Context, filter *decisionlog.QueryFilter) (int64, error) {
	list, err := s.ListDecisionLogs(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) PurgeDecisionLogs(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for k, e := range s.decisionLogs {
		if e.CreatedAt.Before(before) {
			delete(s.decisionLogs, k)
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteDecisionLogsByTenant(_ context.Context, tenantID id.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.decisionLogs {
		if e.TenantID.String() == tenantID.String() {
			delete(s.decisionLogs, k)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func matchesSearch(m *membership.Membership, search string) bool {
	q := strings.ToLower(search)
	return strings.Contains(strings.ToLower(m.Name), q) ||
		strings.Contains(strings.ToLower(m.Email), q)
}

func copyMembership(m *membership.Membership) *membership.Membership {
	c := *m
	return &c
}

func copyTenant(t *tenant.Tenant) *tenant.Tenant {
	c := *t
	if t.Metadata != nil {
		c.Metadata = make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

func copyIntent(in *intent.Intent) *intent.Intent {
	c := *in
	if in.Payload != nil {
		c.Payload = make(map[string]any, len(in.Payload))
		for k, v := range in.Payload {
			c.Payload[k] = v
		}
	}
	if in.ResolvedAt != nil {
		t := *in.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

func copyDecisionLog(e *decisionlog.Entry) *decisionlog.Entry {
	c := *e
	return &c
}

type pagOpts struct{ limit, offset int }

func paginationOpts(f *membership.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func applyPagination[T any](items []*T, p pagOpts) []*T {
	if p.offset > 0 && p.offset < len(items) {
		items = items[p.offset:]
	} else if p.offset >= len(items) && p.offset > 0 {
		return nil
	}
	if p.limit > 0 && p.limit < len(items) {
		items = items[:p.limit]
	}
	return items
}
