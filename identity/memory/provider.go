// Package memory provides an in-memory identity provider. It is intended
// for testing and development, and models the one behavior of real
// providers that matters to Steward: claims written now are not
// necessarily visible yet.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xraph/steward/id"
	"github.com/xraph/steward/identity"
)

// Compile-time interface check.
var _ identity.Provider = (*Provider)(nil)

type claimRecord struct {
	claims    identity.Claims
	visibleAt time.Time
}

// Provider is a thread-safe in-memory identity provider.
type Provider struct {
	mu sync.RWMutex

	principals map[string]*identity.Principal
	committed  map[string]claimRecord // authoritative claims with visibility delay
	snapshots  map[string]identity.Claims
	revoked    map[string]int
	resetSeq   int

	lag time.Duration
	now func() time.Time
}

// Option configures the memory provider.
type Option func(*Provider)

// WithPropagationLag delays visibility of written claims by d. Zero means
// claims are visible immediately.
func WithPropagationLag(d time.Duration) Option {
	return func(p *Provider) { p.lag = d }
}

// WithNowFunc sets the time source. Tests pair this with a fake clock.
func WithNowFunc(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// New creates a new in-memory identity provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		principals: make(map[string]*identity.Principal),
		committed:  make(map[string]claimRecord),
		snapshots:  make(map[string]identity.Claims),
		revoked:    make(map[string]int),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CreatePrincipal provisions a new principal.
func (p *Provider) CreatePrincipal(_ context.Context, email, name string) (*identity.Principal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pr := &identity.Principal{
		ID:        id.NewPrincipalID(),
		Email:     email,
		Name:      name,
		CreatedAt: p.now(),
	}
	p.principals[pr.ID.String()] = pr
	return pr, nil
}

// AddPrincipal registers an externally-authenticated principal, as if it
// had signed up through the provider directly.
func (p *Provider) AddPrincipal(pr *identity.Principal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.principals[pr.ID.String()] = pr
}

// GetPrincipal retrieves a principal by ID.
func (p *Provider) GetPrincipal(_ context.Context, principalID id.PrincipalID) (*identity.Principal, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pr, ok := p.principals[principalID.String()]
	if !ok {
		return nil, fmt.Errorf("principal %s: %w", principalID, identity.ErrPrincipalNotFound)
	}
	cp := *pr
	return &cp, nil
}

// DeletePrincipal removes a principal and its claims.
func (p *Provider) DeletePrincipal(_ context.Context, principalID id.PrincipalID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := principalID.String()
	if _, ok := p.principals[key]; !ok {
		return fmt.Errorf("principal %s: %w", principalID, identity.ErrPrincipalNotFound)
	}
	delete(p.principals, key)
	delete(p.committed, key)
	delete(p.snapshots, key)
	return nil
}

// SetClaims writes the claims bundle. The write is authoritative
// immediately but becomes visible to readers only after the configured
// propagation lag.
func (p *Provider) SetClaims(_ context.Context, principalID id.PrincipalID, c identity.Claims) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := principalID.String()
	if _, ok := p.principals[key]; !ok {
		return fmt.Errorf("principal %s: %w", principalID, identity.ErrPrincipalNotFound)
	}
	p.committed[key] = claimRecord{claims: c, visibleAt: p.now().Add(p.lag)}
	return nil
}

// Claims reads the currently visible claims bundle. A non-force read
// returns the last force-refreshed snapshot, mirroring a provider-side
// credential cache; a force read consults the committed record and
// updates the snapshot.
func (p *Provider) Claims(_ context.Context, principalID id.PrincipalID, forceRefresh bool) (identity.Claims, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := principalID.String()
	if _, ok := p.principals[key]; !ok {
		return identity.Claims{}, fmt.Errorf("principal %s: %w", principalID, identity.ErrPrincipalNotFound)
	}

	if !forceRefresh {
		return p.snapshots[key], nil
	}

	rec, ok := p.committed[key]
	if !ok || p.now().Before(rec.visibleAt) {
		return identity.Claims{}, nil
	}
	p.snapshots[key] = rec.claims
	return rec.claims, nil
}

// RevokeSessions invalidates all sessions for the principal.
func (p *Provider) RevokeSessions(_ context.Context, principalID id.PrincipalID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := principalID.String()
	if _, ok := p.principals[key]; !ok {
		return fmt.Errorf("principal %s: %w", principalID, identity.ErrPrincipalNotFound)
	}
	p.revoked[key]++
	delete(p.snapshots, key)
	return nil
}

// PasswordResetLink generates a single-use reset link for the email.
func (p *Provider) PasswordResetLink(_ context.Context, email string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetSeq++
	return fmt.Sprintf("https://identity.invalid/reset?email=%s&seq=%d", email, p.resetSeq), nil
}

// Revocations reports how many times sessions were revoked for the
// principal. Test helper.
func (p *Provider) Revocations(principalID id.PrincipalID) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.revoked[principalID.String()]
}

// HasPrincipal reports whether the principal still exists. Test helper.
func (p *Provider) HasPrincipal(principalID id.PrincipalID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.principals[principalID.String()]
	return ok
}
