// Package sqlite provides a SQLite implementation of the Steward composite
// store using grove ORM with Go-based migrations. Suited to embedded and
// single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/steward/decisionlog"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/intent"
	"github.com/xraph/steward/membership"
	"github.com/xraph/steward/store"
	"github.com/xraph/steward/tenant"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a SQLite implementation of the composite Steward store.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("steward/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("steward/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ──────────────────────────────────────────────────
// Membership operations
// ──────────────────────────────────────────────────

// PutMembership replaces any existing binding for the principal. Delete
// plus insert in one transaction stands in for the upsert, keeping the
// one-binding-per-principal invariant under the unique constraint.
func (s *Store) PutMembership(ctx context.Context, m *membership.Membership) error {
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}
	model := membershipToModel(m)

	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("steward: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	if _, err := tx.NewDelete((*membershipModel)(nil)).
		Where("principal_id = ?", m.PrincipalID.String()).
		Exec(ctx); err != nil {
		return fmt.Errorf("steward: put membership: %w", err)
	}
	if _, err := tx.NewInsert(model).Exec(ctx); err != nil {
		return fmt.Errorf("steward: put membership: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("steward: commit tx: %w", err)
	}
	return nil
}

func (s *Store) GetMembershipByPrincipal(ctx context.Context, principalID id.PrincipalID) (*membership.Membership, error) {
	m := new(membershipModel)
	err := s.sdb.NewSelect(m).Where("principal_id = ?", principalID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("principal %s: %w", principalID, membership.ErrNotFound)
		}
		return nil, fmt.Errorf("steward: get membership: %w", err)
	}
	return membershipFromModel(m), nil
}

func (s *Store) DeleteMembershipByPrincipal(ctx context.Context, principalID id.PrincipalID) error {
	_, err := s.sdb.NewDelete((*membershipModel)(nil)).
		Where("principal_id = ?", principalID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("steward: delete membership: %w", err)
	}
	return nil
}

func (s *Store) ListMemberships(ctx context.Context, filter *membership.ListFilter) ([]*membership.Membership, error) {
	var models []membershipModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at ASC")
	if filter != nil {
		if !filter.TenantID.IsNil() {
			q = q.Where("tenant_id = ?", filter.TenantID.String())
		}
		if !filter.PrincipalID.IsNil() {
			q = q.Where("principal_id = ?", filter.PrincipalID.String())
		}
		if filter.Role != "" {
			q = q.Where("role = ?", string(filter.Role))
		}
		if filter.Search != "" {
			q = q.Where("(LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?))",
				"%"+filter.Search+"%", "%"+filter.Search+"%")
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("steward: list memberships: %w", err)
	}
	result := make([]*membership.Membership, len(models))
	for i := range models {
		result[i] = membershipFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountMemberships(ctx context.Context, filter *membership.ListFilter) (int64, error) {
	q := s.sdb.NewSelect((*membershipModel)(nil))
	if filter != nil {
		if !filter.TenantID.IsNil() {
			q = q.Where("tenant_id = ?", filter.TenantID.String())
		}
		if !filter.PrincipalID.IsNil() {
			q = q.Where("principal_id = ?", filter.PrincipalID.String())
		}
		if filter.Role != "" {
			q = q.Where("role = ?", string(filter.Role))
		}
		if filter.Search != "" {
			q = q.Where("(LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?))",
				"%"+filter.Search+"%", "%"+filter.Search+"%")
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("steward: count memberships: %w", err)
	}
	return count, nil
}

func (s *Store) OwnerExists(ctx context.Context, tenantID id.TenantID) (bool, error) {
	count, err := s.sdb.NewSelect((*membershipModel)(nil)).
		Where("tenant_id = ?", tenantID.String()).
		Where("role = ?", string(membership.RoleOwner)).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("steward: owner lookup: %w", err)
	}
	return count > 0, nil
}

func (s *Store) DeleteMembershipsByTenant(ctx context.Context, tenantID id.TenantID) error {
	_, err := s.sdb.NewDelete((*membershipModel)(nil)).
		Where("tenant_id = ?", tenantID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("steward: delete memberships by tenant: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Tenant operations
// ──────────────────────────────────────────────────

func (s *Store) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	m, err := tenantToModel(t)
	if err != nil {
		return fmt.Errorf("steward: create tenant: %w", err)
	}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("steward: create tenant: %w", err)
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, tenantID id.TenantID) (*tenant.Tenant, error) {
	m := new(tenantModel)
	err := s.sdb.NewSelect(m).Where("id = ?", tenantID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("tenant %s: %w", tenantID, tenant.ErrNotFound)
		}
		return nil, fmt.Errorf("steward: get tenant: %w", err)
	}
	return tenantFromModel(m)
}

// SetTenantOwner is set-once. The read and conditional write run in one
// transaction so two concurrent bootstraps cannot both win.
func (s *Store) SetTenantOwner(ctx context.Context, tenantID id.TenantID, ownerID id.PrincipalID) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("steward: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	m := new(tenantModel)
	if err := tx.NewSelect(m).Where("id = ?", tenantID.String()).Scan(ctx); err != nil {
		if isNoRows(err) {
			return fmt.Errorf("tenant %s: %w", tenantID, tenant.ErrNotFound)
		}
		return fmt.Errorf("steward: get tenant: %w", err)
	}
	if m.OwnerPrincipalID != nil && *m.OwnerPrincipalID != ownerID.String() {
		return fmt.Errorf("tenant %s: %w", tenantID, tenant.ErrOwnerSet)
	}

	owner := ownerID.String()
	m.OwnerPrincipalID = &owner
	m.UpdatedAt = time.Now().UTC()
	if _, err := tx.NewUpdate(m).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("steward: set tenant owner: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("steward: commit tx: %w", err)
	}
	return nil
}

func (s *Store) UpdateTenant(ctx context.Context, t *tenant.Tenant) error {
	t.UpdatedAt = time.Now().UTC()
	m, err := tenantToModel(t)
	if err != nil {
		return fmt.Errorf("steward: update tenant: %w", err)
	}
	if _, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("steward: update tenant: %w", err)
	}
	return nil
}

func (s *Store) DeleteTenant(ctx context.Context, tenantID id.TenantID) error {
	_, err := s.sdb.NewDelete((*tenantModel)(nil)).
		Where("id = ?", tenantID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("steward: delete tenant: %w", err)
	}
	return nil
}

func (s *Store) ListTenants(ctx context.Context, filter *tenant.ListFilter) ([]*tenant.Tenant, error) {
	var models []tenantModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at ASC")
	if filter != nil {
		if filter.Search != "" {
			q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Search+"%")
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("steward: list tenants: %w", err)
	}
	result := make([]*tenant.Tenant, len(models))
	for i := range models {
		t, err := tenantFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("steward: list tenants: %w", err)
		}
		result[i] = t
	}
	return result, nil
}

func (s *Store) CountTenants(ctx context.Context, filter *tenant.ListFilter) (int64, error) {
	q := s.sdb.NewSelect((*tenantModel)(nil))
	if filter != nil && filter.Search != "" {
		q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Search+"%")
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("steward: count tenants: %w", err)
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Intent operations
// ──────────────────────────────────────────────────

func (s *Store) CreateIntent(ctx context.Context, in *intent.Intent) error {
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	m, err := intentToModel(in)
	if err != nil {
		return fmt.Errorf("steward: create intent: %w", err)
	}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("steward: create intent: %w", err)
	}
	return nil
}

func (s *Store) UpdateIntent(ctx context.Context, in *intent.Intent) error {
	m, err := intentToModel(in)
	if err != nil {
		return fmt.Errorf("steward: update intent: %w", err)
	}
	if _, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("steward: update intent: %w", err)
	}
	return nil
}

func (s *Store) GetIntent(ctx context.Context, intentID id.IntentID) (*intent.Intent, error) {
	m := new(intentModel)
	err := s.sdb.NewSelect(m).Where("id = ?", intentID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("intent %s: %w", intentID, intent.ErrNotFound)
		}
		return nil, fmt.Errorf("steward: get intent: %w", err)
	}
	return intentFromModel(m)
}

func (s *Store) ListIntents(ctx context.Context, filter *intent.ListFilter) ([]*intent.Intent, error) {
	var models []intentModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at ASC")
	if filter != nil {
		if !filter.TenantID.IsNil() {
			q = q.Where("tenant_id = ?", filter.TenantID.String())
		}
		if filter.Kind != "" {
			q = q.Where("kind = ?", string(filter.Kind))
		}
		if filter.Stage != "" {
			q = q.Where("stage = ?", string(filter.Stage))
		}
		if filter.Unresolved {
			q = q.Where("resolved_at IS NULL")
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("steward: list intents: %w", err)
	}
	result := make([]*intent.Intent, len(models))
	for i := range models {
		in, err := intentFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("steward: list intents: %w", err)
		}
		result[i] = in
	}
	return result, nil
}

func (s *Store) PurgeResolvedIntents(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.sdb.NewDelete((*intentModel)(nil)).
		Where("resolved_at IS NOT NULL").
		Where("created_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("steward: purge intents: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("steward: purge intents rows: %w", err)
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Decision log operations
// ──────────────────────────────────────────────────

func (s *Store) CreateDecisionLog(ctx context.Context, e *decisionlog.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m := decisionLogToModel(e)
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("steward: create decision log: %w", err)
	}
	return nil
}

func (s *Store) GetDecisionLog(ctx context.Context, logID id.DecisionLogID) (*decisionlog.Entry, error) {
	m := new(decisionLogModel)
	err := s.sdb.NewSelect(m).Where("id = ?", logID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("decision log %s: %w", logID, decisionlog.ErrNotFound)
		}
		return nil, fmt.Errorf("steward: get decision log: %w", err)
	}
	return decisionLogFromModel(m), nil
}

func (s *Store) ListDecisionLogs(ctx context.Context, filter *decisionlog.QueryFilter) ([]*decisionlog.Entry, error) {
	var models []decisionLogModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at DESC")
	if filter != nil {
		if !filter.TenantID.IsNil() {
			q = q.Where("tenant_id = ?", filter.TenantID.String())
		}
		if !filter.PrincipalID.IsNil() {
			q = q.Where("principal_id = ?", filter.PrincipalID.String())
		}
		if !filter.TargetPrincipalID.IsNil() {
			q = q.Where("target_principal_id = ?", filter.TargetPrincipalID.String())
		}
		if filter.Action != "" {
			q = q.Where("action = ?", filter.Action)
		}
		if filter.Decision != "" {
			q = q.Where("decision = ?", filter.Decision)
		}
		if filter.Allowed != nil {
			q = q.Where("allowed = ?", *filter.Allowed)
		}
		if filter.After != nil {
			q = q.Where("created_at >= ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at <= ?", *filter.Before)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("steward: list decision logs: %w", err)
	}
	result := make([]*decisionlog.Entry, len(models))
	for i := range models {
		result[i] = decisionLogFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountDecisionLogs(ctx context.Context, filter *decisionlog.QueryFilter) (int64, error) {
	q := s.sdb.NewSelect((*decisionLogModel)(nil))
	if filter != nil {
		if !filter.TenantID.IsNil() {
			q = q.Where("tenant_id = ?", filter.TenantID.String())
		}
		if !filter.PrincipalID.IsNil() {
			q = q.Where("principal_id = ?", filter.PrincipalID.String())
		}
		if !filter.TargetPrincipalID.IsNil() {
			q = q.Where("target_principal_id = ?", filter.TargetPrincipalID.String())
		}
		if filter.Action != "" {
			q = q.Where("action = ?", filter.Action)
		}
		if filter.Decision != "" {
			q = q.Where("decision = ?", filter.Decision)
		}
		if filter.Allowed != nil {
			q = q.Where("allowed = ?", *filter.Allowed)
		}
		if filter.After != nil {
			q = q.Where("created_at >= ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at <= ?", *filter.Before)
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("steward: count decision logs: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeDecisionLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.sdb.NewDelete((*decisionLogModel)(nil)).
		Where("created_at < ?", before).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("steward: purge decision logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("steward: purge decision logs rows: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteDecisionLogsByTenant(ctx context.Context, tenantID id.TenantID) error {
	_, err := s.sdb.NewDelete((*decisionLogModel)(nil)).
		Where("tenant_id = ?", tenantID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("steward: delete decision logs by tenant: %w", err)
	}
	return nil
}
