package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/steward/decisionlog"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/intent"
	"github.com/xraph/steward/membership"
	"github.com/xraph/steward/store"
	"github.com/xraph/steward/tenant"
)

// Collection name constants.
const (
	colTenants      = "steward_tenants"
	colMemberships  = "steward_memberships"
	colIntents      = "steward_intents"
	colDecisionLogs = "steward_decision_logs"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a MongoDB implementation of the composite Steward store.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all steward collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()
	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("steward/mongo: migrate %s indexes: %w", col, err)
		}
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

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all steward collections.
// The unique index on principal_id backs the one-membership-per-principal
// invariant.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colTenants: {
			{Keys: bson.D{{Key: "owner_principal_id", Value: 1}}},
		},
		colMemberships: {
			{
				Keys:    bson.D{{Key: "principal_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "role", Value: 1}}},
		},
		colIntents: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
			{Keys: bson.D{{Key: "stage", Value: 1}}},
			{Keys: bson.D{{Key: "resolved_at", Value: 1}}},
		},
		colDecisionLogs: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "principal_id", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "decision", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
	}
}

// ──────────────────────────────────────────────────
// Memberships
// ──────────────────────────────────────────────────

func (s *Store) PutMembership(ctx context.Context, m *membership.Membership) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	m.UpdatedAt = now()
	model := membershipToModel(m)

	// Replace-by-principal: any prior membership held by this principal is
	// superseded by the new binding.
	_, err := s.mdb.NewDelete((*membershipModel)(nil)).
		Many().
		Filter(bson.M{"principal_id": model.PrincipalID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("steward: replace membership: %w", err)
	}
	if _, err := s.mdb.NewInsert(model).Exec(ctx); err != nil {
		return fmt.Errorf("steward: put membership: %w", err)
	}
	return nil
}

func (s *Store) GetMembershipByPrincipal(ctx context.Context, principalID id.PrincipalID) (*membership.Membership, error) {
	var m membershipModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"principal_id": principalID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("principal %s: %w", principalID, membership.ErrNotFound)
		}
		return nil, fmt.Errorf("steward: get membership: %w", err)
	}
	return membershipFromModel(&m), nil
}

func (s *Store) DeleteMembershipByPrincipal(ctx context.Context, principalID id.PrincipalID) error {
	res, err := s.mdb.NewDelete((*membershipModel)(nil)).
		Filter(bson.M{"principal_id": principalID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("steward: delete membership: %w", err)
	}
	if res.DeletedCount() == 0 {
		return fmt.Errorf("principal %s: %w", principalID, membership.ErrNotFound)
	}
	return nil
}

func (s *Store) ListMemberships(ctx context.Context, filter *membership.ListFilter) ([]*membership.Membership, error) {
	var models []membershipModel
	f := bson.M{}
	if filter != nil {
		if !filter.TenantID.IsNil() {
			f["tenant_id"] = filter.TenantID.String()
		}
		if !filter.PrincipalID.IsNil() {
			f["principal_id"] = filter.PrincipalID.String()
		}
		if filter.Role != "" {
			f["role"] = string(filter.Role)
		}
		if filter.Search != "" {
			f["$or"] = []bson.M{
				{"name": bson.M{"$regex": filter.Search, "$options": "i"}},
				{"email": bson.M{"$regex": filter.Search, "$options": "i"}},
			}
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	f := bson.M{}
	if filter != nil {
		if !filter.TenantID.IsNil() {
			f["tenant_id"] = filter.TenantID.String()
		}
		if !filter.PrincipalID.IsNil() {
			f["principal_id"] = filter.PrincipalID.String()
		}
		if filter.Role != "" {
			f["role"] = string(filter.Role)
		}
		if filter.Search != "" {
			f["$or"] = []bson.M{
				{"name": bson.M{"$regex": filter.Search, "$options": "i"}},
				{"email": bson.M{"$regex": filter.Search, "$options": "i"}},
			}
		}
	}
	count, err := s.mdb.NewFind((*membershipModel)(nil)).
		Filter(f).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("steward: count memberships: %w", err)
	}
	return count, nil
}

func (s *Store) OwnerExists(ctx context.Context, tenantID id.TenantID) (bool, error) {
	count, err := s.mdb.NewFind((*membershipModel)(nil)).
		Filter(bson.M{
			"tenant_id": tenantID.String(),
			"role":      string(membership.RoleOwner),
		}).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("steward: owner exists: %w", err)
	}
	return count > 0, nil
}

func (s *Store) DeleteMembershipsByTenant(ctx context.Context, tenantID id.TenantID) error {
	_, err := s.mdb.NewDelete((*membershipModel)(nil)).
		Many().
		Filter(bson.M{"tenant_id": tenantID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("steward: delete tenant memberships: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Tenants
// ──────────────────────────────────────────────────

func (s *Store) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	m := tenantToModel(t)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("steward: create tenant: duplicate id %s", t.ID)
		}
		return fmt.Errorf("steward: create tenant: %w", err)
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, tenantID id.TenantID) (*tenant.Tenant, error) {
	var m tenantModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": tenantID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("tenant %s: %w", tenantID, tenant.ErrNotFound)
		}
		return nil, fmt.Errorf("steward: get tenant: %w", err)
	}
	return tenantFromModel(&m), nil
}

func (s *Store) SetTenantOwner(ctx context.Context, tenantID id.TenantID, ownerID id.PrincipalID) error {
	var m tenantModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": tenantID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return fmt.Errorf("tenant %s: %w", tenantID, tenant.ErrNotFound)
		}
		return fmt.Errorf("steward: set tenant owner: %w", err)
	}
	if m.OwnerPrincipalID != nil {
		if *m.OwnerPrincipalID == ownerID.String() {
			return nil
		}
		return fmt.Errorf("tenant %s: %w", tenantID, tenant.ErrOwnerSet)
	}

	owner := ownerID.String()
	m.OwnerPrincipalID = &owner
	m.UpdatedAt = now()
	// Guard against a concurrent bootstrap: the update only matches while
	// the owner field is still unset.
	res, err := s.mdb.NewUpdate(&m).
		Filter(bson.M{"_id": tenantID.String(), "owner_principal_id": nil}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("steward: set tenant owner: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("tenant %s: %w", tenantID, tenant.ErrOwnerSet)
	}
	return nil
}

func (s *Store) UpdateTenant(ctx context.Context, t *tenant.Tenant) error {
	t.UpdatedAt = now()
	m := tenantToModel(t)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("steward: update tenant: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("tenant %s: %w", t.ID, tenant.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteTenant(ctx context.Context, tenantID id.TenantID) error {
	res, err := s.mdb.NewDelete((*tenantModel)(nil)).
		Filter(bson.M{"_id": tenantID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("steward: delete tenant: %w", err)
	}
	if res.DeletedCount() == 0 {
		return fmt.Errorf("tenant %s: %w", tenantID, tenant.ErrNotFound)
	}
	return nil
}

func (s *Store) ListTenants(ctx context.Context, filter *tenant.ListFilter) ([]*tenant.Tenant, error) {
	var models []tenantModel
	f := bson.M{}
	if filter != nil && filter.Search != "" {
		f["name"] = bson.M{"$regex": filter.Search, "$options": "i"}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("steward: list tenants: %w", err)
	}
	result := make([]*tenant.Tenant, len(models))
	for i := range models {
		result[i] = tenantFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountTenants(ctx context.Context, filter *tenant.ListFilter) (int64, error) {
	f := bson.M{}
	if filter != nil && filter.Search != "" {
		f["name"] = bson.M{"$regex": filter.Search, "$options": "i"}
	}
	count, err := s.mdb.NewFind((*tenantModel)(nil)).
		Filter(f).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("steward: count tenants: %w", err)
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Intents
// ──────────────────────────────────────────────────

func (s *Store) CreateIntent(ctx context.Context, in *intent.Intent) error {
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now()
	}
	m := intentToModel(in)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("steward: create intent: %w", err)
	}
	return nil
}

func (s *Store) UpdateIntent(ctx context.Context, in *intent.Intent) error {
	m := intentToModel(in)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("steward: update intent: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("intent %s: %w", in.ID, intent.ErrNotFound)
	}
	return nil
}

func (s *Store) GetIntent(ctx context.Context, intentID id.IntentID) (*intent.Intent, error) {
	var m intentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": intentID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("intent %s: %w", intentID, intent.ErrNotFound)
		}
		return nil, fmt.Errorf("steward: get intent: %w", err)
	}
	return intentFromModel(&m), nil
}

func (s *Store) ListIntents(ctx context.Context, filter *intent.ListFilter) ([]*intent.Intent, error) {
	var models []intentModel
	f := bson.M{}
	if filter != nil {
		if !filter.TenantID.IsNil() {
			f["tenant_id"] = filter.TenantID.String()
		}
		if filter.Kind != "" {
			f["kind"] = string(filter.Kind)
		}
		if filter.Stage != "" {
			f["stage"] = string(filter.Stage)
		}
		if filter.Unresolved {
			f["resolved_at"] = nil
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("steward: list intents: %w", err)
	}
	result := make([]*intent.Intent, len(models))
	for i := range models {
		result[i] = intentFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) PurgeResolvedIntents(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*intentModel)(nil)).
		Many().
		Filter(bson.M{
			"created_at":  bson.M{"$lt": before},
			"resolved_at": bson.M{"$ne": nil},
		}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("steward: purge intents: %w", err)
	}
	return res.DeletedCount(), nil
}

// ──────────────────────────────────────────────────
// Decision logs
// ──────────────────────────────────────────────────

func (s *Store) CreateDecisionLog(ctx context.Context, e *decisionlog.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	m := decisionLogToModel(e)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("steward: create decision log: %w", err)
	}
	return nil
}

func (s *Store) GetDecisionLog(ctx context.Context, logID id.DecisionLogID) (*decisionlog.Entry, error) {
	var m decisionLogModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": logID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("decision log %s: %w", logID, decisionlog.ErrNotFound)
		}
		return nil, fmt.Errorf("steward: get decision log: %w", err)
	}
	return decisionLogFromModel(&m), nil
}

func (s *Store) ListDecisionLogs(ctx context.Context, filter *decisionlog.QueryFilter) ([]*decisionlog.Entry, error) {
	var models []decisionLogModel
	f := bson.M{}
	if filter != nil {
		if !filter.TenantID.IsNil() {
			f["tenant_id"] = filter.TenantID.String()
		}
		if !filter.PrincipalID.IsNil() {
			f["principal_id"] = filter.PrincipalID.String()
		}
		if !filter.TargetPrincipalID.IsNil() {
			f["target_principal_id"] = filter.TargetPrincipalID.String()
		}
		if filter.Action != "" {
			f["action"] = filter.Action
		}
		if filter.Decision != "" {
			f["decision"] = filter.Decision
		}
		if filter.Allowed != nil {
			f["allowed"] = *filter.Allowed
		}
		if filter.After != nil || filter.Before != nil {
			created := bson.M{}
			if filter.After != nil {
				created["$gte"] = *filter.After
			}
			if filter.Before != nil {
				created["$lt"] = *filter.Before
			}
			f["created_at"] = created
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: -1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	f := bson.M{}
	if filter != nil {
		if !filter.TenantID.IsNil() {
			f["tenant_id"] = filter.TenantID.String()
		}
		if !filter.PrincipalID.IsNil() {
			f["principal_id"] = filter.PrincipalID.String()
		}
		if !filter.TargetPrincipalID.IsNil() {
			f["target_principal_id"] = filter.TargetPrincipalID.String()
		}
		if filter.Action != "" {
			f["action"] = filter.Action
		}
		if filter.Decision != "" {
			f["decision"] = filter.Decision
		}
		if filter.Allowed != nil {
			f["allowed"] = *filter.Allowed
		}
		if filter.After != nil || filter.Before != nil {
			created := bson.M{}
			if filter.After != nil {
				created["$gte"] = *filter.After
			}
			if filter.Before != nil {
				created["$lt"] = *filter.Before
			}
			f["created_at"] = created
		}
	}
	count, err := s.mdb.NewFind((*decisionLogModel)(nil)).
		Filter(f).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("steward: count decision logs: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeDecisionLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*decisionLogModel)(nil)).
		Many().
		Filter(bson.M{"created_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("steward: purge decision logs: %w", err)
	}
	return res.DeletedCount(), nil
}

func (s *Store) DeleteDecisionLogsByTenant(ctx context.Context, tenantID id.TenantID) error {
	_, err := s.mdb.NewDelete((*decisionLogModel)(nil)).
		Many().
		Filter(bson.M{"tenant_id": tenantID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("steward: delete tenant decision logs: %w", err)
	}
	return nil
}
