package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/xraph/steward/id"
)

// startPostgres brings up a throwaway database and applies the store
// schema. Skipped in short mode; docker is required.
func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("steward"),
		tcpostgres.WithUsername("steward"),
		tcpostgres.WithPassword("steward"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	for _, ddl := range []string{ddlTenants, ddlMemberships, ddlIntents, ddlDecisionLogs} {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}

func TestSchemaOneBindingPerPrincipal(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	principalID := id.NewPrincipalID().String()
	insert := `INSERT INTO steward_memberships (id, tenant_id, principal_id, role) VALUES ($1, $2, $3, $4)`

	if _, err := db.ExecContext(ctx, insert,
		id.NewMembershipID().String(), id.NewTenantID().String(), principalID, "staff"); err != nil {
		t.Fatal(err)
	}

	// A second binding for the same principal must be rejected by the
	// schema, not just by application code.
	_, err := db.ExecContext(ctx, insert,
		id.NewMembershipID().String(), id.NewTenantID().String(), principalID, "assistant")
	if err == nil {
		t.Fatal("expected unique violation for duplicate principal binding")
	}
}

func TestSchemaMembershipUpsert(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	principalID := id.NewPrincipalID().String()
	tenantID := id.NewTenantID().String()
	upsert := `
INSERT INTO steward_memberships (id, tenant_id, principal_id, role, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (principal_id) DO UPDATE SET tenant_id = EXCLUDED.tenant_id, role = EXCLUDED.role, updated_at = EXCLUDED.updated_at`

	if _, err := db.ExecContext(ctx, upsert,
		id.NewMembershipID().String(), tenantID, principalID, "pending", time.Now().UTC()); err != nil {
		t.Fatal(err)
	}
	// The bootstrap path rewrites the pending binding in place.
	if _, err := db.ExecContext(ctx, upsert,
		id.NewMembershipID().String(), tenantID, principalID, "owner", time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	var role string
	var count int
	row := db.QueryRowContext(ctx,
		`SELECT role, (SELECT count(*) FROM steward_memberships WHERE principal_id = $1) FROM steward_memberships WHERE principal_id = $1`,
		principalID)
	if err := row.Scan(&role, &count); err != nil {
		t.Fatal(err)
	}
	if role != "owner" {
		t.Fatalf("expected role rewritten to owner, got %s", role)
	}
	if count != 1 {
		t.Fatalf("expected a single binding, got %d", count)
	}
}

func TestSchemaUnresolvedIntents(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	tenantID := id.NewTenantID().String()
	insert := `INSERT INTO steward_intents (id, kind, tenant_id, stage, resolved_at) VALUES ($1, $2, $3, $4, $5)`

	if _, err := db.ExecContext(ctx, insert,
		id.NewIntentID().String(), "create_member", tenantID, "provisioned", nil); err != nil {
		t.Fatal(err)
	}
	resolved := time.Now().UTC()
	if _, err := db.ExecContext(ctx, insert,
		id.NewIntentID().String(), "create_member", tenantID, "completed", resolved); err != nil {
		t.Fatal(err)
	}

	var unresolved int
	row := db.QueryRowContext(ctx,
		`SELECT count(*) FROM steward_intents WHERE tenant_id = $1 AND resolved_at IS NULL`, tenantID)
	if err := row.Scan(&unresolved); err != nil {
		t.Fatal(err)
	}
	if unresolved != 1 {
		t.Fatalf("expected 1 unresolved intent, got %d", unresolved)
	}
}
