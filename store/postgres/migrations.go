package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Steward store (PostgreSQL).
var Migrations = migrate.NewGroup("steward")

const ddlTenants = `
CREATE TABLE IF NOT EXISTS steward_tenants (
    id                  TEXT PRIMARY KEY,
    name                TEXT NOT NULL,
    owner_principal_id  TEXT,
    metadata            JSONB NOT NULL DEFAULT '{}',
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_steward_tenants_owner ON steward_tenants (owner_principal_id);
`

const ddlMemberships = `
CREATE TABLE IF NOT EXISTS steward_memberships (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    principal_id    TEXT NOT NULL,
    role            TEXT NOT NULL,
    name            TEXT NOT NULL DEFAULT '',
    email           TEXT NOT NULL DEFAULT '',
    granted_by      TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    UNIQUE(principal_id)
);

CREATE INDEX IF NOT EXISTS idx_steward_members_tenant ON steward_memberships (tenant_id);
CREATE INDEX IF NOT EXISTS idx_steward_members_role ON steward_memberships (tenant_id, role);
`

const ddlIntents = `
CREATE TABLE IF NOT EXISTS steward_intents (
    id              TEXT PRIMARY KEY,
    kind            TEXT NOT NULL,
    tenant_id       TEXT NOT NULL,
    principal_id    TEXT NOT NULL DEFAULT '',
    stage           TEXT NOT NULL,
    payload         JSONB NOT NULL DEFAULT '{}',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    resolved_at     TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_steward_intents_tenant ON steward_intents (tenant_id);
CREATE INDEX IF NOT EXISTS idx_steward_intents_stage ON steward_intents (stage);
CREATE INDEX IF NOT EXISTS idx_steward_intents_unresolved ON steward_intents (resolved_at) WHERE resolved_at IS NULL;
`

const ddlDecisionLogs = `
CREATE TABLE IF NOT EXISTS steward_decision_logs (
    id                   TEXT PRIMARY KEY,
    tenant_id            TEXT NOT NULL,
    principal_id         TEXT NOT NULL DEFAULT '',
    action               TEXT NOT NULL,
    target_principal_id  TEXT NOT NULL DEFAULT '',
    allowed              BOOLEAN NOT NULL,
    decision             TEXT NOT NULL,
    reason               TEXT NOT NULL DEFAULT '',
    eval_time_ns         BIGINT NOT NULL DEFAULT 0,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_steward_dlogs_tenant ON steward_decision_logs (tenant_id);
CREATE INDEX IF NOT EXISTS idx_steward_dlogs_principal ON steward_decision_logs (tenant_id, principal_id);
CREATE INDEX IF NOT EXISTS idx_steward_dlogs_decision ON steward_decision_logs (tenant_id, decision);
CREATE INDEX IF NOT EXISTS idx_steward_dlogs_created ON steward_decision_logs (created_at);
`

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_tenants",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, ddlTenants)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS steward_tenants`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_memberships",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, ddlMemberships)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS steward_memberships`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_intents",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, ddlIntents)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS steward_intents`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_decision_logs",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, ddlDecisionLogs)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS steward_decision_logs`)
				return err
			},
		},
	)
}
