package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the settlement store.
var Migrations = migrate.NewGroup("settlement")

type schemaStep struct {
	name    string
	version string
	up      string
	down    string
}

// schema is applied in order, by the grove orchestrator when the store has a
// grove database and directly over the pool otherwise. Every step is
// idempotent.
var schema = []schemaStep{
	{
		name:    "create_settlement_invoices",
		version: "20250101000001",
		up: `
CREATE TABLE IF NOT EXISTS settlement_invoices (
    id                TEXT PRIMARY KEY,
    creator           TEXT NOT NULL,
    client            TEXT NOT NULL DEFAULT '',
    number            TEXT NOT NULL,
    amount            NUMERIC(20,0) NOT NULL DEFAULT 0,
    asset             TEXT NOT NULL,
    due_date          TIMESTAMPTZ NOT NULL,
    memo              TEXT NOT NULL DEFAULT '',
    status            TEXT NOT NULL DEFAULT 'pending',
    paid_at           TIMESTAMPTZ,
    milestones        JSONB NOT NULL DEFAULT '[]',
    current_milestone INT NOT NULL DEFAULT 0,
    escrow_funded     BOOLEAN NOT NULL DEFAULT FALSE,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_settlement_invoices_creator_number ON settlement_invoices (creator, number);
CREATE INDEX IF NOT EXISTS idx_settlement_invoices_client ON settlement_invoices (client);
CREATE INDEX IF NOT EXISTS idx_settlement_invoices_status ON settlement_invoices (status);
`,
		down: `DROP TABLE IF EXISTS settlement_invoices`,
	},
	{
		name:    "create_settlement_escrows",
		version: "20250101000002",
		up: `
CREATE TABLE IF NOT EXISTS settlement_escrows (
    id            TEXT PRIMARY KEY,
    invoice_id    TEXT NOT NULL UNIQUE,
    number        TEXT NOT NULL DEFAULT '',
    vault_owner   TEXT NOT NULL,
    vault_asset   TEXT NOT NULL,
    authority     TEXT NOT NULL,
    funded_amount NUMERIC(20,0) NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`,
		down: `DROP TABLE IF EXISTS settlement_escrows`,
	},
	{
		name:    "create_settlement_lottery_pools",
		version: "20250101000003",
		up: `
CREATE TABLE IF NOT EXISTS settlement_lottery_pools (
    id                       TEXT PRIMARY KEY,
    authority                TEXT NOT NULL,
    asset                    TEXT NOT NULL UNIQUE,
    total_balance            NUMERIC(20,0) NOT NULL DEFAULT 0,
    total_premiums_collected NUMERIC(20,0) NOT NULL DEFAULT 0,
    total_payouts            NUMERIC(20,0) NOT NULL DEFAULT 0,
    total_entries            NUMERIC(20,0) NOT NULL DEFAULT 0,
    total_wins               NUMERIC(20,0) NOT NULL DEFAULT 0,
    house_edge_bps           INT NOT NULL DEFAULT 0,
    min_pool_reserve_bps     INT NOT NULL DEFAULT 0,
    max_win_pct_bps          INT NOT NULL DEFAULT 0,
    paused                   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at               TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`,
		down: `DROP TABLE IF EXISTS settlement_lottery_pools`,
	},
	{
		name:    "create_settlement_lottery_entries",
		version: "20250101000004",
		up: `
CREATE TABLE IF NOT EXISTS settlement_lottery_entries (
    id                  TEXT PRIMARY KEY,
    invoice_id          TEXT NOT NULL,
    participant         TEXT NOT NULL,
    invoice_amount      NUMERIC(20,0) NOT NULL DEFAULT 0,
    premium_paid        NUMERIC(20,0) NOT NULL DEFAULT 0,
    win_probability_bps INT NOT NULL DEFAULT 0,
    status              TEXT NOT NULL DEFAULT 'pending_settlement',
    random_result       BYTEA,
    resolved_at         TIMESTAMPTZ,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_settlement_entries_invoice_participant ON settlement_lottery_entries (invoice_id, participant);
CREATE INDEX IF NOT EXISTS idx_settlement_entries_participant ON settlement_lottery_entries (participant);
CREATE INDEX IF NOT EXISTS idx_settlement_entries_status ON settlement_lottery_entries (status);
`,
		down: `DROP TABLE IF EXISTS settlement_lottery_entries`,
	},
	{
		name:    "create_settlement_profiles",
		version: "20250101000005",
		up: `
CREATE TABLE IF NOT EXISTS settlement_profiles (
    id             TEXT PRIMARY KEY,
    owner          TEXT NOT NULL UNIQUE,
    name           TEXT NOT NULL DEFAULT '',
    email          TEXT NOT NULL DEFAULT '',
    business_name  TEXT NOT NULL DEFAULT '',
    total_invoices NUMERIC(20,0) NOT NULL DEFAULT 0,
    total_received NUMERIC(20,0) NOT NULL DEFAULT 0,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`,
		down: `DROP TABLE IF EXISTS settlement_profiles`,
	},
}

func init() {
	for _, step := range schema {
		Migrations.MustRegister(&migrate.Migration{
			Name:    step.name,
			Version: step.version,
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, step.up)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, step.down)
				return err
			},
		})
	}
}
