package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS activation_codes (
    code        TEXT PRIMARY KEY,
    plan_type   TEXT NOT NULL,
    redeemed_by TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_activation_codes_redeemed_by
    ON activation_codes (redeemed_by);

CREATE TABLE IF NOT EXISTS device_bindings (
    device_id       TEXT PRIMARY KEY,
    activation_code TEXT NOT NULL REFERENCES activation_codes (code),
    plan_type       TEXT NOT NULL,
    activated_at    TIMESTAMPTZ NOT NULL,
    expires_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_device_bindings_activated_at
    ON device_bindings (activated_at DESC);

CREATE TABLE IF NOT EXISTS glyphs (
    glyph TEXT PRIMARY KEY,
    data  JSONB NOT NULL
);
`

// EnsureSchema creates the tables and indexes if they do not exist.
// Uniqueness of code and device_id is enforced here by primary keys, so
// concurrent redemption races resolve via constraint rejection.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaDDL)
	return err
}
