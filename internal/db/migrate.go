package db

import (
	"context"
	"database/sql"
)

const schemaMigration = `
CREATE TABLE IF NOT EXISTS users (
    uid text PRIMARY KEY,
    username text NOT NULL,
    email text,
    timezone text,
    external_id text,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW(),
    CONSTRAINT users_external_id_unique UNIQUE (external_id)
);

CREATE TABLE IF NOT EXISTS provider_accounts (
    uid text PRIMARY KEY,
    username text NOT NULL,
    email text NOT NULL,
    password_hash text NOT NULL,
    hash_version text NOT NULL,
    created_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS provider_accounts_email_lower_unique
ON provider_accounts (LOWER(email));
`

// RunMigration creates the schema. external_id stays nullable and unique:
// password-path rows carry NULL there, discord-path rows must not collide.
func RunMigration(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaMigration)
	return err
}
