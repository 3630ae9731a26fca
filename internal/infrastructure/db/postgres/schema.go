package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id                 TEXT PRIMARY KEY,
    email              TEXT NOT NULL UNIQUE,
    password_hash      TEXT NOT NULL,
    subscription       TEXT NOT NULL DEFAULT 'starter'
                       CHECK (subscription IN ('starter','pro','business')),
    token              TEXT,
    avatar_url         TEXT NOT NULL DEFAULT '',
    verified           BOOLEAN NOT NULL DEFAULT FALSE,
    verification_token TEXT,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS users_verification_token_idx
    ON users (verification_token) WHERE verification_token IS NOT NULL;

CREATE TABLE IF NOT EXISTS contacts (
    id         TEXT PRIMARY KEY,
    owner      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name       TEXT NOT NULL,
    email      TEXT NOT NULL,
    phone      TEXT NOT NULL,
    favorite   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS contacts_owner_created_idx ON contacts (owner, created_at);
`

// EnsureSchema creates tables and indexes if they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
