package authkitpg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the revoked_tokens table if it does not exist. The layout matches the
// GORM-managed table so either registry can read revocations written by the other.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS revoked_tokens (
    token_id TEXT PRIMARY KEY,
    revoked_at_unix BIGINT NOT NULL
);
`)
	return err
}
