package authkitpg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tyemirov/storeapi/internal/authkit"
)

var errNilPool = errors.New("revocation.postgres.nil_pool")

// PostgresRevocationRegistry keeps revoked token identifiers in PostgreSQL through a dedicated pgx pool.
type PostgresRevocationRegistry struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresRevocationRegistry ensures the schema exists and wraps the pool.
// The registry owns the pool and closes it on Close.
func NewPostgresRevocationRegistry(ctx context.Context, pool *pgxpool.Pool) (*PostgresRevocationRegistry, error) {
	if pool == nil {
		return nil, errNilPool
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		return nil, fmt.Errorf("revocation.postgres.schema: %w", err)
	}
	return &PostgresRevocationRegistry{pool: pool, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Add inserts the identifier; repeats keep the first revocation timestamp.
func (registry *PostgresRevocationRegistry) Add(ctx context.Context, tokenID string) error {
	if strings.TrimSpace(tokenID) == "" {
		return fmt.Errorf("revocation.add.postgres: %w", authkit.ErrEmptyTokenID)
	}
	_, err := registry.pool.Exec(ctx, `
INSERT INTO revoked_tokens (token_id, revoked_at_unix)
VALUES ($1, $2)
ON CONFLICT (token_id) DO NOTHING
`, tokenID, registry.now().Unix())
	if err != nil {
		return fmt.Errorf("revocation.add.postgres: %w", err)
	}
	return nil
}

// Contains checks membership by primary key.
func (registry *PostgresRevocationRegistry) Contains(ctx context.Context, tokenID string) (bool, error) {
	var revoked bool
	row := registry.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_id = $1)`, tokenID)
	if err := row.Scan(&revoked); err != nil {
		return false, fmt.Errorf("revocation.contains.postgres: %w", err)
	}
	return revoked, nil
}

// Close releases the pool.
func (registry *PostgresRevocationRegistry) Close() error {
	registry.pool.Close()
	return nil
}

var _ authkit.RevocationRegistry = (*PostgresRevocationRegistry)(nil)
