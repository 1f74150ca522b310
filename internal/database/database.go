package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"

	"clipfeed/internal/config"
	"clipfeed/internal/logger"
)

// Connect opens the Postgres pool that backs the session store.
func Connect(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Log.Info("Connected to postgres", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
	return db, nil
}

// migrations run in order on every start and must stay idempotent.
var migrations = []struct {
	name string
	stmt string
}{
	{
		name: "001_enable_pgcrypto",
		stmt: `CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	},
	{
		name: "002_create_refresh_tokens",
		stmt: `
			CREATE TABLE IF NOT EXISTS refresh_tokens (
				id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				user_id     TEXT NOT NULL,
				token_hash  TEXT NOT NULL UNIQUE,
				expires_at  TIMESTAMPTZ NOT NULL,
				created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				revoked_at  TIMESTAMPTZ,
				replaced_by UUID,
				device_info TEXT,
				ip_address  TEXT
			)`,
	},
	{
		name: "003_index_refresh_tokens_user",
		stmt: `CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens (user_id)`,
	},
	{
		name: "004_index_refresh_tokens_expiry",
		stmt: `CREATE INDEX IF NOT EXISTS idx_refresh_tokens_expires_at ON refresh_tokens (expires_at)`,
	},
}

// Migrate creates the session schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m.stmt); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", m.name, err)
		}
		logger.Log.Debug("migration applied", zap.String("name", m.name))
	}
	return nil
}
