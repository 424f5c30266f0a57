package postgres

import (
	"context"
	"fmt"

	"reflector/internal/domain/repositories"
)

// EnsureSchema creates the reflect session table and its thread index when missing,
// and adds columns introduced after the table was first created.
// All statements run in one transaction so a partial schema is never left behind.
func EnsureSchema(ctx context.Context, tm repositories.TransactionManager, config *RepositoryConfig) error {
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id          UUID PRIMARY KEY,
				thread_id   TEXT NOT NULL,
				user_id     TEXT NOT NULL DEFAULT '',
				prompt      TEXT NOT NULL,
				provider    TEXT NOT NULL,
				model       TEXT NOT NULL DEFAULT '',
				messages    JSONB NOT NULL,
				document    JSONB NOT NULL,
				rejections  JSONB NOT NULL DEFAULT '[]'::jsonb,
				created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`, config.Tables.ReflectSessions),
		fmt.Sprintf(`
			ALTER TABLE %s ADD COLUMN IF NOT EXISTS user_id TEXT NOT NULL DEFAULT ''
		`, config.Tables.ReflectSessions),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_thread_idx ON %s (thread_id, created_at)
		`, config.Tables.ReflectSessions, config.Tables.ReflectSessions),
	}

	return tm.ExecTx(ctx, func(ctx context.Context) error {
		executor := GetExecutor(ctx, config.Pool)
		for _, stmt := range statements {
			if _, err := executor.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
		}
		config.Logger.Info("reflect session schema ready", "table", config.Tables.ReflectSessions)
		return nil
	})
}
