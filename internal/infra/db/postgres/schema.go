package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS translation_jobs (
	id                UUID PRIMARY KEY,
	owner_id          BIGINT NOT NULL,
	original_filename TEXT NOT NULL,
	source_language   TEXT NOT NULL,
	target_language   TEXT NOT NULL,
	status            TEXT NOT NULL,
	message           TEXT NOT NULL DEFAULT '',
	error             TEXT NOT NULL DEFAULT '',
	speakers          JSONB NOT NULL DEFAULT '[]',
	audio_versions    JSONB NOT NULL DEFAULT '[]',
	created_at        TIMESTAMPTZ NOT NULL,
	completed_at      TIMESTAMPTZ,
	updated_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_translation_jobs_owner ON translation_jobs (owner_id, created_at DESC);
`

// EnsureSchema creates the job table if it does not exist yet. The service
// owns its schema; there is no separate migration step to forget.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
