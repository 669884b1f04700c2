package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pipeline_analyses (
    id         TEXT PRIMARY KEY,
    request_id TEXT NOT NULL DEFAULT '',
    num_nodes  INTEGER NOT NULL,
    num_edges  INTEGER NOT NULL,
    is_dag     BOOLEAN NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_pipeline_analyses_created_at ON pipeline_analyses(created_at DESC);
`

// CreateSchema creates the pipeline_analyses table if it doesn't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the pipeline_analyses table.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS pipeline_analyses CASCADE;`)
	return err
}
