package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meikuraledutech/pipeline"
)

// Record inserts one analysis row.
// If a.ID is empty, a UUID is auto-generated; a zero CreatedAt is set to now.
func (s *PGStore) Record(ctx context.Context, a *pipeline.Analysis) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO pipeline_analyses (id, request_id, num_nodes, num_edges, is_dag, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.RequestID, a.NumNodes, a.NumEdges, a.IsDAG, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("pipeline: insert analysis: %w", err)
	}
	return nil
}

// Recent returns up to limit analyses, newest first.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) Recent(ctx context.Context, limit int) ([]pipeline.Analysis, error) {
	if limit <= 0 {
		return []pipeline.Analysis{}, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, request_id, num_nodes, num_edges, is_dag, created_at
		 FROM pipeline_analyses ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("pipeline: list analyses: %w", err)
	}
	defer rows.Close()

	out := []pipeline.Analysis{}
	for rows.Next() {
		var a pipeline.Analysis
		if err := rows.Scan(&a.ID, &a.RequestID, &a.NumNodes, &a.NumEdges, &a.IsDAG, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("pipeline: scan analysis: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: rows analyses: %w", err)
	}

	return out, nil
}
