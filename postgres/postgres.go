// Package postgres records pipeline analyses in PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements pipeline.Recorder using PostgreSQL via pgx.
type PGStore struct {
	db *pgxpool.Pool
}

// New creates a new PGStore backed by the given pgx connection pool.
func New(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// Open connects a pool to dbURL, verifies it with a ping and returns a store
// owning that pool. Close releases it.
func Open(ctx context.Context, dbURL string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("pipeline: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pipeline: ping: %w", err)
	}
	return New(pool), nil
}

// Close releases the underlying pool.
func (s *PGStore) Close() {
	s.db.Close()
}
