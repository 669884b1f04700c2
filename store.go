package pipeline

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidPipeline is wrapped by every shape violation reported for an
// inbound pipeline payload.
var ErrInvalidPipeline = errors.New("pipeline: invalid pipeline payload")

// Analysis is the record of one completed analysis.
// It carries counters and the verdict only; node ids and edges are never kept.
type Analysis struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id,omitempty"`
	NumNodes  int       `json:"num_nodes"`
	NumEdges  int       `json:"num_edges"`
	IsDAG     bool      `json:"is_dag"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder defines the contract for logging completed analyses.
type Recorder interface {
	Record(ctx context.Context, a *Analysis) error
}

// Discard is a Recorder that drops every analysis.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(context.Context, *Analysis) error { return nil }
