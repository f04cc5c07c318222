// Package store persists conversion run history.
package store

import (
	"context"
	"time"
)

// RunStatus is the terminal state of a conversion run.
type RunStatus string

const (
	RunStatusCompleted   RunStatus = "completed"
	RunStatusTestsFailed RunStatus = "tests_failed"
	RunStatusFailed      RunStatus = "failed"
)

// Run records one process invocation for a layer source.
type Run struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Layer       string    `json:"layer"`
	LayerSource string    `json:"layer_source"`
	Status      RunStatus `json:"status"`
	// TestsPassed is nil when the source carries no acceptance tests, so
	// untested sources stay visible in run history.
	TestsPassed *bool     `json:"tests_passed,omitempty"`
	Rows        int       `json:"rows"`
	OutputPath  string    `json:"output_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus `json:"status,omitempty"`
	Limit  int       `json:"limit,omitempty"`
}

// Store defines the run-history persistence interface.
type Store interface {
	RecordRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
