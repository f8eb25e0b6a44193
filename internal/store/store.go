// Package store persists analysis runs and their aggregate statistics. Two
// backends exist: SQLite for single-operator use and Postgres for shared
// deployments.
package store

import (
	"context"
	"time"

	"github.com/terralytics/carbon-cli/internal/stats"
	"github.com/terralytics/carbon-cli/internal/stock"
)

// RunStatus tracks the lifecycle of a persisted run.
type RunStatus string

const (
	StatusRunning  RunStatus = "running"
	StatusComplete RunStatus = "complete"
	StatusFailed   RunStatus = "failed"
)

// Run is one analysis run record.
type Run struct {
	ID        string
	AOIName   string
	StartYear int
	EndYear   int
	Source    stock.Source
	Threshold float64
	Status    RunStatus
	Error     string
	Summary   *stats.Summary
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RunFilter narrows ListRuns.
type RunFilter struct {
	Status RunStatus // empty = all
	Limit  int       // 0 = default 50
}

// Store defines run persistence operations.
type Store interface {
	Migrate(ctx context.Context) error
	CreateRun(ctx context.Context, run *Run) error
	CompleteRun(ctx context.Context, runID string, summary *stats.Summary) error
	FailRun(ctx context.Context, runID string, runErr error) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	Close() error
}
