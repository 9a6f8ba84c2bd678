// Package history records backtest runs so that prompt scores survive restarts.
package history

import (
	"context"
	"time"
)

// DefaultWindow number of most recent runs fed back into prompt improvement.
const DefaultWindow = 10

// Run outcome of one backtest pass.
type Run struct {
	ID        int64
	StartedAt time.Time
	// Mode decision source that was scored, "engine" or "llm".
	Mode    string
	Model   string
	Prompt  string
	Total   int
	Correct int
	// Score correct/total, 0 when no window was evaluated.
	Score float64
}

// Recorder persists backtest runs.
type Recorder interface {
	RecordRun(ctx context.Context, run Run) (int64, error)
	// RecentRuns returns up to limit latest runs, oldest first.
	RecentRuns(ctx context.Context, limit int) ([]Run, error)
	Close() error
}
