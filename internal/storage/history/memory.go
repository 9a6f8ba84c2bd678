package history

import (
	"context"
	"sync"
)

// MemoryRecorder keeps runs for the lifetime of the process. Used when no
// database path is configured.
type MemoryRecorder struct {
	mu   sync.Mutex
	runs []Run
}

func NewMemoryRecorder() *MemoryRecorder { return &MemoryRecorder{} }

func (m *MemoryRecorder) RecordRun(_ context.Context, run Run) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run.ID = int64(len(m.runs) + 1)
	m.runs = append(m.runs, run)
	return run.ID, nil
}

func (m *MemoryRecorder) RecentRuns(_ context.Context, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := max(len(m.runs)-limit, 0)
	out := make([]Run, len(m.runs)-from)
	copy(out, m.runs[from:])
	return out, nil
}

func (m *MemoryRecorder) Close() error { return nil }
