package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func recordRuns(t *testing.T, r Recorder, n int) {
	t.Helper()
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := range n {
		_, err := r.RecordRun(context.Background(), Run{
			StartedAt: start.Add(time.Duration(i) * time.Hour),
			Mode:      "llm",
			Model:     "o1-mini",
			Prompt:    fmt.Sprintf("prompt %d", i),
			Total:     72,
			Correct:   i,
			Score:     float64(i) / 72,
		})
		require.NoError(t, err)
	}
}

func TestRecorders_RecentRunsOldestFirst(t *testing.T) {
	sqliteRecorder, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"), zap.NewNop())
	require.NoError(t, err)

	recorders := map[string]Recorder{
		"sqlite": sqliteRecorder,
		"memory": NewMemoryRecorder(),
	}

	for name, r := range recorders {
		t.Run(name, func(t *testing.T) {
			defer r.Close()

			recordRuns(t, r, 12)

			runs, err := r.RecentRuns(context.Background(), DefaultWindow)
			require.NoError(t, err)
			require.Len(t, runs, DefaultWindow)

			assert.Equal(t, "prompt 2", runs[0].Prompt)
			assert.Equal(t, "prompt 11", runs[9].Prompt)
			assert.Equal(t, 11, runs[9].Correct)
			assert.InDelta(t, 11.0/72, runs[9].Score, 1e-9)
			assert.Less(t, runs[0].ID, runs[9].ID)
		})
	}
}

func TestSQLiteRecorder_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	r, err := NewSQLiteRecorder(path, zap.NewNop())
	require.NoError(t, err)
	recordRuns(t, r, 3)
	require.NoError(t, r.Close())

	r, err = NewSQLiteRecorder(path, zap.NewNop())
	require.NoError(t, err)
	defer r.Close()

	runs, err := r.RecentRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, time.Date(2026, 2, 1, 2, 0, 0, 0, time.UTC).UnixMilli(), runs[2].StartedAt.UnixMilli())
	assert.Equal(t, "o1-mini", runs[0].Model)
}
