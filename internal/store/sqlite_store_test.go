package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "conform.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLiteStore_RecordAndList(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	passed := true
	require.NoError(t, st.RecordRun(ctx, Run{
		Source:      "sources/us/or/curry.json",
		Layer:       "addresses",
		LayerSource: "county",
		Status:      RunStatusCompleted,
		TestsPassed: &passed,
		Rows:        4207,
		OutputPath:  "out/curry-addresses.csv",
	}))

	runs, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)

	r := runs[0]
	assert.NotEmpty(t, r.ID) // fill-in id
	assert.Equal(t, "sources/us/or/curry.json", r.Source)
	assert.Equal(t, "addresses", r.Layer)
	assert.Equal(t, "county", r.LayerSource)
	assert.Equal(t, RunStatusCompleted, r.Status)
	require.NotNil(t, r.TestsPassed)
	assert.True(t, *r.TestsPassed)
	assert.Equal(t, 4207, r.Rows)
	assert.Equal(t, "out/curry-addresses.csv", r.OutputPath)
	assert.False(t, r.CreatedAt.IsZero())
}

func TestSQLiteStore_UntestedRunKeepsNilTestsPassed(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, st.RecordRun(ctx, Run{
		Source:      "city.json",
		Layer:       "addresses",
		LayerSource: "primary",
		Status:      RunStatusCompleted,
	}))

	runs, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].TestsPassed)
}

func TestSQLiteStore_FilterAndLimit(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	statuses := []RunStatus{RunStatusCompleted, RunStatusTestsFailed, RunStatusCompleted, RunStatusFailed}
	for i, status := range statuses {
		require.NoError(t, st.RecordRun(ctx, Run{
			ID:          string(rune('a' + i)),
			Source:      "s.json",
			Layer:       "addresses",
			LayerSource: "primary",
			Status:      status,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}))
	}

	completed, err := st.ListRuns(ctx, RunFilter{Status: RunStatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 2)
	// Newest first.
	assert.Equal(t, "c", completed[0].ID)
	assert.Equal(t, "a", completed[1].ID)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "d", limited[0].ID)
}

func TestSQLiteStore_MigrateIsIdempotent(t *testing.T) {
	st := newTestSQLite(t)
	assert.NoError(t, st.Migrate(context.Background()))
}
