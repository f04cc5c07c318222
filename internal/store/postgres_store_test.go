package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordRun(t *testing.T) {
	st, mock := newMockPostgres(t)

	passed := true
	mock.ExpectExec("INSERT INTO runs").
		WithArgs(
			pgxmock.AnyArg(), // generated id
			"sources/us/or/curry.json",
			"addresses",
			"county",
			"completed",
			&passed,
			4207,
			"out/curry-addresses.csv",
			pgxmock.AnyArg(), // fill-in created_at
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := st.RecordRun(context.Background(), Run{
		Source:      "sources/us/or/curry.json",
		Layer:       "addresses",
		LayerSource: "county",
		Status:      RunStatusCompleted,
		TestsPassed: &passed,
		Rows:        4207,
		OutputPath:  "out/curry-addresses.csv",
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	st, mock := newMockPostgres(t)

	passed := true
	path := "out/curry-addresses.csv"
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .* FROM runs").
		WithArgs("completed", 10).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "source", "layer", "layer_source", "status",
			"tests_passed", "rows", "output_path", "created_at",
		}).AddRow(
			"run-1", "curry.json", "addresses", "county", RunStatusCompleted,
			&passed, 4207, &path, created,
		))

	runs, err := st.ListRuns(context.Background(), RunFilter{
		Status: RunStatusCompleted,
		Limit:  10,
	})

	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, RunStatusCompleted, runs[0].Status)
	require.NotNil(t, runs[0].TestsPassed)
	assert.True(t, *runs[0].TestsPassed)
	assert.Equal(t, "out/curry-addresses.csv", runs[0].OutputPath)
	assert.Equal(t, created, runs[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRunsQueryError(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT .* FROM runs").
		WillReturnError(assert.AnError)

	_, err := st.ListRuns(context.Background(), RunFilter{})
	assert.Error(t, err)
}
