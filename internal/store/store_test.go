package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentarena/agentarena/internal/compare"
	"github.com/agentarena/agentarena/internal/logging"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testBatch(id string) *compare.Batch {
	ts := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	return &compare.Batch{
		ID:        id,
		Prompt:    "compare this",
		Region:    "us-west-2",
		StartedAt: ts,
		Duration:  1500 * time.Millisecond,
		Results: map[string]compare.Result{
			"A": {Success: true, Response: "Hello!", Model: "A", Timestamp: ts, Duration: time.Second},
			"B": {Success: false, Error: "boom", Model: "B", Timestamp: ts, Duration: 500 * time.Millisecond},
		},
	}
}

// --- DB/Migration tests ---

func TestOpenInMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
}

func TestMigrationsApplied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestMigrationsIdempotent(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.migrate())

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestSchemaTablesExist(t *testing.T) {
	db := testDB(t)

	for _, table := range []string{"batches", "results"} {
		var name string
		err := db.sql.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

// --- HistoryStore tests ---

func TestSaveAndGetBatch(t *testing.T) {
	hs := NewHistoryStore(testDB(t))

	original := testBatch("batch-1")
	require.NoError(t, hs.SaveBatch(original))

	loaded, err := hs.GetBatch("batch-1")
	require.NoError(t, err)

	assert.Equal(t, original.ID, loaded.ID)
	assert.Equal(t, original.Prompt, loaded.Prompt)
	assert.Equal(t, original.Region, loaded.Region)
	assert.Equal(t, original.Duration, loaded.Duration)
	require.Len(t, loaded.Results, 2)

	a := loaded.Results["A"]
	assert.True(t, a.Success)
	assert.Equal(t, "Hello!", a.Response)
	assert.Equal(t, time.Second, a.Duration)

	b := loaded.Results["B"]
	assert.False(t, b.Success)
	assert.Equal(t, "boom", b.Error)
}

func TestGetBatchNotFound(t *testing.T) {
	hs := NewHistoryStore(testDB(t))

	_, err := hs.GetBatch("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListBatchesNewestFirst(t *testing.T) {
	hs := NewHistoryStore(testDB(t))

	older := testBatch("old")
	older.StartedAt = time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	newer := testBatch("new")
	newer.StartedAt = time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	require.NoError(t, hs.SaveBatch(older))
	require.NoError(t, hs.SaveBatch(newer))

	summaries, err := hs.ListBatches(10)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "new", summaries[0].ID)
	assert.Equal(t, "old", summaries[1].ID)
	assert.Equal(t, 2, summaries[0].Agents)
	assert.Equal(t, 1, summaries[0].Failures)
}

func TestListBatchesLimit(t *testing.T) {
	hs := NewHistoryStore(testDB(t))

	for _, id := range []string{"b1", "b2", "b3"} {
		b := testBatch(id)
		require.NoError(t, hs.SaveBatch(b))
	}

	summaries, err := hs.ListBatches(2)
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
}

func TestClear(t *testing.T) {
	hs := NewHistoryStore(testDB(t))

	require.NoError(t, hs.SaveBatch(testBatch("batch-1")))
	require.NoError(t, hs.Clear())

	summaries, err := hs.ListBatches(10)
	require.NoError(t, err)
	assert.Empty(t, summaries)

	// cascade removed the results too
	var count int
	err = hs.db.sql.QueryRow("SELECT COUNT(*) FROM results").Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSaveBatchDuplicateIDFails(t *testing.T) {
	hs := NewHistoryStore(testDB(t))

	require.NoError(t, hs.SaveBatch(testBatch("dup")))
	assert.Error(t, hs.SaveBatch(testBatch("dup")))
}
