package compare

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBatch() *Batch {
	ts := time.Date(2026, 8, 26, 10, 30, 0, 0, time.UTC)
	return &Batch{
		ID:        "batch-1",
		Prompt:    "hello",
		Region:    "us-west-2",
		StartedAt: ts,
		Duration:  2 * time.Second,
		Results: map[string]Result{
			"A": {Success: true, Response: "Hello!", Model: "A", Timestamp: ts},
			"B": {Success: false, Error: "boom", Model: "B", Timestamp: ts},
		},
	}
}

func TestMarshalExport(t *testing.T) {
	data, err := sampleBatch().MarshalExport()
	require.NoError(t, err)

	var entries map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)

	a := entries["A"]
	assert.Equal(t, true, a["success"])
	assert.Equal(t, "Hello!", a["response"])
	assert.Equal(t, "A", a["model"])
	assert.Equal(t, "2026-08-26 10:30:00", a["timestamp"])
	assert.NotContains(t, a, "error")

	b := entries["B"]
	assert.Equal(t, false, b["success"])
	assert.Equal(t, "boom", b["error"])
	assert.NotContains(t, b, "response")
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2026, 8, 26, 10, 30, 45, 0, time.UTC)
	assert.Equal(t, "agentarena_comparison_20260826_103045.json", ExportFilename(now))
}

func TestWriteExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, sampleBatch().WriteExport(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hello!")
}

func TestSummaryOrdered(t *testing.T) {
	rows := sampleBatch().Summary([]string{"B", "A"})
	require.Len(t, rows, 2)

	assert.Equal(t, "B", rows[0].Model)
	assert.False(t, rows[0].Success)
	assert.Zero(t, rows[0].ResponseLength, "failed entries report no response length")

	assert.Equal(t, "A", rows[1].Model)
	assert.True(t, rows[1].Success)
	assert.Equal(t, len("Hello!"), rows[1].ResponseLength)
}

func TestSummaryUnorderedSortsByName(t *testing.T) {
	rows := sampleBatch().Summary(nil)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Model)
	assert.Equal(t, "B", rows[1].Model)
}

func TestSummarySkipsUnknownNames(t *testing.T) {
	rows := sampleBatch().Summary([]string{"A", "missing"})
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].Model)
}
