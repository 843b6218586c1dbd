package export

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdb/internal/orchestrator"
	"github.com/leapstack-labs/leapdb/pkg/backend"
)

func sampleData() orchestrator.ExportData {
	return orchestrator.ExportData{
		Columns: []string{"id", "name", "note"},
		Rows: []backend.Row{
			{"id": 1, "name": "alice", "note": nil},
			{"id": 2, "name": "bob, jr.", "note": `said "hi"`},
		},
	}
}

func TestWriter_CSV(t *testing.T) {
	var buf bytes.Buffer
	err := NewWriter(&buf).Export(context.Background(), sampleData(), orchestrator.ExportOptions{
		Format:         orchestrator.FormatCSV,
		IncludeHeaders: true,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "id,name,note\n")
	assert.Contains(t, out, `"bob, jr."`, "commas in values are quoted")
	assert.Contains(t, out, `"said ""hi"""`, "quotes in values are doubled")
}

func TestWriter_CSVWithoutHeaders(t *testing.T) {
	var buf bytes.Buffer
	err := NewWriter(&buf).Export(context.Background(), sampleData(), orchestrator.ExportOptions{
		Format: orchestrator.FormatCSV,
	})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "id,name,note")
}

func TestWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	err := NewWriter(&buf).Export(context.Background(), sampleData(), orchestrator.ExportOptions{
		Format: orchestrator.FormatJSON,
	})
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "alice", decoded[0]["name"])
	assert.Nil(t, decoded[0]["note"])
}

func TestWriter_JSONEmptyRowsIsEmptyArray(t *testing.T) {
	var buf bytes.Buffer
	err := NewWriter(&buf).Export(context.Background(),
		orchestrator.ExportData{Columns: []string{"id"}},
		orchestrator.ExportOptions{Format: orchestrator.FormatJSON})
	require.NoError(t, err)
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriter_Table(t *testing.T) {
	var buf bytes.Buffer
	err := NewWriter(&buf).Export(context.Background(), sampleData(), orchestrator.ExportOptions{
		Format:         orchestrator.FormatTable,
		IncludeHeaders: true,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "(2 rows)")
}

func TestWriter_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := NewWriter(&buf).Export(context.Background(), sampleData(), orchestrator.ExportOptions{
		Format: "parquet",
	})
	require.Error(t, err)
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{name: "nil", input: nil, expected: ""},
		{name: "string", input: "x", expected: "x"},
		{name: "int", input: 42, expected: "42"},
		{name: "bool", input: true, expected: "true"},
		{name: "bytes", input: []byte("raw"), expected: "raw"},
		{name: "timestamp", input: ts, expected: "2025-06-01T12:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatValue(tt.input))
		})
	}
}
