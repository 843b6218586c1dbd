package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := NewVersionCommand("1.2.3")
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)
	assert.Contains(t, out.String(), "leapdb 1.2.3")
}

func TestRedactConnString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "password hidden",
			input:    "postgres://admin:hunter2@db:5432/app",
			expected: "postgres://admin:xxxxx@db:5432/app",
		},
		{
			name:     "no credentials untouched",
			input:    "postgres://db:5432/app",
			expected: "postgres://db:5432/app",
		},
		{
			name:     "bare path untouched",
			input:    "/var/data/app.db",
			expected: "/var/data/app.db",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, redactConnString(tt.input))
		})
	}
}

func TestStatementComplete(t *testing.T) {
	assert.True(t, statementComplete("SELECT 1;"))
	assert.True(t, statementComplete("SELECT 1;  "))
	assert.False(t, statementComplete("SELECT 1"))
	assert.False(t, statementComplete("SELECT *"))
}

func TestQueryCommand_RequiresConnection(t *testing.T) {
	cmd := NewQueryCommand()
	flag := cmd.Flags().Lookup("connection")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}
