package backend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEngineType(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  EngineType
		expectErr bool
	}{
		{name: "postgres", input: "postgres", expected: EnginePostgres},
		{name: "postgresql alias", input: "postgresql", expected: EnginePostgres},
		{name: "pg alias", input: "pg", expected: EnginePostgres},
		{name: "mysql", input: "mysql", expected: EngineMySQL},
		{name: "sqlite", input: "sqlite", expected: EngineSQLite},
		{name: "sqlite3 alias", input: "sqlite3", expected: EngineSQLite},
		{name: "mixed case with spaces", input: "  Postgres ", expected: EnginePostgres},
		{name: "unknown engine", input: "oracle", expectErr: true},
		{name: "empty", input: "", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEngineType(tt.input)
			if tt.expectErr {
				require.Error(t, err)
				var unsupported *UnsupportedEngineError
				assert.ErrorAs(t, err, &unsupported)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		engine    EngineType
		expectErr bool
	}{
		{name: "postgres", engine: EnginePostgres},
		{name: "mysql", engine: EngineMySQL},
		{name: "sqlite", engine: EngineSQLite},
		{name: "unknown", engine: "oracle", expectErr: true},
		{name: "empty", engine: "", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := New(Config{Engine: tt.engine, ConnString: "x"}, nil)
			if tt.expectErr {
				require.Error(t, err)
				assert.Nil(t, b)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.engine, b.Type())
			assert.False(t, b.Connected(), "backend must not be connected before Connect")
		})
	}
}

func TestPoolOptions_WithDefaults(t *testing.T) {
	t.Run("zero values get defaults", func(t *testing.T) {
		o := PoolOptions{}.withDefaults()
		assert.Equal(t, DefaultMaxConns, o.MaxConns)
		assert.Equal(t, DefaultIdleTimeout, o.IdleTimeout)
		assert.Equal(t, DefaultConnectTimeout, o.ConnectTimeout)
		assert.Equal(t, DefaultCloseDeadline, o.CloseDeadline)
	})

	t.Run("explicit values are kept", func(t *testing.T) {
		o := PoolOptions{
			MaxConns:       3,
			IdleTimeout:    time.Minute,
			ConnectTimeout: time.Second,
			CloseDeadline:  2 * time.Second,
		}.withDefaults()
		assert.Equal(t, 3, o.MaxConns)
		assert.Equal(t, time.Minute, o.IdleTimeout)
		assert.Equal(t, time.Second, o.ConnectTimeout)
		assert.Equal(t, 2*time.Second, o.CloseDeadline)
	})
}
