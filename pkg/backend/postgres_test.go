package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSSLMode(t *testing.T) {
	tests := []struct {
		name         string
		connString   string
		expectedMode string
		expectedHost string
	}{
		{
			name:         "explicit disable",
			connString:   "postgres://u:p@db.example.com:5432/app?sslmode=disable",
			expectedMode: "disable",
			expectedHost: "db.example.com",
		},
		{
			name:         "verify-full",
			connString:   "postgres://u:p@db.example.com/app?sslmode=verify-full",
			expectedMode: "verify-full",
			expectedHost: "db.example.com",
		},
		{
			name:         "no sslmode defaults to prefer",
			connString:   "postgres://u:p@localhost/app",
			expectedMode: "prefer",
			expectedHost: "localhost",
		},
		{
			name:         "malformed query falls back to prefer",
			connString:   "postgres://u:p@localhost/app?sslmode=%zz",
			expectedMode: "prefer",
			expectedHost: "localhost",
		},
		{
			name:         "unparseable string falls back to prefer",
			connString:   "postgres://u:p@localhost/app\x00?sslmode=disable",
			expectedMode: "prefer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, host := parseSSLMode(tt.connString)
			assert.Equal(t, tt.expectedMode, mode)
			if tt.expectedHost != "" {
				assert.Equal(t, tt.expectedHost, host)
			}
		})
	}
}

func TestTLSForMode(t *testing.T) {
	t.Run("disable turns TLS off", func(t *testing.T) {
		assert.Nil(t, tlsForMode("disable", "h"))
	})

	t.Run("require skips verification", func(t *testing.T) {
		cfg := tlsForMode("require", "h")
		assert.NotNil(t, cfg)
		assert.True(t, cfg.InsecureSkipVerify)
	})

	t.Run("prefer skips verification", func(t *testing.T) {
		cfg := tlsForMode("prefer", "h")
		assert.NotNil(t, cfg)
		assert.True(t, cfg.InsecureSkipVerify)
	})

	t.Run("verify-ca verifies", func(t *testing.T) {
		cfg := tlsForMode("verify-ca", "db.example.com")
		assert.NotNil(t, cfg)
		assert.False(t, cfg.InsecureSkipVerify)
		assert.Equal(t, "db.example.com", cfg.ServerName)
	})

	t.Run("verify-full verifies", func(t *testing.T) {
		cfg := tlsForMode("verify-full", "db.example.com")
		assert.NotNil(t, cfg)
		assert.False(t, cfg.InsecureSkipVerify)
	})

	t.Run("unknown mode is permissive", func(t *testing.T) {
		cfg := tlsForMode("whatever", "h")
		assert.NotNil(t, cfg)
		assert.True(t, cfg.InsecureSkipVerify)
	})
}
