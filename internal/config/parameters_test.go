package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/isometry/linear-agent-app/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
global:
  mode: lambda
linear:
  webhookSecret: from-file
  timestampTolerance: 2m
agent:
  model: claude-test
store:
  backend: sql
  sql:
    driver: postgres
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	require.NoError(t, config.LoadFromFile(path))
	require.NoError(t, config.SetDefaults())

	assert.Equal(t, config.ModeLambda, config.Global.Mode)
	assert.Equal(t, "from-file", config.Linear.WebhookSecret)
	assert.Equal(t, 2*time.Minute, config.Linear.TimestampTolerance)
	assert.Equal(t, "/webhook", config.Linear.WebhookPath)
	assert.Equal(t, "claude-test", config.Agent.Model)
	assert.Equal(t, uint(4096), config.Agent.MaxTokens)
	assert.Equal(t, config.StoreBackendSQL, config.Store.Backend)
	assert.Equal(t, "postgres", config.Store.SQL.Driver)
	assert.Equal(t, []string{"read", "write", "app:assignable", "app:mentionable"}, config.Linear.OAuth.Scopes)
}

func TestLoadFromFileErrors(t *testing.T) {
	testCases := []struct {
		Name        string
		Path        func(t *testing.T) string
		ExpectError bool
	}{
		{
			Name: "empty_path",
			Path: func(*testing.T) string { return "" },
		},
		{
			Name: "missing_file",
			Path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.yaml") },
		},
		{
			Name:        "directory",
			Path:        func(t *testing.T) string { return t.TempDir() },
			ExpectError: true,
		},
		{
			Name: "invalid_yaml",
			Path: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "invalid.yaml")
				require.NoError(t, os.WriteFile(p, []byte("global: [unterminated"), 0o600))
				return p
			},
			ExpectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			err := config.LoadFromFile(tc.Path(t))
			assert.Equal(t, tc.ExpectError, err != nil, "error: %v", err)
		})
	}
}
