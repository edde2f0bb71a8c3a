package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0600))
	return configFile
}

func TestLoadAPIConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *APIConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
server:
  host: 127.0.0.1
  port: 9090
database:
  host: localhost
  port: 5432
  user: testuser
  password: testpass
  dbname: testdb
  sslmode: require
nats:
  url: "nats://localhost:4222"
  stream_name: "TEST_STREAM"
  max_reconnects: 5
  reconnect_wait: "5s"
  connection_name: "test-connection"
ethereum:
  rpc_url: "http://localhost:8545"
  operator_key: "abc123"
ledger:
  variant: aggregate
  release_window: "720h"
auth:
  api_keys:
    - test-key
`,
			expectError: false,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
				assert.Equal(t, "TEST_STREAM", cfg.NATS.StreamName)
				assert.Equal(t, 5, cfg.NATS.MaxReconnects)
				assert.Equal(t, "http://localhost:8545", cfg.Ethereum.RPCURL)
				assert.Equal(t, "aggregate", cfg.Ledger.Variant)
				assert.Equal(t, 720*time.Hour, cfg.Ledger.ReleaseWindow)
				assert.Equal(t, []string{"test-key"}, cfg.Auth.APIKeys)
			},
		},
		{
			name: "config with defaults",
			configFile: `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
nats:
  url: "nats://localhost:4222"
`,
			expectError: false,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, 10, cfg.NATS.MaxReconnects)
				assert.Equal(t, "VESTING_EVENTS", cfg.NATS.StreamName)
				assert.Equal(t, "schedule", cfg.Ledger.Variant)
				assert.Equal(t, 1440*time.Hour, cfg.Ledger.ReleaseWindow)
				assert.Equal(t, 2*time.Minute, cfg.Ethereum.ReceiptTimeout)
			},
		},
		{
			name: "invalid ledger variant",
			configFile: `
database:
  host: localhost
ledger:
  variant: hybrid
`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile := writeConfig(t, tt.configFile)

			cfg, err := LoadAPIConfig(configFile, t.TempDir())
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestLoadSweeperConfig(t *testing.T) {
	configFile := writeConfig(t, `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
nats:
  url: "nats://localhost:4222"
release_sweeper:
  interval: "30m"
  worker:
    pool_size: 4
`)

	cfg, err := LoadSweeperConfig(configFile, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.ReleaseSweeper.Interval)
	assert.Equal(t, 4, cfg.ReleaseSweeper.Worker.WorkerPoolSize)
	assert.Equal(t, 100, cfg.ReleaseSweeper.Worker.WorkerQueueSize)
	assert.Equal(t, 5, cfg.Database.MaxOpenConns)
}

func TestLoadSweeperConfigMissingDatabase(t *testing.T) {
	configFile := writeConfig(t, `
nats:
  url: "nats://localhost:4222"
`)

	_, err := LoadSweeperConfig(configFile, t.TempDir())
	assert.ErrorContains(t, err, "database.host is required")
}

func TestChdirRepoRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/vesting\n"), 0600))
	nested := filepath.Join(root, "cmd", "api")
	require.NoError(t, os.MkdirAll(nested, 0700))

	t.Chdir(nested)
	ChdirRepoRoot()

	cwd, err := os.Getwd()
	require.NoError(t, err)
	resolvedRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	resolvedCwd, err := filepath.EvalSymlinks(cwd)
	require.NoError(t, err)
	assert.Equal(t, resolvedRoot, resolvedCwd)
}

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "vesting",
		Password: "secret",
		DBName:   "vesting",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=vesting password=secret dbname=vesting sslmode=disable",
		cfg.DSN())
}
