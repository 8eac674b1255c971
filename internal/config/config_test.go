package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "./data", cfg.WorkspaceRoot)
	assert.Equal(t, int64(50<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 150*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, LedgerMemory, cfg.LedgerDriver)
	assert.Equal(t, StorageNone, cfg.StorageProvider)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Positive(t, cfg.MaxConcurrent)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("LEDGER_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/ledger.db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("REQUEST_TIMEOUT", "2m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Equal(t, LedgerSQLite, cfg.LedgerDriver)
	assert.Equal(t, "/tmp/ledger.db", cfg.SQLitePath)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	body := []byte(`
http_port: "7070"
workspace_root: /srv/fileconv
cors_allowed_origins:
  - http://localhost:5173
max_concurrent_conversions: 3
`)
	require.NoError(t, os.WriteFile(path, body, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.HTTPPort)
	assert.Equal(t, "/srv/fileconv", cfg.WorkspaceRoot)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 3, cfg.MaxConcurrent)
}

func TestLoadEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fileconv.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: \"7070\"\n"), 0o644))
	t.Setenv("HTTP_PORT", "6060")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "6060", cfg.HTTPPort)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			WorkspaceRoot:     "./data",
			WorkspaceSweepAge: time.Hour,
			MaxUploadBytes:    1 << 20,
			RequestTimeout:    150 * time.Second,
			MaxConcurrent:     1,
			LedgerDriver:      LedgerMemory,
			StorageProvider:   StorageNone,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty workspace", func(c *Config) { c.WorkspaceRoot = "" }, "WORKSPACE_ROOT"},
		{"postgres without url", func(c *Config) { c.LedgerDriver = LedgerPostgres }, "DATABASE_URL"},
		{"unknown ledger", func(c *Config) { c.LedgerDriver = "mongo" }, "LEDGER_DRIVER"},
		{"gdrive without creds", func(c *Config) { c.StorageProvider = StorageGDrive }, "GDRIVE_REFRESH_TOKEN"},
		{"unknown storage", func(c *Config) { c.StorageProvider = "s3" }, "STORAGE_PROVIDER"},
		{"zero concurrency", func(c *Config) { c.MaxConcurrent = 0 }, "MAX_CONCURRENT_CONVERSIONS"},
		{"negative rate", func(c *Config) { c.RateLimitRPS = -1 }, "RATE_LIMIT_RPS"},
		{"sweep age below request timeout", func(c *Config) { c.WorkspaceSweepAge = time.Minute }, "WORKSPACE_SWEEP_AGE"},
		{"sweep age equal to request timeout", func(c *Config) { c.WorkspaceSweepAge = c.RequestTimeout }, "WORKSPACE_SWEEP_AGE"},
		{"sweeper disabled", func(c *Config) { c.WorkspaceSweepAge = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
