// Package config loads service settings from defaults, an optional YAML
// file and the environment, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Ledger drivers.
const (
	LedgerMemory   = "memory"
	LedgerPostgres = "postgres"
	LedgerSQLite   = "sqlite"
)

// Storage providers for retained outputs.
const (
	StorageNone    = "none"
	StorageLocalFS = "localfs"
	StorageGDrive  = "gdrive"
)

// Config holds every setting the binaries read.
type Config struct {
	HTTPPort        string
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string
	LogSource bool

	WorkspaceRoot     string
	WorkspaceSweepAge time.Duration
	MaxUploadBytes    int64
	RequestTimeout    time.Duration
	MaxConcurrent     int

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	LedgerDriver         string
	DatabaseURL          string
	SQLitePath           string
	LedgerMemoryCapacity int

	RedisAddr string

	StorageProvider  string
	StorageLocalRoot string
	GDriveClientID   string
	GDriveSecret     string
	GDriveRefreshTok string
	GDriveFolderID   string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", "8080")
	v.SetDefault("shutdown_timeout", "30s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("log_source", false)
	v.SetDefault("workspace_root", "./data")
	v.SetDefault("workspace_sweep_age", "1h")
	v.SetDefault("max_upload_mb", 50)
	v.SetDefault("request_timeout", "150s")
	v.SetDefault("max_concurrent_conversions", runtime.NumCPU())
	v.SetDefault("cors_allowed_origins", "*")
	v.SetDefault("rate_limit_rps", 0)
	v.SetDefault("rate_limit_burst", 10)
	v.SetDefault("ledger_driver", LedgerMemory)
	v.SetDefault("database_url", "")
	v.SetDefault("sqlite_path", "./data/ledger.db")
	v.SetDefault("ledger_memory_capacity", 500)
	v.SetDefault("redis_addr", "")
	v.SetDefault("storage_provider", StorageNone)
	v.SetDefault("storage_local_root", "./data/retained")
	v.SetDefault("gdrive_client_id", "")
	v.SetDefault("gdrive_client_secret", "")
	v.SetDefault("gdrive_refresh_token", "")
	v.SetDefault("gdrive_folder_id", "")
	v.SetDefault("config_file", "")
}

// Load reads configuration. An explicit path (or CONFIG_FILE) must exist;
// otherwise ./fileconv.yaml is used when present.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("config_file")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("fileconv")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		HTTPPort:        v.GetString("http_port"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogSource: v.GetBool("log_source"),

		WorkspaceRoot:     v.GetString("workspace_root"),
		WorkspaceSweepAge: v.GetDuration("workspace_sweep_age"),
		MaxUploadBytes:    v.GetInt64("max_upload_mb") << 20,
		RequestTimeout:    v.GetDuration("request_timeout"),
		MaxConcurrent:     v.GetInt("max_concurrent_conversions"),

		CORSAllowedOrigins: stringList(v, "cors_allowed_origins"),
		RateLimitRPS:       v.GetFloat64("rate_limit_rps"),
		RateLimitBurst:     v.GetInt("rate_limit_burst"),

		LedgerDriver:         strings.ToLower(v.GetString("ledger_driver")),
		DatabaseURL:          v.GetString("database_url"),
		SQLitePath:           v.GetString("sqlite_path"),
		LedgerMemoryCapacity: v.GetInt("ledger_memory_capacity"),

		RedisAddr: v.GetString("redis_addr"),

		StorageProvider:  strings.ToLower(v.GetString("storage_provider")),
		StorageLocalRoot: v.GetString("storage_local_root"),
		GDriveClientID:   v.GetString("gdrive_client_id"),
		GDriveSecret:     v.GetString("gdrive_client_secret"),
		GDriveRefreshTok: v.GetString("gdrive_refresh_token"),
		GDriveFolderID:   v.GetString("gdrive_folder_id"),
	}
}

// Validate rejects settings the binaries cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.WorkspaceRoot == "" {
		errs = append(errs, errors.New("WORKSPACE_ROOT must not be empty"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}
	if c.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("MAX_CONCURRENT_CONVERSIONS must be positive"))
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS must not be negative"))
	}
	// The sweeper must never reach the upload or work dir of a job that is
	// still inside its request.
	if c.WorkspaceSweepAge > 0 && c.WorkspaceSweepAge <= c.RequestTimeout {
		errs = append(errs, fmt.Errorf("WORKSPACE_SWEEP_AGE (%s) must exceed REQUEST_TIMEOUT (%s)",
			c.WorkspaceSweepAge, c.RequestTimeout))
	}

	switch c.LedgerDriver {
	case LedgerMemory:
	case LedgerPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres ledger"))
		}
	case LedgerSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite ledger"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LEDGER_DRIVER %q", c.LedgerDriver))
	}

	switch c.StorageProvider {
	case StorageNone:
	case StorageLocalFS:
		if c.StorageLocalRoot == "" {
			errs = append(errs, errors.New("STORAGE_LOCAL_ROOT is required for localfs storage"))
		}
	case StorageGDrive:
		for key, val := range map[string]string{
			"GDRIVE_CLIENT_ID":     c.GDriveClientID,
			"GDRIVE_CLIENT_SECRET": c.GDriveSecret,
			"GDRIVE_REFRESH_TOKEN": c.GDriveRefreshTok,
		} {
			if val == "" {
				errs = append(errs, fmt.Errorf("%s is required for gdrive storage", key))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_PROVIDER %q", c.StorageProvider))
	}

	return errors.Join(errs...)
}

// stringList accepts either a YAML sequence or a comma separated string.
func stringList(v *viper.Viper, key string) []string {
	var raw []string
	switch val := v.Get(key).(type) {
	case []any, []string:
		raw = v.GetStringSlice(key)
	default:
		raw = strings.Split(fmt.Sprint(val), ",")
	}

	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
