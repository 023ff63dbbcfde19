// Package config loads runtime settings from defaults, .env files, an
// optional config file and CLASSTRACK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"classtrack/internal/adapters/cloud"
	"classtrack/internal/domain/report"
)

// EnvPrefix is prepended to every environment variable, e.g. CLASSTRACK_DB_PATH.
const EnvPrefix = "CLASSTRACK"

// EnvProduction is the env value that enables production-only checks.
const EnvProduction = "production"

// Config is the resolved runtime configuration.
type Config struct {
	Env         string
	DBPath      string
	LogLevel    slog.Level
	Addr        string
	SlowQuery   time.Duration
	SlowRequest time.Duration
	CSRFKeyHex  string

	Sync   SyncConfig
	Report ReportConfig
	Resend ResendConfig
}

// SyncConfig configures the remote key-value endpoint.
type SyncConfig struct {
	BaseURL    string
	CodePrefix string
	Timeout    time.Duration
	Cron       string // empty disables scheduled pulls
}

// ReportConfig configures report rendering and delivery.
type ReportConfig struct {
	EmptySections report.EmptySections
	Recipients    []string
}

// ResendConfig holds e-mail provider credentials. An empty Key selects the
// logging sender.
type ResendConfig struct {
	Key  string
	From string
}

// IsProduction reports whether the production env is selected.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// New returns a viper instance with every default registered and the
// environment bound.
func New() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("env", "development")
	v.SetDefault("db_path", "classtrack.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("addr", ":8080")
	v.SetDefault("slow_query", 50*time.Millisecond)
	v.SetDefault("slow_request", 200*time.Millisecond)
	v.SetDefault("csrf_key", "")

	v.SetDefault("sync.base_url", cloud.DefaultBaseURL)
	v.SetDefault("sync.code_prefix", cloud.DefaultCodePrefix)
	v.SetDefault("sync.timeout", 10*time.Second)
	v.SetDefault("sync.cron", "")

	v.SetDefault("report.empty_sections", string(report.EmptySectionsNil))
	v.SetDefault("report.recipients", []string{})

	v.SetDefault("resend.key", "")
	v.SetDefault("resend.from", "ClassTrack <noreply@localhost>")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadDotEnv loads .env and .env.<env> from dir when they exist. Variables
// already present in the process environment win.
func LoadDotEnv(dir string) error {
	env := os.Getenv(EnvPrefix + "_ENV")
	if env == "" {
		env = "development"
	}
	for _, name := range []string{".env." + strings.ToLower(env), ".env"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: stat %s: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("config: load %s: %w", path, err)
		}
		slog.Debug("dotenv_loaded", "path", path)
	}
	return nil
}

// Load resolves the configuration from v. When file is non-empty it is read
// first (any format viper understands) and the environment still overrides it.
// POST: Returns an error for unparsable levels, durations or policies
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return Config{}, fmt.Errorf("config: log_level: %w", err)
	}
	policy, err := report.ParseEmptySections(v.GetString("report.empty_sections"))
	if err != nil {
		return Config{}, fmt.Errorf("config: report.empty_sections: %w", err)
	}
	timeout := v.GetDuration("sync.timeout")
	if timeout <= 0 {
		return Config{}, fmt.Errorf("config: sync.timeout must be positive, got %q", v.GetString("sync.timeout"))
	}

	cfg := Config{
		Env:         strings.ToLower(v.GetString("env")),
		DBPath:      v.GetString("db_path"),
		LogLevel:    level,
		Addr:        v.GetString("addr"),
		SlowQuery:   v.GetDuration("slow_query"),
		SlowRequest: v.GetDuration("slow_request"),
		CSRFKeyHex:  v.GetString("csrf_key"),
		Sync: SyncConfig{
			BaseURL:    strings.TrimRight(v.GetString("sync.base_url"), "/"),
			CodePrefix: strings.ToUpper(v.GetString("sync.code_prefix")),
			Timeout:    timeout,
			Cron:       strings.TrimSpace(v.GetString("sync.cron")),
		},
		Report: ReportConfig{
			EmptySections: policy,
			Recipients:    splitList(v.GetStringSlice("report.recipients")),
		},
		Resend: ResendConfig{
			Key:  v.GetString("resend.key"),
			From: v.GetString("resend.from"),
		},
	}
	return cfg, nil
}

// splitList flattens comma-separated entries, as env vars deliver lists as
// one string.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
