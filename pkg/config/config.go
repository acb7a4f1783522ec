// Package config loads policy-search settings from flags, environment
// variables (POLICY_SEARCH_ prefix) and an optional YAML file, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/policydesk/policy-search/pkg/audit"
	"github.com/policydesk/policy-search/pkg/db"
	"github.com/policydesk/policy-search/pkg/logging"
	"github.com/policydesk/policy-search/pkg/policy"
)

// EnvPrefix is prepended to every environment variable key.
const EnvPrefix = "POLICY_SEARCH"

// Configuration keys.
const (
	KeyServerListen          = "server.listen"
	KeyServerReadTimeout     = "server.read_timeout"
	KeyServerWriteTimeout    = "server.write_timeout"
	KeyServerShutdownTimeout = "server.shutdown_timeout"
	KeyServerAllowedOrigins  = "server.allowed_origins"

	KeyDatabaseType               = "database.type"
	KeyDatabaseDSN                = "database.dsn"
	KeyDatabaseMaxOpenConns       = "database.max_open_conns"
	KeyDatabaseMaxIdleConns       = "database.max_idle_conns"
	KeyDatabaseConnMaxLifetime    = "database.conn_max_lifetime"
	KeyDatabaseSlowQueryThreshold = "database.slow_query_threshold"
	KeyDatabaseDebug              = "database.debug"

	KeySearchMaxQueryLength = "search.max_query_length"

	KeyAuditEnabled       = "audit.enabled"
	KeyAuditRetentionDays = "audit.retention_days"

	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"

	KeyMigrateLock    = "migrate.lock"
	KeyMigrateOnStart = "migrate.on_start"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Listen          string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// Config is the complete process configuration.
type Config struct {
	Server   ServerConfig
	Database *db.Config
	Search   *policy.ServiceConfig
	Audit    *audit.Config
	Log      *logging.Config
	Migrate  MigrateConfig
}

// MigrateConfig controls schema migrations.
type MigrateConfig struct {
	Lock    bool // Serialize migrations across replicas. Default true.
	OnStart bool // Run migrations before serving. Default false.
}

// NewViper returns a viper instance with defaults and environment binding
// in place. DATABASE_DSN and DATABASE_TYPE are honoured as fallbacks for
// deployments that already export them.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	dbDefaults := db.DefaultConfig()
	searchDefaults := policy.DefaultServiceConfig()
	auditDefaults := audit.DefaultConfig()
	logDefaults := logging.DefaultConfig()

	v.SetDefault(KeyServerListen, ":8080")
	v.SetDefault(KeyServerReadTimeout, 15*time.Second)
	v.SetDefault(KeyServerWriteTimeout, 30*time.Second)
	v.SetDefault(KeyServerShutdownTimeout, 30*time.Second)
	v.SetDefault(KeyServerAllowedOrigins, []string{})

	v.SetDefault(KeyDatabaseType, dbDefaults.Type)
	v.SetDefault(KeyDatabaseMaxOpenConns, dbDefaults.MaxOpenConns)
	v.SetDefault(KeyDatabaseMaxIdleConns, dbDefaults.MaxIdleConns)
	v.SetDefault(KeyDatabaseConnMaxLifetime, dbDefaults.ConnMaxLifetime)
	v.SetDefault(KeyDatabaseSlowQueryThreshold, dbDefaults.SlowQueryThreshold)
	v.SetDefault(KeyDatabaseDebug, false)

	v.SetDefault(KeySearchMaxQueryLength, searchDefaults.MaxQueryLength)

	v.SetDefault(KeyAuditEnabled, auditDefaults.Enabled)
	v.SetDefault(KeyAuditRetentionDays, auditDefaults.RetentionDays)

	v.SetDefault(KeyLogLevel, logDefaults.Level)
	v.SetDefault(KeyLogFormat, logDefaults.Format)

	v.SetDefault(KeyMigrateLock, true)
	v.SetDefault(KeyMigrateOnStart, false)

	_ = v.BindEnv(KeyDatabaseDSN, EnvPrefix+"_DATABASE_DSN", "DATABASE_DSN")
	_ = v.BindEnv(KeyDatabaseType, EnvPrefix+"_DATABASE_TYPE", "DATABASE_TYPE")

	return v
}

// AddFlags registers the flags shared by every command that talks to the
// database.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML configuration file")
	fs.String("db-type", "", "Database type (postgres, mysql or sqlite)")
	fs.String("db-dsn", "", "Database connection string")
	fs.String("log-level", "", "Log level (debug, info, warn, error)")
	fs.String("log-format", "", "Log format (text or json)")
}

// AddServerFlags registers the flags of the serve command.
func AddServerFlags(fs *pflag.FlagSet) {
	fs.String("listen", "", "Address to listen on")
	fs.Bool("audit", false, "Record an audit event for every search request")
	fs.Bool("migrate", false, "Apply schema migrations before serving")
}

// BindFlags binds the flags registered by AddFlags and AddServerFlags that
// exist in fs to their configuration keys.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	bindings := map[string]string{
		"db-type":    KeyDatabaseType,
		"db-dsn":     KeyDatabaseDSN,
		"log-level":  KeyLogLevel,
		"log-format": KeyLogFormat,
		"listen":     KeyServerListen,
		"audit":      KeyAuditEnabled,
		"migrate":    KeyMigrateOnStart,
	}
	for flagName, key := range bindings {
		f := fs.Lookup(flagName)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %q: %w", flagName, err)
		}
	}
	return nil
}

// Load reads configFile (when non-empty) into v and assembles a Config.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Listen:          v.GetString(KeyServerListen),
			ReadTimeout:     v.GetDuration(KeyServerReadTimeout),
			WriteTimeout:    v.GetDuration(KeyServerWriteTimeout),
			ShutdownTimeout: v.GetDuration(KeyServerShutdownTimeout),
			AllowedOrigins:  splitList(v.GetStringSlice(KeyServerAllowedOrigins)),
		},
		Database: &db.Config{
			Type:               strings.ToLower(strings.TrimSpace(v.GetString(KeyDatabaseType))),
			DSN:                v.GetString(KeyDatabaseDSN),
			MaxOpenConns:       v.GetInt(KeyDatabaseMaxOpenConns),
			MaxIdleConns:       v.GetInt(KeyDatabaseMaxIdleConns),
			ConnMaxLifetime:    v.GetDuration(KeyDatabaseConnMaxLifetime),
			SlowQueryThreshold: v.GetDuration(KeyDatabaseSlowQueryThreshold),
			Debug:              v.GetBool(KeyDatabaseDebug),
		},
		Search: &policy.ServiceConfig{
			MaxQueryLength: v.GetInt(KeySearchMaxQueryLength),
		},
		Audit: &audit.Config{
			Enabled:       v.GetBool(KeyAuditEnabled),
			RetentionDays: v.GetInt(KeyAuditRetentionDays),
		},
		Log: &logging.Config{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
		Migrate: MigrateConfig{
			Lock:    v.GetBool(KeyMigrateLock),
			OnStart: v.GetBool(KeyMigrateOnStart),
		},
	}
	return cfg, nil
}

// Validate reports every configuration error at once.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Database.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Search.MaxQueryLength < 0 {
		errs = append(errs, fmt.Errorf("%s must be non-negative, got %d", KeySearchMaxQueryLength, c.Search.MaxQueryLength))
	}
	if c.Audit.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("%s must be non-negative, got %d", KeyAuditRetentionDays, c.Audit.RetentionDays))
	}
	if c.Server.Listen == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyServerListen))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("%s must be non-negative", KeyServerShutdownTimeout))
	}
	return errors.Join(errs...)
}

// splitList accepts both YAML lists and comma-separated environment values.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
