package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policydesk/policy-search/pkg/db"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Empty(t, cfg.Server.AllowedOrigins)

	assert.Equal(t, db.TypePostgres, cfg.Database.Type)
	assert.Empty(t, cfg.Database.DSN, "no credential may have a default")
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 200*time.Millisecond, cfg.Database.SlowQueryThreshold)

	assert.Equal(t, 200, cfg.Search.MaxQueryLength)
	assert.False(t, cfg.Audit.Enabled)
	assert.Equal(t, 90, cfg.Audit.RetentionDays)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Migrate.Lock)
	assert.False(t, cfg.Migrate.OnStart)
}

func TestLoad_DefaultsFailValidationWithoutDSN(t *testing.T) {
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.ErrorIs(t, cfg.Validate(), db.ErrDSNRequired)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("POLICY_SEARCH_DATABASE_TYPE", "mysql")
	t.Setenv("POLICY_SEARCH_DATABASE_DSN", "user:secret@tcp(localhost:3306)/policies")
	t.Setenv("POLICY_SEARCH_SEARCH_MAX_QUERY_LENGTH", "64")
	t.Setenv("POLICY_SEARCH_SERVER_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("POLICY_SEARCH_AUDIT_ENABLED", "true")

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, db.TypeMySQL, cfg.Database.Type)
	assert.Equal(t, "user:secret@tcp(localhost:3306)/policies", cfg.Database.DSN)
	assert.Equal(t, 64, cfg.Search.MaxQueryLength)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Audit.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_LegacyDatabaseEnv(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("DATABASE_DSN", "file:policies.db")

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, db.TypeSQLite, cfg.Database.Type)
	assert.Equal(t, "file:policies.db", cfg.Database.DSN)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy-search.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen: ":9090"
  allowed_origins:
    - https://portal.example
database:
  type: sqlite
  dsn: "file::memory:"
  slow_query_threshold: 1s
log:
  format: json
`), 0o600))

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, []string{"https://portal.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, db.TypeSQLite, cfg.Database.Type)
	assert.Equal(t, time.Second, cfg.Database.SlowQueryThreshold)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBindFlags_OverrideEnvironment(t *testing.T) {
	t.Setenv("POLICY_SEARCH_DATABASE_DSN", "from-env")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	AddServerFlags(fs)
	require.NoError(t, fs.Parse([]string{"--db-dsn=from-flag", "--listen=:7000", "--audit", "--migrate"}))

	v := NewViper()
	require.NoError(t, BindFlags(v, fs))
	cfg, err := Load(v, "")
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.Database.DSN)
	assert.Equal(t, ":7000", cfg.Server.Listen)
	assert.True(t, cfg.Audit.Enabled)
	assert.True(t, cfg.Migrate.OnStart)
}

func TestBindFlags_UnsetFlagKeepsDefault(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse(nil))

	v := NewViper()
	require.NoError(t, BindFlags(v, fs))
	cfg, err := Load(v, "")
	require.NoError(t, err)

	assert.Equal(t, db.TypePostgres, cfg.Database.Type)
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	cfg.Database.Type = "oracle"
	cfg.Search.MaxQueryLength = -1
	cfg.Audit.RetentionDays = -5

	err = cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrUnsupportedType)
	assert.Contains(t, err.Error(), KeySearchMaxQueryLength)
	assert.Contains(t, err.Error(), KeyAuditRetentionDays)
}
