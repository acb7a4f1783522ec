package db

import (
	"fmt"
	"log/slog"

	"github.com/glebarez/sqlite"
	"github.com/go-logr/logr"
	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the configured database and sizes its connection pool.
// The returned pool is shared by the whole process; callers acquire and
// release connections per operation.
func Open(cfg *Config, logger *slog.Logger) (*gorm.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	sqlLogger := NewGormLogger(logr.FromSlogHandler(logger.Handler()), cfg.SlowQueryThreshold)
	if cfg.Debug {
		sqlLogger = sqlLogger.LogMode(gormlogger.Info)
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{Logger: sqlLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Type, err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.Info("connected to database",
		"type", cfg.Type,
		"maxOpenConns", cfg.MaxOpenConns,
		"maxIdleConns", cfg.MaxIdleConns)

	return gormDB, nil
}

// Close releases the pool behind gormDB.
func Close(gormDB *gorm.DB) error {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(cfg *Config) (gorm.Dialector, error) {
	switch cfg.Type {
	case TypePostgres:
		return postgres.Open(cfg.DSN), nil
	case TypeMySQL:
		dsn, err := mysqlDSN(cfg.DSN, false)
		if err != nil {
			return nil, err
		}
		return mysql.Open(dsn), nil
	case TypeSQLite:
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, cfg.Type)
	}
}

// mysqlDSN forces the driver options the schema depends on: DATE columns
// scan into time.Time, and migration files may hold several statements.
func mysqlDSN(dsn string, multiStatements bool) (string, error) {
	parsed, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql DSN: %w", err)
	}
	parsed.ParseTime = true
	if multiStatements {
		parsed.MultiStatements = true
	}
	return parsed.FormatDSN(), nil
}
