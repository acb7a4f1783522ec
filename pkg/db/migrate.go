package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

//go:embed migrations
var migrationFiles embed.FS

// Migrator brings the schema up to date. PostgreSQL and MySQL run the
// versioned SQL migrations embedded in this package; SQLite, used for
// development and tests, is auto-migrated from the GORM models.
type Migrator struct {
	cfg    *Config
	db     *gorm.DB
	locker MigrationLocker
	models []any
	logger *slog.Logger
}

// NewMigrator creates a Migrator. models are the GORM models auto-migrated
// on SQLite. A nil locker disables locking.
func NewMigrator(cfg *Config, gormDB *gorm.DB, locker MigrationLocker, logger *slog.Logger, models ...any) *Migrator {
	if locker == nil {
		locker = NoopLocker{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{
		cfg:    cfg,
		db:     gormDB,
		locker: locker,
		models: models,
		logger: logger,
	}
}

// Up applies all pending migrations while holding the migration lock.
func (m *Migrator) Up(ctx context.Context) error {
	return m.locker.WithLock(ctx, func() error {
		if m.cfg.Type == TypeSQLite {
			if err := m.db.WithContext(ctx).AutoMigrate(m.models...); err != nil {
				return fmt.Errorf("auto-migrate sqlite schema: %w", err)
			}
			m.logger.Info("database schema auto-migrated", "type", m.cfg.Type, "models", len(m.models))
			return nil
		}
		return m.runVersioned()
	})
}

func (m *Migrator) runVersioned() error {
	source, err := iofs.New(migrationFiles, "migrations/"+m.cfg.Type)
	if err != nil {
		return fmt.Errorf("load %s migrations: %w", m.cfg.Type, err)
	}

	sqlDB, driver, err := m.openMigrationDriver()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	runner, err := migrate.NewWithInstance("iofs", source, m.cfg.Type, driver)
	if err != nil {
		return fmt.Errorf("create migration runner: %w", err)
	}

	if err := runner.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := runner.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	m.logger.Info("database migrations applied", "type", m.cfg.Type, "version", version, "dirty", dirty)
	return nil
}

// openMigrationDriver opens a dedicated database/sql handle for the
// migration run, separate from the GORM pool.
func (m *Migrator) openMigrationDriver() (*sql.DB, database.Driver, error) {
	switch m.cfg.Type {
	case TypePostgres:
		sqlDB, err := sql.Open("postgres", m.cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres migration connection: %w", err)
		}
		driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
		if err != nil {
			sqlDB.Close()
			return nil, nil, fmt.Errorf("create postgres migration driver: %w", err)
		}
		return sqlDB, driver, nil
	case TypeMySQL:
		dsn, err := mysqlDSN(m.cfg.DSN, true)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql migration connection: %w", err)
		}
		driver, err := migratemysql.WithInstance(sqlDB, &migratemysql.Config{})
		if err != nil {
			sqlDB.Close()
			return nil, nil, fmt.Errorf("create mysql migration driver: %w", err)
		}
		return sqlDB, driver, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q has no versioned migrations", ErrUnsupportedType, m.cfg.Type)
	}
}
