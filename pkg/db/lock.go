package db

import (
	"context"
	"fmt"
	"hash/crc32"
	"os"
	"time"

	"gorm.io/gorm"
)

// MigrationLocker serializes schema migrations between replicas starting
// at the same time.
type MigrationLocker interface {
	// WithLock runs fn while holding the migration lock and releases the
	// lock when fn returns, whatever its outcome.
	WithLock(ctx context.Context, fn func() error) error
}

const migrationLockName = "policy-search-migration"

// NewMigrationLocker picks a locker for the dialect of gormDB. PostgreSQL
// uses a session advisory lock; MySQL and SQLite use a lock table.
func NewMigrationLocker(gormDB *gorm.DB) (MigrationLocker, error) {
	if gormDB == nil {
		return NoopLocker{}, nil
	}
	if gormDB.Dialector.Name() == TypePostgres {
		return &advisoryLock{
			db:     gormDB,
			lockID: int64(crc32.ChecksumIEEE([]byte(migrationLockName))),
		}, nil
	}
	// The lock table must exist before the first caller races for it.
	if err := gormDB.AutoMigrate(&migrationLockRow{}); err != nil {
		return nil, fmt.Errorf("create migration lock table: %w", err)
	}
	return &tableLock{
		db:            gormDB,
		retries:       30,
		retryInterval: time.Second,
		staleAfter:    5 * time.Minute,
	}, nil
}

// NoopLocker runs fn without any locking. Used for single-replica setups.
type NoopLocker struct{}

func (NoopLocker) WithLock(_ context.Context, fn func() error) error {
	return fn()
}

// advisoryLock holds pg_advisory_lock on one dedicated connection, since
// advisory locks belong to the session that took them.
type advisoryLock struct {
	db     *gorm.DB
	lockID int64
}

func (l *advisoryLock) WithLock(ctx context.Context, fn func() error) error {
	return l.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := conn.Exec("SELECT pg_advisory_lock(?)", l.lockID).Error; err != nil {
			return fmt.Errorf("acquire migration advisory lock: %w", err)
		}
		defer conn.Exec("SELECT pg_advisory_unlock(?)", l.lockID)

		return fn()
	})
}

// migrationLockRow is the single row held while a migration runs.
type migrationLockRow struct {
	ID       string    `gorm:"primaryKey;column:id;type:varchar(64)"`
	LockedAt time.Time `gorm:"column:locked_at"`
	LockedBy string    `gorm:"column:locked_by"`
}

func (migrationLockRow) TableName() string { return "migration_lock" }

// tableLock takes the lock by inserting a fixed primary key. Rows older than
// staleAfter are treated as left behind by a crashed holder and removed.
type tableLock struct {
	db            *gorm.DB
	retries       int
	retryInterval time.Duration
	staleAfter    time.Duration
}

func (l *tableLock) WithLock(ctx context.Context, fn func() error) error {
	holder, _ := os.Hostname()
	if holder == "" {
		holder = "unknown"
	}

	var lastErr error
	acquired := false
	for attempt := 0; attempt < l.retries; attempt++ {
		l.db.WithContext(ctx).
			Where("id = ? AND locked_at < ?", migrationLockName, time.Now().Add(-l.staleAfter)).
			Delete(&migrationLockRow{})

		row := migrationLockRow{ID: migrationLockName, LockedAt: time.Now(), LockedBy: holder}
		if lastErr = l.db.WithContext(ctx).Create(&row).Error; lastErr == nil {
			acquired = true
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retryInterval):
		}
	}
	if !acquired {
		return fmt.Errorf("acquire migration lock after %d attempts: %w", l.retries, lastErr)
	}

	defer l.db.Where("id = ?", migrationLockName).Delete(&migrationLockRow{})

	return fn()
}
