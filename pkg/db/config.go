// Package db opens the relational store behind the policy search service,
// applies its schema migrations and serializes them across replicas.
package db

import (
	"errors"
	"fmt"
	"time"
)

// Supported database types.
const (
	TypePostgres = "postgres"
	TypeMySQL    = "mysql"
	TypeSQLite   = "sqlite"
)

var (
	// ErrDSNRequired is returned when no connection string is configured.
	ErrDSNRequired = errors.New("database DSN is required")

	// ErrUnsupportedType is returned for an unknown database type.
	ErrUnsupportedType = errors.New("unsupported database type")
)

// Config holds connection and pool settings. Credentials only ever arrive
// through DSN, which has no default.
type Config struct {
	Type               string
	DSN                string
	MaxOpenConns       int           // Default 10.
	MaxIdleConns       int           // Default 5.
	ConnMaxLifetime    time.Duration // Default 30m.
	SlowQueryThreshold time.Duration // Queries slower than this are logged. Default 200ms, 0 disables.
	Debug              bool          // Log every statement (without bound values).
}

// DefaultConfig returns the default database configuration.
func DefaultConfig() *Config {
	return &Config{
		Type:               TypePostgres,
		MaxOpenConns:       10,
		MaxIdleConns:       5,
		ConnMaxLifetime:    30 * time.Minute,
		SlowQueryThreshold: 200 * time.Millisecond,
	}
}

// Validate reports configuration errors that would prevent connecting.
func (c *Config) Validate() error {
	switch c.Type {
	case TypePostgres, TypeMySQL, TypeSQLite:
	default:
		return fmt.Errorf("%w: %q (expected postgres, mysql or sqlite)", ErrUnsupportedType, c.Type)
	}
	if c.DSN == "" {
		return ErrDSNRequired
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return fmt.Errorf("connection pool sizes must be non-negative (open=%d, idle=%d)", c.MaxOpenConns, c.MaxIdleConns)
	}
	return nil
}
