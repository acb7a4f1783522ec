package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// gormLogger routes GORM statement logging to a logr.Logger. Bound values
// are never logged, only the parameterized SQL.
type gormLogger struct {
	log           logr.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger returns a GORM logger writing to log. It starts at warn
// level: errors and slow queries only.
func NewGormLogger(log logr.Logger, slowThreshold time.Duration) gormlogger.Interface {
	return &gormLogger{
		log:           log.WithName("gorm"),
		level:         gormlogger.Warn,
		slowThreshold: slowThreshold,
	}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *gormLogger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.log.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.log.Info(fmt.Sprintf(msg, args...), "severity", "warn")
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.log.Error(nil, fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.Error(err, "query failed", "sql", sql, "rows", rows, "elapsed", elapsed.String())
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log.Info("slow query", "severity", "warn", "sql", sql, "rows", rows,
			"elapsed", elapsed.String(), "threshold", l.slowThreshold.String())
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.log.V(1).Info("query", "sql", sql, "rows", rows, "elapsed", elapsed.String())
	}
}

// ParamsFilter drops bound values so search terms never reach the log.
func (l *gormLogger) ParamsFilter(_ context.Context, sql string, _ ...any) (string, []any) {
	return sql, nil
}
