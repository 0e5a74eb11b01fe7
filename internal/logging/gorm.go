package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger adapts a slog.Logger to GORM's logger.Interface.
// SQL statements are logged at DEBUG; failed and slow statements at WARN.
type GormLogger struct {
	log           *slog.Logger
	slowThreshold time.Duration
}

// NewGormLogger creates a GORM logger backed by log. A zero slowThreshold
// disables slow query warnings.
func NewGormLogger(log *slog.Logger, slowThreshold time.Duration) *GormLogger {
	if log == nil {
		log = Discard()
	}
	return &GormLogger{log: log.With("component", "gorm"), slowThreshold: slowThreshold}
}

// LogMode returns the adapter unchanged; verbosity follows the slog level.
func (g *GormLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface { return g }

func (g *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	g.log.DebugContext(ctx, fmt.Sprintf(msg, data...))
}

func (g *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	g.log.WarnContext(ctx, fmt.Sprintf(msg, data...))
}

func (g *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	g.log.ErrorContext(ctx, fmt.Sprintf(msg, data...))
}

// Trace logs one executed statement. Record-not-found is expected control
// flow for lookups and is not reported as a failure.
func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		g.log.WarnContext(ctx, "query error",
			"sql", sql, "rows_affected", rows, "duration_ms", elapsed.Milliseconds(), "error", err)
	case g.slowThreshold > 0 && elapsed > g.slowThreshold:
		g.log.WarnContext(ctx, "slow query",
			"sql", sql, "rows_affected", rows, "duration_ms", elapsed.Milliseconds(), "threshold", g.slowThreshold)
	default:
		g.log.DebugContext(ctx, "sql query",
			"sql", sql, "rows_affected", rows, "duration_ms", elapsed.Milliseconds())
	}
}
