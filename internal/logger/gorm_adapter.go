package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// maxLoggedSQL caps statement text in log records. A batch insert for a
// long upload renders every row inline.
const maxLoggedSQL = 512

// GormLoggerAdapter sends datastore statements to a module logger: every
// statement at trace, failures and slow statements at warn.
type GormLoggerAdapter struct {
	logger        Logger
	slowThreshold time.Duration
}

// NewGormLoggerAdapter returns an adapter for the datastore. slowThreshold 0
// turns slow statement warnings off.
func NewGormLoggerAdapter(log Logger, slowThreshold time.Duration) *GormLoggerAdapter {
	if log == nil {
		log = Global().Module("datastore")
	}
	return &GormLoggerAdapter{logger: log, slowThreshold: slowThreshold}
}

func (a *GormLoggerAdapter) LogMode(gormlogger.LogLevel) gormlogger.Interface { return a }

func (a *GormLoggerAdapter) Info(_ context.Context, format string, args ...any) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}

func (a *GormLoggerAdapter) Warn(_ context.Context, format string, args ...any) {
	a.logger.Warn(fmt.Sprintf(format, args...))
}

func (a *GormLoggerAdapter) Error(_ context.Context, format string, args ...any) {
	a.logger.Error(fmt.Sprintf(format, args...))
}

func (a *GormLoggerAdapter) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	took := time.Since(begin)
	stmt, rows := fc()
	fields := []Field{
		String("op", statementVerb(stmt)),
		String("sql", clipSQL(stmt)),
		Int64("rows", rows),
		Int64("duration_ms", took.Milliseconds()),
	}

	// a missing species row is a normal cache miss
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		a.logger.Warn("statement failed", append(fields, Error(err))...)
		return
	}
	if a.slowThreshold > 0 && took > a.slowThreshold {
		a.logger.Warn("slow statement", append(fields, Duration("threshold", a.slowThreshold))...)
		return
	}
	a.logger.Trace("statement", fields...)
}

func statementVerb(stmt string) string {
	verb, _, _ := strings.Cut(strings.TrimSpace(stmt), " ")
	return strings.ToUpper(verb)
}

func clipSQL(stmt string) string {
	if len(stmt) <= maxLoggedSQL {
		return stmt
	}
	return fmt.Sprintf("%s... (%d bytes)", stmt[:maxLoggedSQL], len(stmt))
}
