package observability

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowQueryThreshold = 200 * time.Millisecond

// GormLogger routes GORM's query log into zap without bound parameters.
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger logs slow queries and errors at warn level by default.
func NewGormLogger(logger *zap.Logger) *GormLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormLogger{logger: logger, level: gormlogger.Warn, slowThreshold: defaultSlowQueryThreshold}
}

func (gormLogger *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	copied := *gormLogger
	copied.level = level
	return &copied
}

func (gormLogger *GormLogger) Info(_ context.Context, message string, data ...any) {
	if gormLogger.level >= gormlogger.Info {
		gormLogger.logger.Info(message, zap.String("component", "gorm"), zap.Any("data", data))
	}
}

func (gormLogger *GormLogger) Warn(_ context.Context, message string, data ...any) {
	if gormLogger.level >= gormlogger.Warn {
		gormLogger.logger.Warn(message, zap.String("component", "gorm"), zap.Any("data", data))
	}
}

func (gormLogger *GormLogger) Error(_ context.Context, message string, data ...any) {
	if gormLogger.level >= gormlogger.Error {
		gormLogger.logger.Error(message, zap.String("component", "gorm"), zap.Any("data", data))
	}
}

// Trace treats record-not-found as expected; repositories map it to domain errors.
func (gormLogger *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if gormLogger.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound) && gormLogger.level >= gormlogger.Error:
		sql, rows := fc()
		gormLogger.logger.Error("gorm.query", queryFields(sql, rows, elapsed, err)...)
	case elapsed > gormLogger.slowThreshold && gormLogger.level >= gormlogger.Warn:
		sql, rows := fc()
		gormLogger.logger.Warn("gorm.slow_query", queryFields(sql, rows, elapsed, nil)...)
	case gormLogger.level >= gormlogger.Info:
		sql, rows := fc()
		gormLogger.logger.Debug("gorm.query", queryFields(sql, rows, elapsed, nil)...)
	}
}

// ParamsFilter drops bound values; answers and user ids must not reach the log.
func (gormLogger *GormLogger) ParamsFilter(_ context.Context, sql string, _ ...any) (string, []any) {
	return sql, nil
}

func queryFields(sql string, rows int64, elapsed time.Duration, err error) []zap.Field {
	fields := []zap.Field{
		zap.String("component", "gorm"),
		zap.String("sql", strings.TrimSpace(sql)),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows_affected", rows))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	return fields
}

var _ gormlogger.Interface = (*GormLogger)(nil)
