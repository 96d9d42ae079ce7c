package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowThreshold = 200 * time.Millisecond

// GormLogger adapts a zap logger to GORM's logger interface.
type GormLogger struct {
	core               *zap.Logger
	sugar              *zap.SugaredLogger
	level              gormlogger.LogLevel
	slowThreshold      time.Duration
	skipRecordNotFound bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the elapsed time above which a query is logged as slow
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowThreshold = threshold
	}
}

// WithIgnoreRecordNotFoundError controls whether gorm.ErrRecordNotFound is logged
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) {
		l.skipRecordNotFound = ignore
	}
}

// NewGormLogger wraps zapLogger for use as a GORM logger
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	named := zapLogger.Named("gorm")
	gl := &GormLogger{
		core:               named,
		sugar:              named.Sugar(),
		level:              level,
		slowThreshold:      defaultSlowThreshold,
		skipRecordNotFound: true,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.sugar.Infof(msg, data...)
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.sugar.Warnf(msg, data...)
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.sugar.Errorf(msg, data...)
	}
}

// Trace logs each executed statement with elapsed time, affected rows
// and the correlation identifiers carried by the request context.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := l.traceFields(ctx, elapsed, rows, sql)

	if err != nil {
		if l.skipRecordNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		if l.level >= gormlogger.Error {
			l.core.Error("SQL Error", append(fields, zap.Error(err))...)
		}
		return
	}

	if l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn {
		l.core.Warn("SLOW SQL", append(fields, zap.Duration("threshold", l.slowThreshold))...)
		return
	}

	if l.level >= gormlogger.Info {
		l.core.Debug("SQL Query", fields...)
	}
}

func (l *GormLogger) traceFields(ctx context.Context, elapsed time.Duration, rows int64, sql string) []zap.Field {
	fields := make([]zap.Field, 0, 5)
	fields = append(fields,
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if actorID := GetActorID(ctx); actorID != "" {
		fields = append(fields, zap.String("actor_id", actorID))
	}
	return fields
}

var gormLevelNames = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
	"debug":  gormlogger.Info,
}

// MapGormLogLevel translates an application log level into a GORM one.
// Unknown levels fall back to Warn.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	if mapped, ok := gormLevelNames[level]; ok {
		return mapped
	}
	return gormlogger.Warn
}
