// Package logger builds the process's zap.Logger, ported from the teacher's
// internal/logger with the context-threading helpers trimmed: every
// component here takes a *zap.Logger explicitly through its constructor
// instead of fishing one out of a context.Context.
package logger

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewProductionLogger creates a new production-ready ZAP logger.
// It logs at INFO level and above to stderr in JSON format.
func NewProductionLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		// Fallback to nop logger if all else fails (should never happen)
		return zap.NewNop()
	}

	return logger
}

// NewDevelopmentLogger creates a new development-friendly ZAP logger.
// It logs at DEBUG level and above to stderr in human-readable console format.
func NewDevelopmentLogger() *zap.Logger {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	logger, err := config.Build()
	if err != nil {
		// Fallback to nop logger if all else fails
		return zap.NewNop()
	}

	return logger
}

// NewLoggerFromEnv creates a logger based on the OPENCLAW_ENV environment variable.
// If OPENCLAW_ENV=development, it creates a development logger.
// Otherwise, it creates a production logger.
func NewLoggerFromEnv() *zap.Logger {
	env := os.Getenv("OPENCLAW_ENV")
	if env == "development" || env == "dev" {
		return NewDevelopmentLogger()
	}
	return NewProductionLogger()
}

// QueryLogAdapter adapts zl to pgx's tracelog.LoggerFunc signature, so the
// connection pool's SQL query logs flow through the same ZAP logger as
// everything else. See internal/store.Connect for the wiring.
func QueryLogAdapter(zl *zap.Logger) func(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]interface{}) {
	return func(_ context.Context, level tracelog.LogLevel, msg string, data map[string]interface{}) {
		fields := make([]zap.Field, 0, len(data)+1)
		fields = append(fields, zap.String("pgx_level", fmt.Sprint(level)))
		for k, v := range data {
			fields = append(fields, zap.Any(k, v))
		}
		zl.Debug(msg, fields...)
	}
}
