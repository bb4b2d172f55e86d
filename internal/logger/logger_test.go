package logger

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/stretchr/testify/assert"
)

func TestNewProductionLogger(t *testing.T) {
	logger := NewProductionLogger()
	assert.NotNil(t, logger)

	// Should not panic when logging
	logger.Info("Test production logger")
}

func TestNewDevelopmentLogger(t *testing.T) {
	logger := NewDevelopmentLogger()
	assert.NotNil(t, logger)

	// Should not panic when logging
	logger.Debug("Test development logger")
}

func TestNewLoggerFromEnv_DefaultsToProduction(t *testing.T) {
	t.Setenv("OPENCLAW_ENV", "")

	logger := NewLoggerFromEnv()
	assert.NotNil(t, logger)
}

func TestNewLoggerFromEnv_Development(t *testing.T) {
	t.Setenv("OPENCLAW_ENV", "development")

	logger := NewLoggerFromEnv()
	assert.NotNil(t, logger)
}

func TestQueryLogAdapter_DoesNotPanic(t *testing.T) {
	zl := NewDevelopmentLogger()
	adapter := QueryLogAdapter(zl)

	assert.NotPanics(t, func() {
		adapter(context.Background(), tracelog.LogLevelWarn, "query executed", map[string]interface{}{
			"sql":  "select 1",
			"args": []interface{}{1},
		})
	})
}
