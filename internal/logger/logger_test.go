package logger

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPrepareLogger(t *testing.T) {
	ctx := context.Background()
	newCtx, logger := PrepareLogger(ctx)

	assert.NotNil(t, logger)
	assert.NotNil(t, newCtx)
	assert.NotEqual(t, ctx, newCtx)

	retrievedLogger := GetLogger(newCtx)
	assert.Equal(t, logger, retrievedLogger)
}

func TestGetLogger_WithLogger(t *testing.T) {
	ctx := context.Background()
	ctx, logger := PrepareLogger(ctx)

	retrievedLogger := GetLogger(ctx)
	assert.NotNil(t, retrievedLogger)
	assert.Equal(t, logger, retrievedLogger)
}

func TestGetLogger_WithoutLogger(t *testing.T) {
	ctx := context.Background()

	logger := GetLogger(ctx)
	assert.NotNil(t, logger)
}

func TestGetLogger_NilContext(t *testing.T) {
	logger := GetLogger(nil)
	assert.NotNil(t, logger)
}

// TestWithFields exercises the run_id/table correlation pattern
// TradesTable.Index attaches to every log line inside one ingestion run.
func TestWithFields(t *testing.T) {
	ctx := context.Background()
	ctx, _ = PrepareLogger(ctx)

	newCtx := WithFields(ctx, zap.String("run_id", "3f1d9b1a-0000-0000-0000-000000000000"), zap.String("table", "TRADES"))

	logger := GetLogger(newCtx)
	assert.NotNil(t, logger)

	// The logger should carry the fields (can't easily assert on the
	// encoded output without capturing logs); at least verify it doesn't
	// panic and that the sub-logger was stored back in the context.
	logger.Info("indexed file")
	assert.NotSame(t, GetLogger(ctx), logger)
}

// TestWithComponent checks that a component sub-logger, here named after a
// pair, is stored in the context and usable.
func TestWithComponent(t *testing.T) {
	ctx := context.Background()
	ctx, _ = PrepareLogger(ctx)

	newCtx := WithComponent(ctx, "BTCUSDC")

	logger := GetLogger(newCtx)
	assert.NotNil(t, logger)

	logger.Info("downloading pair")
}

func TestWithLogger(t *testing.T) {
	ctx := context.Background()
	customLogger := NewDevelopmentLogger()

	newCtx := WithLogger(ctx, customLogger)

	retrievedLogger := GetLogger(newCtx)
	assert.Equal(t, customLogger, retrievedLogger)
}

func TestNewProductionLogger(t *testing.T) {
	logger := NewProductionLogger()
	assert.NotNil(t, logger)

	logger.Info("inserter summary", zap.Uint64("rows", 1000))
}

func TestNewDevelopmentLogger(t *testing.T) {
	logger := NewDevelopmentLogger()
	assert.NotNil(t, logger)

	logger.Debug("fetching pairs")
}

// TestNewLoggerFromEnv covers the LOG_LEVEL switch cmd/ingest relies on to
// pick a development logger locally and a production (JSON) logger
// otherwise, per SPEC_FULL.md's ambient logging section.
func TestNewLoggerFromEnv_DefaultsToProduction(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	logger := NewLoggerFromEnv()
	assert.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	logger.Info("run started")
}

func TestNewLoggerFromEnv_DebugSelectsDevelopmentLogger(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	logger := NewLoggerFromEnv()
	assert.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
	logger.Debug("listing objects under prefix")
}

func TestNewLoggerFromEnv_UnsetEnvDoesNotEnableDebug(t *testing.T) {
	assert.NoError(t, os.Unsetenv("LOG_LEVEL"))

	logger := NewLoggerFromEnv()
	assert.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestSync(t *testing.T) {
	ctx := context.Background()
	ctx, _ = PrepareLogger(ctx)

	err := Sync(ctx)
	// Sync may return an error on some systems (e.g. syncing stdout), so we
	// don't assert on it, only that calling it doesn't panic.
	_ = err
}

func TestPrepareLoggerWithConfig(t *testing.T) {
	ctx := context.Background()
	config := zap.NewDevelopmentConfig()

	newCtx, logger := PrepareLoggerWithConfig(ctx, config)

	assert.NotNil(t, logger)
	assert.NotNil(t, newCtx)

	retrievedLogger := GetLogger(newCtx)
	assert.Equal(t, logger, retrievedLogger)
}
