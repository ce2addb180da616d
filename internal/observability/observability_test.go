package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"stockroom/internal/config"
)

func TestNewLoggerLevels(t *testing.T) {
	logger, err := NewLogger("debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger("warn")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.ErrorLevel))
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger("loud")
	assert.Error(t, err)
}

func TestSetupOTelSDKDisabled(t *testing.T) {
	shutdown, err := SetupOTelSDK(context.Background(), &config.Config{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestWithOTelBridgeKeepsConsoleLevel(t *testing.T) {
	logger, err := NewLogger("warn")
	require.NoError(t, err)

	bridged := WithOTelBridge(logger)
	assert.True(t, bridged.Core().Enabled(zapcore.ErrorLevel))
	assert.NotPanics(t, func() {
		bridged.Error("bridged record")
	})
}
