package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/carter2099/best-bets/internal/config"
)

func TestNewFallsBackToInfoOnUnknownLevel(t *testing.T) {
	l, err := New(config.LogConfig{Level: "loud", Encoding: "json"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNewHonoursDebug(t *testing.T) {
	l, err := New(config.LogConfig{Level: "DEBUG", Encoding: "console", Sampling: true})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
