package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Levels(t *testing.T) {
	quiet, err := NewLogger(false)
	require.NoError(t, err)
	assert.False(t, quiet.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, quiet.Core().Enabled(zapcore.InfoLevel))

	verbose, err := NewLogger(true)
	require.NoError(t, err)
	assert.True(t, verbose.Core().Enabled(zapcore.DebugLevel))
}

func TestOpenDevice(t *testing.T) {
	_, err := OpenDevice("metal")
	assert.ErrorContains(t, err, "unknown device mode")

	device, err := OpenDevice("serial")
	require.NoError(t, err)
	defer device.Free()
	assert.Equal(t, "Serial", device.Mode())
}
