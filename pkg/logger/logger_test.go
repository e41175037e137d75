package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	cases := []struct {
		level   string
		debugOn bool
		infoOn  bool
		warnOn  bool
	}{
		{level: "debug", debugOn: true, infoOn: true, warnOn: true},
		{level: "info", debugOn: false, infoOn: true, warnOn: true},
		{level: "", debugOn: false, infoOn: true, warnOn: true},
		{level: "warn", debugOn: false, infoOn: false, warnOn: true},
		{level: "error", debugOn: false, infoOn: false, warnOn: false},
	}

	for _, tc := range cases {
		t.Run("level "+tc.level, func(t *testing.T) {
			logger, err := New(tc.level)
			require.NoError(t, err)
			defer logger.Sync()

			core := logger.Core()
			assert.Equal(t, tc.debugOn, core.Enabled(zapcore.DebugLevel))
			assert.Equal(t, tc.infoOn, core.Enabled(zapcore.InfoLevel))
			assert.Equal(t, tc.warnOn, core.Enabled(zapcore.WarnLevel))
		})
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loud")
}
