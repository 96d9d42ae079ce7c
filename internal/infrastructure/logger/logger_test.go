package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{
			name: "console format",
			cfg:  &Config{Level: "debug", Format: "console", Output: "stdout"},
		},
		{
			name: "json format",
			cfg:  &Config{Level: "info", Format: "json", Output: "stderr"},
		},
		{
			name: "defaults applied for empty output and time format",
			cfg:  &Config{Level: "warn", Format: "json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			require.NoError(t, err)
			require.NotNil(t, logger)
			// Sync on stdout/stderr can fail with EINVAL, flush only
			_ = logger.Sync()
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "app.log")

	logger, err := New(&Config{Level: "info", Format: "json", Output: logPath})
	require.NoError(t, err)

	logger.Info("payment receipt created", zap.String("receipt_number", "PR-20240601-00001"))
	require.NoError(t, logger.Sync())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "payment receipt created")
	assert.Contains(t, string(content), "PR-20240601-00001")
}

func TestNew_RespectsLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "app.log")

	logger, err := New(&Config{Level: "warn", Format: "json", Output: logPath})
	require.NoError(t, err)

	logger.Info("should be filtered")
	logger.Warn("should be written")
	require.NoError(t, logger.Sync())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "should be filtered")
	assert.Contains(t, string(content), "should be written")
}

func TestNewForEnvironment(t *testing.T) {
	tests := []struct {
		name string
		env  string
	}{
		{name: "development", env: "development"},
		{name: "production", env: "production"},
		{name: "unknown env falls back to development settings", env: "staging"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewForEnvironment(tt.env)
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"nonsense", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestSync(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "app.log")
	logger, err := New(&Config{Level: "info", Format: "json", Output: logPath})
	require.NoError(t, err)

	logger.Info("buffered entry")
	assert.NoError(t, Sync(logger))
}
