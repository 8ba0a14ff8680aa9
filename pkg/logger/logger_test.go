package logger

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xqcrawl/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug"}, false},
		{"empty level defaults to info", &config.LoggingConfig{}, false},
		{"invalid level", &config.LoggingConfig{Level: "loud"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestNewWithFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "xqcrawl.log")
	l, err := New(&config.LoggingConfig{Level: "info", File: path})
	require.NoError(t, err)
	l.Info("file sink works")

	assert.FileExists(t, path)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"trace", zerolog.NoLevel, true},
	}
	for _, tt := range tests {
		got, err := parseLogLevel(tt.level)
		if tt.wantErr {
			assert.Error(t, err, "level %q", tt.level)
			continue
		}
		require.NoError(t, err, "level %q", tt.level)
		assert.Equal(t, tt.expected, got, "level %q", tt.level)
	}
}

func TestWithFieldsReturnsChildLogger(t *testing.T) {
	l := Nop()
	child := l.WithFields(map[string]interface{}{"user_id": 77})
	assert.NotNil(t, child)
	child.Info("no panic")
}

func TestGetLoggerWithoutInitialize(t *testing.T) {
	assert.NotNil(t, GetLogger())
}
