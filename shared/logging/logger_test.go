package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "monitor.log")

	logger, closer, err := New(Options{Level: "info", File: path, Console: &console, NoColor: true})
	require.NoError(t, err)

	logger.Info().Str("video_id", "abc123").Msg("Saved summary")
	logger.Debug().Msg("hidden at info level")
	require.NoError(t, closer.Close())

	assert.Contains(t, console.String(), "Saved summary")
	assert.Contains(t, console.String(), "video_id=abc123")
	assert.NotContains(t, console.String(), "hidden at info level")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "abc123", entry["video_id"])
	assert.Equal(t, "Saved summary", entry["message"])
}

func TestNewWithoutFile(t *testing.T) {
	var console bytes.Buffer
	logger, closer, err := New(Options{Console: &console, NoColor: true})
	require.NoError(t, err)
	require.NotNil(t, closer)

	logger.Warn().Msg("no file")
	assert.Contains(t, console.String(), "no file")
	assert.NoError(t, closer.Close())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"verbose", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}
