package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreGlobal(t *testing.T) {
	t.Helper()
	prev := zlog.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		zlog.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"DEBUG":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestComponent(t *testing.T) {
	restoreGlobal(t)
	var buf bytes.Buffer
	InitJSON(&buf, "info")

	l := Component("bridge")
	l.Info().Msg("hello")
	l.Debug().Msg("filtered")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "bridge", entry["component"])
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "info", entry["level"])
}

func TestInit_File(t *testing.T) {
	restoreGlobal(t)
	path := filepath.Join(t.TempDir(), "playsync.log")

	closeFn, err := Init(Config{Output: "file", Level: "debug", File: path})
	require.NoError(t, err)
	zlog.Debug().Msg("to file")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"to file"`)
	assert.Contains(t, string(data), `"caller"`)
}

func TestInit_FileWithoutPath(t *testing.T) {
	restoreGlobal(t)
	_, err := Init(Config{Output: "file"})
	require.Error(t, err)
}

func TestInit_Console(t *testing.T) {
	restoreGlobal(t)
	closeFn, err := Init(Config{Output: "stderr", Level: "warn"})
	require.NoError(t, err)
	assert.NoError(t, closeFn())
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}
