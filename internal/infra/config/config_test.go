package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "stdout", cfg.Log.Output)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 300*time.Millisecond, cfg.Player.PrepareDelay())
	assert.Equal(t, 180*time.Second, cfg.Player.DefaultDuration())
	assert.Equal(t, 16, cfg.Player.CommandBuffer)
	assert.Equal(t, 32, cfg.Notification.HistorySize)
	assert.Empty(t, cfg.Relays)
	assert.False(t, cfg.ControlEnabled())
}

func TestParse_FullFile(t *testing.T) {
	data := []byte(`
server:
  addr: "127.0.0.1:9090"
  hooks:
    on_started: ["echo", "up"]
control:
  token: "secret"
player:
  prepare_delay_ms: 0
  default_duration_sec: 30
notification:
  history_size: 8
relays:
  - type: log
    name: console
    settings:
      level: debug
  - type: nats
    settings:
      url: "nats://localhost:4222"
      subject_prefix: "playsync"
filters:
  duration_limit_filter:
    enabled: true
    settings:
      max_minutes: 90
  source_scheme_filter:
    enabled: false
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, []string{"echo", "up"}, cfg.Server.Hooks.OnStarted)
	assert.True(t, cfg.ControlEnabled())
	require.NotNil(t, cfg.Player.PrepareDelayMs)
	assert.Equal(t, time.Duration(0), cfg.Player.PrepareDelay())
	assert.Equal(t, 30, cfg.Player.DefaultDurationSec)
	assert.Equal(t, 8, cfg.Notification.HistorySize)
	require.Len(t, cfg.Relays, 2)
	assert.Equal(t, "log", cfg.Relays[0].Type)
	assert.Equal(t, "console", cfg.Relays[0].Name)
	assert.Equal(t, "nats://localhost:4222", cfg.Relays[1].Settings["url"])
	assert.True(t, cfg.Filters["duration_limit_filter"].Enabled)
	assert.False(t, cfg.Filters["source_scheme_filter"].Enabled)
	assert.Equal(t, 90, cfg.Filters["duration_limit_filter"].Settings["max_minutes"])
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{
			name:   "prepare delay too large",
			yaml:   "player:\n  prepare_delay_ms: 20000\n",
			errMsg: "PrepareDelayMs",
		},
		{
			name:   "negative duration",
			yaml:   "player:\n  default_duration_sec: -1\n",
			errMsg: "DefaultDurationSec",
		},
		{
			name:   "unknown relay type",
			yaml:   "relays:\n  - type: kafka\n",
			errMsg: "Type",
		},
		{
			name:   "missing relay type",
			yaml:   "relays:\n  - name: x\n",
			errMsg: "Type",
		},
		{
			name:   "unknown log level",
			yaml:   "log:\n  level: trace\n",
			errMsg: "Level",
		},
		{
			name:   "file output without path",
			yaml:   "log:\n  output: file\n",
			errMsg: "log.file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("server: ["))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv(EnvControlToken, "from-env")
	t.Setenv(EnvNATSURL, "nats://env:4222")

	cfg, err := Parse([]byte(`
control:
  token: "from-file"
relays:
  - type: log
  - type: nats
`))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Control.Token)
	assert.Nil(t, cfg.Relays[0].Settings)
	assert.Equal(t, "nats://env:4222", cfg.Relays[1].Settings["url"])
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":7070\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestDefault(t *testing.T) {
	t.Setenv(EnvControlToken, "")

	cfg := Default()
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 180, cfg.Player.DefaultDurationSec)
	assert.False(t, cfg.ControlEnabled())
}
