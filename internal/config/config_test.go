package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validConfig() Config {
	return Config{
		Websocket: WebsocketConfig{
			Host:            "0.0.0.0",
			Port:            8081,
			ReadTimeout:     5 * time.Minute,
			WriteTimeout:    10 * time.Second,
			PingInterval:    30 * time.Second,
			MaxMessageBytes: 4096,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestWebsocketAddr(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "0.0.0.0:8081", cfg.Websocket.Addr())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	err := os.WriteFile(path, []byte(`
websocket:
  host: 127.0.0.1
  port: 9000
  read_timeout: 5m
  write_timeout: 10s
  ping_interval: 20s
  max_message_bytes: 2048
logging:
  level: debug
  format: console
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Websocket.Host)
	assert.Equal(t, 9000, cfg.Websocket.Port)
	assert.Equal(t, 20*time.Second, cfg.Websocket.PingInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	err := os.WriteFile(path, []byte(`
websocket:
  host: 127.0.0.1
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Websocket.Port)
	assert.Equal(t, int64(4096), cfg.Websocket.MaxMessageBytes)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestValidateWebsocketHostEmpty(t *testing.T) {
	cfg := validConfig()
	cfg.Websocket.Host = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateWebsocketPort(t *testing.T) {
	cfg := validConfig()
	cfg.Websocket.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Websocket.Port = 65536
	assert.Error(t, cfg.Validate())
}

func TestValidateReadTimeoutZeroAllowed(t *testing.T) {
	// Zero read timeout disables the deadline entirely.
	cfg := validConfig()
	cfg.Websocket.ReadTimeout = 0
	assert.NoError(t, cfg.Validate())
}

func TestValidatePingIntervalExceedsReadTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Websocket.ReadTimeout = 10 * time.Second
	cfg.Websocket.PingInterval = 30 * time.Second
	assert.Error(t, cfg.Validate())
}

func TestValidateMaxMessageBytes(t *testing.T) {
	cfg := validConfig()
	cfg.Websocket.MaxMessageBytes = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), "level %q should be valid", level)
	}
	cfg := validConfig()
	cfg.Logging.Level = "trace"
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingFormat(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		cfg := validConfig()
		cfg.Logging.Format = format
		assert.NoError(t, cfg.Validate(), "format %q should be valid", format)
	}
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}

// Property-based tests

func TestPropertyValidPortRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		port := rapid.IntRange(1, 65535).Draw(t, "port")
		cfg := validConfig()
		cfg.Websocket.Port = port
		err := cfg.Validate()
		if err != nil {
			t.Fatalf("valid port %d rejected: %v", port, err)
		}
	})
}

func TestPropertyInvalidPortRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		// Generate ports outside valid range
		port := rapid.OneOf(
			rapid.IntRange(-1000, 0),
			rapid.IntRange(65536, 100000),
		).Draw(t, "port")
		cfg := validConfig()
		cfg.Websocket.Port = port
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("invalid port %d accepted", port)
		}
	})
}

func TestPropertyPingShorterThanReadTimeout(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		readSecs := rapid.IntRange(2, 3600).Draw(t, "read_secs")
		pingSecs := rapid.IntRange(1, readSecs-1).Draw(t, "ping_secs")
		cfg := validConfig()
		cfg.Websocket.ReadTimeout = time.Duration(readSecs) * time.Second
		cfg.Websocket.PingInterval = time.Duration(pingSecs) * time.Second
		err := cfg.Validate()
		if err != nil {
			t.Fatalf("valid ping=%ds read=%ds rejected: %v", pingSecs, readSecs, err)
		}
	})
}
