package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 30*time.Second, cfg.Relay.Interval)
	assert.Equal(t, 10, cfg.Relay.BatchSize)
	assert.Equal(t, 5, cfg.Relay.MaxAttempts)
	assert.Equal(t, []time.Duration{2 * time.Second, 5 * time.Second, 15 * time.Second, 30 * time.Second, 60 * time.Second}, cfg.Relay.Backoff)
	assert.Equal(t, 5*time.Minute, cfg.Relay.ClaimLease)
	assert.Equal(t, "kafka", cfg.Publisher.Type)
	assert.Equal(t, "market.ticks", cfg.Ingest.Topic)
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoadMergesFile(t *testing.T) {
	path := writeYAML(t, `
relay:
  batch_size: 50
  concurrency: 4
publisher:
  type: http
  http:
    base_url: http://hooks.local
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Relay.BatchSize)
	assert.Equal(t, 4, cfg.Relay.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Relay.Interval)
	assert.Equal(t, "http", cfg.Publisher.Type)
	assert.Equal(t, "http://hooks.local", cfg.Publisher.Webhook.BaseURL)
	assert.Equal(t, "/events", cfg.Publisher.Webhook.Path)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OUTBOX_RELAY_BATCH_SIZE", "25")
	t.Setenv("OUTBOX_DATABASE_DRIVER", "postgres")
	t.Setenv("OUTBOX_DATABASE_DSN", "postgres://u:p@localhost:5432/outbox")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Relay.BatchSize)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://u:p@localhost:5432/outbox", cfg.Database.DSN)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown driver", "database:\n  driver: sqlite\n"},
		{"unknown publisher", "publisher:\n  type: carrier-pigeon\n"},
		{"zero batch", "relay:\n  batch_size: 0\n"},
		{"kafka without brokers", "publisher:\n  kafka:\n    brokers: []\n"},
		{"clickhouse without dsn", "clickhouse:\n  enabled: true\n  dsn: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeYAML(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}
