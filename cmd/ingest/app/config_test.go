package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/lap-energy/internal/openf1"
	"github.com/roman-kulish/lap-energy/internal/storage"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ingest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
settings:
  logLevel: debug
  concurrency: 4
openf1:
  timeout: 45s
session:
  key: 9693
  drivers: [1, 81]
  laps: [12]
storage:
  dataDirectory: /tmp
  maxBatchSize: 250
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Settings.LogLevel)
	assert.Equal(t, 4, config.Settings.Concurrency)
	assert.Equal(t, openf1.DefaultBaseURL, config.OpenF1.BaseURL)
	assert.Equal(t, 45*time.Second, config.OpenF1.Timeout.Duration())
	assert.Equal(t, int64(9693), config.Session.Key)
	assert.Equal(t, []int{1, 81}, config.Session.Drivers)
	assert.Equal(t, []int{12}, config.Session.Laps)
	assert.Equal(t, defaultDBFile, config.Storage.DBFile)
	assert.Equal(t, 250, config.Storage.MaxBatchSize)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	config, err := LoadConfig(writeConfig(t, "session:\n  key: 9693\n"))
	require.NoError(t, err)

	assert.Equal(t, defaultLogLevel, config.Settings.LogLevel)
	assert.Equal(t, defaultConcurrency, config.Settings.Concurrency)
	assert.Equal(t, openf1.DefaultTimeout, config.OpenF1.Timeout.Duration())
	assert.Equal(t, storage.DefaultMaxBatchSize, config.Storage.MaxBatchSize)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "missing session", body: "settings:\n  logLevel: info\n", want: "session key must be positive"},
		{name: "bad driver", body: "session:\n  key: 1\n  drivers: [0]\n", want: "invalid driver number"},
		{name: "bad lap", body: "session:\n  key: 1\n  laps: [-2]\n", want: "invalid lap number"},
		{name: "short timeout", body: "openf1:\n  timeout: 200ms\nsession:\n  key: 1\n", want: "at least 1 second"},
		{name: "bad duration", body: "openf1:\n  timeout: soon\nsession:\n  key: 1\n", want: "failed to parse"},
		{name: "unknown field", body: "session:\n  key: 1\n  year: 2026\n", want: "year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
