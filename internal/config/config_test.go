package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".bloggera.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, 30, cfg.Feed.Sample)
	assert.Equal(t, 0, cfg.Feed.MaxExcluded)
	assert.Equal(t, int64(5*1024*1024), cfg.Compose.MaxImageBytes)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "table", cfg.Output.Format)
	assert.NotEmpty(t, cfg.Session.Path)
}

func TestLoad_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://api.bloggera.test
  timeout: 5s
feed:
  sample: 10
  max_excluded: 200
session:
  path: /tmp/bloggera-session.json
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.bloggera.test", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 10, cfg.Feed.Sample)
	assert.Equal(t, 200, cfg.Feed.MaxExcluded)
	assert.Equal(t, "/tmp/bloggera-session.json", cfg.Session.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("BLOGGERA_API_BASE_URL", "http://env.example:9000")
	t.Setenv("BLOGGERA_FEED_SAMPLE", "12")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env.example:9000", cfg.API.BaseURL)
	assert.Equal(t, 12, cfg.Feed.Sample)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad base url", "api:\n  base_url: not-a-url\n"},
		{"bad scheme", "api:\n  base_url: ftp://host\n"},
		{"bad level", "logging:\n  level: verbose\n"},
		{"bad log format", "logging:\n  format: xml\n"},
		{"bad output", "output:\n  format: csv\n"},
		{"zero sample", "feed:\n  sample: 0\n"},
		{"negative cap", "feed:\n  max_excluded: -1\n"},
		{"bad sample ratio", "tracing:\n  sample_ratio: 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, "127.0.0.1:5173", cfg.Serve.Addr)
	assert.Equal(t, 10*time.Minute, cfg.Cache.CategoriesTTL)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
	assert.NoError(t, validate(cfg))
}
