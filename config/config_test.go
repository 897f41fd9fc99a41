package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/reviewhub-client/config"
	"github.com/krisalay/reviewhub-client/eviction"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reviewhub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
api_url: https://reviews.example.vn/api
cache:
  stale_time: 2m
  eviction: fifo
  capacity: 500
log:
  level: debug
  format: json
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://reviews.example.vn/api", cfg.APIURL)
	assert.Equal(t, 2*time.Minute, cfg.Cache.StaleTime)
	assert.Equal(t, 500, cfg.Cache.Capacity)
	assert.Equal(t, eviction.FIFO, cfg.EvictionPolicy())
	assert.Equal(t, "debug", cfg.Log.Level)

	// untouched keys keep their defaults
	assert.Equal(t, 16, cfg.Cache.Shards)
	assert.Equal(t, 5*time.Minute, cfg.Cache.GCTime)
	assert.Equal(t, 30*time.Second, cfg.Cache.FetchTimeout)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "api_url: https://a.example/api\n")
	t.Setenv("REVIEWHUB_API_URL", "https://b.example/api")
	t.Setenv("REVIEWHUB_CACHE_STALE_TIME", "45s")
	t.Setenv("REVIEWHUB_RETRY_MAX_RETRIES", "0")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://b.example/api", cfg.APIURL)
	assert.Equal(t, 45*time.Second, cfg.Cache.StaleTime)
	assert.Equal(t, 0, cfg.RetryPolicy().MaxRetries)
}

func TestMissingExplicitFileFails(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"relative url":   "api_url: /api\n",
		"bad eviction":   "cache:\n  eviction: random\n",
		"zero shards":    "cache:\n  shards: 0\n",
		"bad log format": "log:\n  format: xml\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestRetryPolicyKeepsJitter(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "retry:\n  initial_backoff: 1s\n"))
	require.NoError(t, err)

	p := cfg.RetryPolicy()
	assert.Equal(t, time.Second, p.InitialBackoff)
	assert.Equal(t, 2.0, p.Multiplier)
	assert.InDelta(t, 0.2, p.Jitter, 1e-9)
}
