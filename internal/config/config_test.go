package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsbrief/internal/core"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  log_level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 10, cfg.Filter.MinTitleLength)
	assert.Equal(t, 50, cfg.Filter.MinBodyLength)
	assert.Equal(t, 72*time.Hour, cfg.Filter.MaxAge)
	assert.False(t, cfg.Routing.Difficulty.Enabled, "category table is the default behavior")
	assert.Equal(t, 300, cfg.Routing.MaxOutputTokens)
	assert.Equal(t, int64(4), cfg.Routing.Concurrency)
}

func TestLoadFullFile(t *testing.T) {
	path := writeConfig(t, `
filter:
  min_title_length: 15
  max_age: 48h
scoring:
  keywords: ["AI", "chips"]
  credibility:
    Reuters: 18
providers:
  - id: flash
    backend: mock
    model: test-model
    timeout: 10s
  - id: strong
    backend: mock
    tier: high
routing:
  default: [flash, strong]
  rules:
    AI:
      summarize: [strong, flash]
  difficulty:
    enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Filter.MinTitleLength)
	assert.Equal(t, 48*time.Hour, cfg.Filter.MaxAge)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, 10*time.Second, cfg.Providers[0].Timeout)

	opts := cfg.RouterOptions()
	assert.Equal(t, []string{"flash", "strong"}, opts.Table.Default)
	assert.Equal(t, []string{"strong", "flash"}, opts.Table.ProvidersFor(core.CategoryAI, "summarize"))
	assert.True(t, opts.Difficulty.Enabled)

	sc := cfg.ScoreConfig()
	assert.Equal(t, []string{"AI", "chips"}, sc.Keywords)
	assert.Equal(t, 18, sc.Credibility["Reuters"])
	assert.Equal(t, 10, sc.UnknownCredibility)
}

func TestLoadRejectsUnknownRoutingProvider(t *testing.T) {
	path := writeConfig(t, `
providers:
  - id: flash
    backend: mock
routing:
  default: [flash, ghost]
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestLoadRejectsBadBackend(t *testing.T) {
	path := writeConfig(t, `
providers:
  - id: bad
    backend: carrier-pigeon
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestProviderKeyFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("CLAUDE_API_KEY", "sk-test")

	path := writeConfig(t, `
providers:
  - id: claude
    backend: anthropic
    model: claude-sonnet
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "sk-test", cfg.Providers[0].APIKey)
}
