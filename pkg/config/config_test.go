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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DECISIONCALM_LOG_LEVEL", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 10*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, "en", cfg.Pipeline.Language)
	assert.Equal(t, 1500, cfg.Pipeline.OptionsMaxTokens)

	name, _ := cfg.GetDefaultProvider()
	assert.Empty(t, name)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("DECISIONCALM_LOG_LEVEL", "DEBUG")

	path := writeConfig(t, `
providers:
  openai:
    enabled: true
    model: gpt-4o
    timeout: 30s
  local:
    enabled: false
    base_url: http://localhost:11434/v1
retry:
  max_attempts: 5
  base_delay: 1s
  max_delay: 4s
pipeline:
  language: pl
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	name, p := cfg.GetDefaultProvider()
	assert.Equal(t, "openai", name)
	assert.Equal(t, "sk-env", p.APIKey)
	assert.Equal(t, "gpt-4o", p.Model)
	assert.Equal(t, "text-embedding-3-small", p.EmbeddingModel)
	assert.Equal(t, 1536, p.EmbeddingDimensions)
	assert.Equal(t, 30*time.Second, p.Timeout)

	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, "pl", cfg.Pipeline.Language)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_EnvOnlyProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-only")
	t.Setenv("DECISIONCALM_LOG_LEVEL", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	name, p := cfg.GetDefaultProvider()
	assert.Equal(t, "openai", name)
	assert.Equal(t, "sk-only", p.APIKey)
	assert.Equal(t, "gpt-4o-mini", p.Model)
}

func TestLoadConfig_NullProvidersWithEnvKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DECISIONCALM_LOG_LEVEL", "")

	path := writeConfig(t, "providers:\nlogging:\n  level: info\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	name, p := cfg.GetDefaultProvider()
	assert.Equal(t, "openai", name)
	assert.Equal(t, "sk-test", p.APIKey)
	assert.Equal(t, "gpt-4o-mini", p.Model)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DECISIONCALM_LOG_LEVEL", "")

	tests := map[string]string{
		"bad language": "pipeline:\n  language: de\n",
		"bad delays":   "retry:\n  base_delay: 5s\n  max_delay: 1s\n",
		"bad yaml":     "retry: [",
		"bad url":      "providers:\n  x:\n    enabled: true\n    base_url: not a url\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestGetDefaultProvider_Deterministic(t *testing.T) {
	cfg := Default()
	cfg.Providers["zeta"] = ProviderConfig{Enabled: true}
	cfg.Providers["alpha"] = ProviderConfig{Enabled: true}
	cfg.Providers["beta"] = ProviderConfig{Enabled: false}

	for i := 0; i < 10; i++ {
		name, _ := cfg.GetDefaultProvider()
		assert.Equal(t, "alpha", name)
	}
}
