package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "orchestrad", cfg.Name)
	assert.False(t, cfg.Providers.Anthropic.Enabled)
	assert.Equal(t, 60*time.Second, cfg.Providers.Anthropic.Timeout)
	assert.Equal(t, "us-east-1", cfg.Providers.Bedrock.Region)

	assert.Equal(t, 5.0, cfg.Budget.WarnThresholdUSD)
	assert.Equal(t, 25.0, cfg.Budget.HardCapUSD)
	assert.Equal(t, 24*time.Hour, cfg.Budget.WindowDuration)

	assert.False(t, cfg.DropZone.Enabled)
	assert.Equal(t, "./dropzone/tasks", cfg.DropZone.WatchDir)

	assert.Equal(t, 0.5, cfg.Resilience.CircuitBreaker.ErrorThreshold)
	assert.Equal(t, 3, cfg.Resilience.Retry.MaxAttempts)

	assert.NoError(t, cfg.Validate())
}

func TestNewConfigWithOptions(t *testing.T) {
	cfg, err := NewConfig(
		WithName("test-orchestrad"),
		WithAnthropicAPIKey("sk-ant-test"),
		WithBudget(2.0, 10.0),
		WithLogLevel("debug"),
		WithLogFormat("json"),
	)
	require.NoError(t, err)

	assert.Equal(t, "test-orchestrad", cfg.Name)
	assert.True(t, cfg.Providers.Anthropic.Enabled)
	assert.Equal(t, "sk-ant-test", cfg.Providers.Anthropic.APIKey)
	assert.Equal(t, 2.0, cfg.Budget.WarnThresholdUSD)
	assert.Equal(t, 10.0, cfg.Budget.HardCapUSD)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestNewConfigRejectsInvalidBudget(t *testing.T) {
	_, err := NewConfig(WithBudget(50.0, 10.0))
	assert.Error(t, err)
}

func TestNewConfigRejectsInvalidLogFormat(t *testing.T) {
	_, err := NewConfig(WithLogFormat("xml"))
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env")
	t.Setenv("ORCHESTRA_BUDGET_HARD_CAP_USD", "100")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.True(t, cfg.Providers.Anthropic.Enabled)
	assert.Equal(t, "sk-ant-env", cfg.Providers.Anthropic.APIKey)
	assert.Equal(t, 100.0, cfg.Budget.HardCapUSD)
}

func TestLoadFromFileOverlaysYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("name: file-configured\nbudget:\n  hard_cap_usd: 42.5\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "file-configured", cfg.Name)
	assert.Equal(t, 42.5, cfg.Budget.HardCapUSD)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
	}{
		{"empty name", func(c *Config) { c.Name = "" }},
		{"zero hard cap", func(c *Config) { c.Budget.HardCapUSD = 0 }},
		{"warn exceeds hard cap", func(c *Config) { c.Budget.WarnThresholdUSD = 100; c.Budget.HardCapUSD = 10 }},
		{"bad error threshold", func(c *Config) { c.Resilience.CircuitBreaker.ErrorThreshold = 1.5 }},
		{"dropzone enabled without dir", func(c *Config) { c.DropZone.Enabled = true; c.DropZone.WatchDir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWithConfigFileOption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: from-file-option\n"), 0o644))

	cfg, err := NewConfig(WithConfigFile(path))
	require.NoError(t, err)
	assert.Equal(t, "from-file-option", cfg.Name)
}
