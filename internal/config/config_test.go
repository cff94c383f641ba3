package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err, "a missing config file falls back to defaults")

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8750, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "anthropic", cfg.Inference.Provider)
	assert.Equal(t, 2, cfg.Generation.MaxIterations)
	assert.Equal(t, 100_000, cfg.Generation.TokenBudget)
	assert.InDelta(t, 0.85, cfg.Generation.CapacityFraction, 1e-9)
	assert.Equal(t, []string{"ui", "api", "data"}, cfg.Generation.ProducerRoles)
	assert.Equal(t, 10*time.Minute, cfg.Generation.RunTimeout.Duration())
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9100
logging:
  level: debug
  format: console
inference:
  provider: openai
  api_key: sk-test
  timeout: 90s
generation:
  max_iterations: 3
  producer_roles: [api, data]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "openai", cfg.Inference.Provider)
	assert.Equal(t, "sk-test", cfg.Inference.APIKey.Value())
	assert.Equal(t, 90*time.Second, cfg.Inference.Timeout.Duration())
	assert.Equal(t, 3, cfg.Generation.MaxIterations)
	assert.Equal(t, []string{"api", "data"}, cfg.Generation.ProducerRoles)

	// Unset fields still receive defaults.
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 100_000, cfg.Generation.TokenBudget)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9100\n")
	t.Setenv("FORGED_SERVER_PORT", "9200")
	t.Setenv("FORGED_GENERATION_MAX_ITERATIONS", "4")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Generation.MaxIterations)
}

func TestLoadHonorsExplicitZeroIterations(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, "generation:\n  max_iterations: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Generation.MaxIterations,
		"an explicit zero disables iteration and must not become the default")

	t.Setenv("FORGED_GENERATION_MAX_ITERATIONS", "0")
	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Generation.MaxIterations)
}

func TestLoadRejectsInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad port", "server:\n  port: 70000\n"},
		{"bad level", "logging:\n  level: verbose\n"},
		{"bad provider", "inference:\n  provider: cohere\n"},
		{"bad capacity fraction", "generation:\n  capacity_fraction: 1.5\n"},
		{"negative iterations", "generation:\n  max_iterations: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfigFile(t, tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("sk-very-secret")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "sk-very-secret", s.Value())
	assert.True(t, s.IsSet())

	out, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "very-secret")

	assert.Equal(t, "", Secret("").String())
	assert.False(t, Secret("").IsSet())
}

func TestDurationParsing(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	require.Error(t, d.UnmarshalText([]byte("-5s")))
	require.Error(t, d.UnmarshalText([]byte("not-a-duration")))
}
