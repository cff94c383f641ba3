// Package config provides configuration loading for forged.
package config

import (
	"fmt"
	"time"
)

// Config is the full daemon configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Inference  InferenceConfig  `koanf:"inference"`
	Generation GenerationConfig `koanf:"generation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// InferenceConfig holds the external text-generation gateway settings.
type InferenceConfig struct {
	Provider          string   `koanf:"provider"`
	APIKey            Secret   `koanf:"api_key"`
	BaseURL           string   `koanf:"base_url"`
	Model             string   `koanf:"model"`
	Timeout           Duration `koanf:"timeout"`
	MaxRetries        int      `koanf:"max_retries"`
	BackoffBase       Duration `koanf:"backoff_base"`
	MaxConcurrent     int      `koanf:"max_concurrent"`
	RequestsPerSecond float64  `koanf:"requests_per_second"`
	Burst             int      `koanf:"burst"`
}

// GenerationConfig holds pipeline settings.
type GenerationConfig struct {
	MaxIterations    int      `koanf:"max_iterations"`
	TokenBudget      int      `koanf:"token_budget"`
	CapacityFraction float64  `koanf:"capacity_fraction"`
	KeepRecentTurns  int      `koanf:"keep_recent_turns"`
	ProducerRoles    []string `koanf:"producer_roles"`
	RunTimeout       Duration `koanf:"run_timeout"`
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8750
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Inference.Provider == "" {
		cfg.Inference.Provider = "anthropic"
	}

	// max_iterations is defaulted in Load: zero is a legal operator choice
	// that disables review-triggered regeneration, so the default applies
	// only when the key is absent.
	if cfg.Generation.TokenBudget == 0 {
		cfg.Generation.TokenBudget = 100_000
	}
	if cfg.Generation.CapacityFraction == 0 {
		cfg.Generation.CapacityFraction = 0.85
	}
	if cfg.Generation.KeepRecentTurns == 0 {
		cfg.Generation.KeepRecentTurns = 4
	}
	if len(cfg.Generation.ProducerRoles) == 0 {
		cfg.Generation.ProducerRoles = []string{"ui", "api", "data"}
	}
	if cfg.Generation.RunTimeout == 0 {
		cfg.Generation.RunTimeout = Duration(10 * time.Minute)
	}
}

// Validate checks the configuration for invalid values. Defaults are applied
// before validation, so a zero field here means the operator set it wrong.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	switch c.Inference.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("inference.provider must be anthropic or openai, got %q", c.Inference.Provider)
	}

	if c.Generation.MaxIterations < 0 {
		return fmt.Errorf("generation.max_iterations cannot be negative")
	}
	if c.Generation.TokenBudget <= 0 {
		return fmt.Errorf("generation.token_budget must be positive, got %d", c.Generation.TokenBudget)
	}
	if c.Generation.CapacityFraction <= 0 || c.Generation.CapacityFraction > 1 {
		return fmt.Errorf("generation.capacity_fraction must be in (0, 1], got %v", c.Generation.CapacityFraction)
	}

	return nil
}
