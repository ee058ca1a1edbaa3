// Package config provides configuration loading for candord.
package config

import (
	"fmt"
	"time"

	"github.com/candorlabs/candor/internal/llm"
)

// Config is the full daemon configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Model    llm.Config     `koanf:"model"`
	Patterns PatternsConfig `koanf:"patterns"`
	Limits   LimitsConfig   `koanf:"limits"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// PatternsConfig configures the trigger-phrase catalog.
type PatternsConfig struct {
	// Path is an optional YAML catalog file. Empty means the
	// built-in defaults.
	Path string `koanf:"path"`
	// TTL is how long a loaded catalog is served before the source
	// is re-read.
	TTL time.Duration `koanf:"ttl"`
	// Watch reloads the catalog on file changes in addition to the
	// TTL refresh.
	Watch bool `koanf:"watch"`
}

// LimitsConfig bounds request sizes.
type LimitsConfig struct {
	// MaxConversationChars rejects conversations larger than this
	// many bytes of raw text.
	MaxConversationChars int `koanf:"max_conversation_chars"`
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535, got %d", c.Server.Port)
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
	switch c.Model.Provider {
	case "", "disabled", "anthropic", "openai":
	default:
		return fmt.Errorf("model.provider must be disabled, anthropic, or openai, got %q", c.Model.Provider)
	}
	if c.Limits.MaxConversationChars < 1 {
		return fmt.Errorf("limits.max_conversation_chars must be positive, got %d", c.Limits.MaxConversationChars)
	}
	return nil
}
