package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeConfig places a config file at the default path under a fake
// home directory.
func writeConfig(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "candor")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadWithFile_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := LoadWithFile("")
	if err != nil {
		t.Fatalf("LoadWithFile: %v", err)
	}

	if cfg.Server.Port != 8420 {
		t.Errorf("default port = %d, want 8420", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("default shutdown timeout = %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("default logging = %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.Patterns.TTL != 5*time.Minute {
		t.Errorf("default patterns TTL = %v", cfg.Patterns.TTL)
	}
	if cfg.Limits.MaxConversationChars != 1<<20 {
		t.Errorf("default max chars = %d", cfg.Limits.MaxConversationChars)
	}
}

func TestLoadWithFile_YAMLValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
logging:
  level: debug
model:
  provider: anthropic
  api_key: test-key
`, 0600)

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Model.Provider != "anthropic" || cfg.Model.APIKey != "test-key" {
		t.Errorf("model = %+v", cfg.Model)
	}
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n", 0600)
	t.Setenv("SERVER_PORT", "9001")

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d, want env override 9001", cfg.Server.Port)
	}
}

func TestLoadWithFile_RejectsWorldReadableFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n", 0644)

	if _, err := LoadWithFile(path); err == nil {
		t.Fatal("expected permission error for 0644 config file")
	}
}

func TestLoadWithFile_RejectsPathOutsideAllowedDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	outside := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(outside, []byte("server:\n  port: 9000\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadWithFile(outside); err == nil {
		t.Fatal("expected path validation error")
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		Server:  ServerConfig{Port: 8420},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Limits:  LimitsConfig{MaxConversationChars: 1000},
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		wantOK bool
	}{
		{"valid", func(*Config) {}, true},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, false},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, false},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, false},
		{"bad provider", func(c *Config) { c.Model.Provider = "ollama" }, false},
		{"bad limit", func(c *Config) { c.Limits.MaxConversationChars = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err == nil) != tt.wantOK {
				t.Errorf("Validate() error = %v, wantOK %v", err, tt.wantOK)
			}
		})
	}
}
