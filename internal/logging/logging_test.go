package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level  string
		format string
		wantOK bool
	}{
		{"debug", "json", true},
		{"info", "console", true},
		{"warn", "json", true},
		{"error", "json", true},
		{"verbose", "json", false},
	}
	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			logger, err := New(tt.level, tt.format)
			if (err == nil) != tt.wantOK {
				t.Fatalf("New(%q, %q) error = %v", tt.level, tt.format, err)
			}
			if err == nil && logger == nil {
				t.Fatal("expected a logger")
			}
		})
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	logger, err := New("warn", "json")
	if err != nil {
		t.Fatal(err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
}
