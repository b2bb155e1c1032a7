package logger

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "default config",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name: "console output",
			config: &Config{
				Level:  "info",
				Format: "console",
				Output: "console",
			},
			wantErr: false,
		},
		{
			name: "invalid level",
			config: &Config{
				Level:  "invalid",
				Format: "json",
				Output: "console",
			},
			wantErr: true,
		},
		{
			name: "invalid format",
			config: &Config{
				Level:  "info",
				Format: "invalid",
				Output: "console",
			},
			wantErr: true,
		},
		{
			name: "invalid output",
			config: &Config{
				Level:  "info",
				Format: "json",
				Output: "invalid",
			},
			wantErr: true,
		},
		{
			name: "file output without filename",
			config: &Config{
				Level:  "info",
				Format: "json",
				Output: "file",
				File:   FileConfig{Filename: ""},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && log == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestFileOutput(t *testing.T) {
	cfg := &Config{
		Level:  "debug",
		Format: "json",
		Output: "file",
		File: FileConfig{
			Filename:   filepath.Join(t.TempDir(), "test.log"),
			MaxSize:    10,
			MaxAge:     7,
			MaxBackups: 3,
			Compress:   false,
		},
	}

	log, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	log.Info("test message", zap.String("key", "value"))
	if err := log.Sync(); err != nil {
		t.Logf("sync: %v", err)
	}
}

func TestWithContext(t *testing.T) {
	log, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithRequestID(context.Background(), "req-123")
	if got := GetRequestID(ctx); got != "req-123" {
		t.Errorf("GetRequestID() = %q, want %q", got, "req-123")
	}

	// Logger derived from context must not be nil
	if log.WithContext(ctx) == nil {
		t.Error("WithContext() returned nil")
	}

	if FromContext(ctx) == nil {
		t.Error("FromContext() returned nil")
	}
}

func TestNamed(t *testing.T) {
	log, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	child := log.Named("storage")
	if child == nil {
		t.Fatal("Named() returned nil")
	}
	if child.Config() != log.Config() {
		t.Error("Named() should share config with parent")
	}
}
