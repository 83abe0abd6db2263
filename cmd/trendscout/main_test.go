package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IshaanNene/trendscout/internal/config"
)

func withConfigFile(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trendscout.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	prev := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = prev })
}

func TestLoadConfigValidatesOverrides(t *testing.T) {
	withConfigFile(t, "refresh:\n  concurrency: 2\n")

	tests := []struct {
		name    string
		n       int
		wantErr bool
	}{
		{"within cap", 4, false},
		{"above cap", 9, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadConfig(func(c *config.Config) { c.Refresh.Concurrency = tt.n })
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "concurrency") {
					t.Fatalf("expected concurrency error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if cfg.Refresh.Concurrency != tt.n {
				t.Errorf("concurrency = %d, want %d", cfg.Refresh.Concurrency, tt.n)
			}
		})
	}
}

func TestRequirePersistentStorage(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Type = "memory"
	if err := requirePersistentStorage(cfg); err == nil {
		t.Error("memory storage should be rejected for reads across processes")
	}
	cfg.Storage.Type = "postgres"
	if err := requirePersistentStorage(cfg); err != nil {
		t.Errorf("postgres: %v", err)
	}
}
