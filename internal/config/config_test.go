package config

import (
	"testing"
	"time"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %q", cfg.Port)
	}
	if cfg.CacheTTL != 7*24*time.Hour {
		t.Errorf("Expected 7 day cache TTL, got %s", cfg.CacheTTL)
	}
	if cfg.MaxBatchWorkers != 4 {
		t.Errorf("Expected 4 default workers, got %d", cfg.MaxBatchWorkers)
	}
	if cfg.StorageBackend != "local" {
		t.Errorf("Expected local storage backend, got %q", cfg.StorageBackend)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MARKERS_ROOT", "/data/markers")
	t.Setenv("MAX_BATCH_WORKERS", "8")
	t.Setenv("CACHE_TTL", "1h")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}
	if cfg.Port != "9090" || cfg.MarkersRoot != "/data/markers" {
		t.Errorf("Overrides not applied: %+v", cfg)
	}
	if cfg.MaxBatchWorkers != 8 {
		t.Errorf("Expected 8 workers, got %d", cfg.MaxBatchWorkers)
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("Expected 1h TTL, got %s", cfg.CacheTTL)
	}
}

func TestLoadFromEnvRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"invalid port", "PORT", "not-a-port"},
		{"port out of range", "PORT", "70000"},
		{"too many workers", "MAX_BATCH_WORKERS", "9"},
		{"zero workers", "MAX_BATCH_WORKERS", "0"},
		{"unknown backend", "STORAGE_BACKEND", "s3"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("Expected %s=%q to be rejected", tc.key, tc.value)
			}
		})
	}
}

func TestLoadFromEnvAzureRequiresCredentials(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "azure")

	if _, err := LoadFromEnv(); err == nil {
		t.Error("Expected azure backend without credentials to be rejected")
	}

	t.Setenv("AZURE_STORAGE_ACCOUNT", "acct")
	t.Setenv("AZURE_STORAGE_KEY", "a2V5")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed with credentials: %v", err)
	}
	if cfg.AzureStorageContainer != "markers" {
		t.Errorf("Expected default container, got %q", cfg.AzureStorageContainer)
	}
}

func TestServerAddress(t *testing.T) {
	cfg := &Config{Host: " 0.0.0.0 ", Port: " 8080 "}
	if got := cfg.ServerAddress(); got != "0.0.0.0:8080" {
		t.Errorf("Expected 0.0.0.0:8080, got %q", got)
	}
}
