package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host           string
	Port           string
	RequestTimeout time.Duration

	// Engine paths and tunables.
	MarkersRoot     string
	CacheDir        string
	CacheTTL        time.Duration
	PresetDBPath    string
	MaxBatchWorkers int
	JobTimeout      time.Duration

	// Storage collaborator backend: "local" or "azure".
	StorageBackend        string
	StorageLocalDir       string
	AzureStorageAccount   string
	AzureStorageKey       string
	AzureStorageContainer string

	// Content registry endpoint used by the garbage collector. Empty means
	// GC runs against an injected repository only.
	ContentRegistryURL string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:           getEnvOrDefault("HOST", "0.0.0.0"),
		Port:           getEnvOrDefault("PORT", "8080"),
		RequestTimeout: parseDurationOrDefault("REQUEST_TIMEOUT", 60*time.Second),

		MarkersRoot:     getEnvOrDefault("MARKERS_ROOT", "./data/markers"),
		CacheDir:        getEnvOrDefault("CACHE_DIR", ""),
		CacheTTL:        parseDurationOrDefault("CACHE_TTL", 7*24*time.Hour),
		PresetDBPath:    getEnvOrDefault("PRESET_DB_PATH", "./data/presets"),
		MaxBatchWorkers: int(parseIntOrDefault("MAX_BATCH_WORKERS", 4)),
		JobTimeout:      parseDurationOrDefault("JOB_TIMEOUT", 0),

		StorageBackend:        getEnvOrDefault("STORAGE_BACKEND", "local"),
		StorageLocalDir:       getEnvOrDefault("STORAGE_LOCAL_DIR", "./data/published"),
		AzureStorageAccount:   os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureStorageKey:       os.Getenv("AZURE_STORAGE_KEY"),
		AzureStorageContainer: getEnvOrDefault("AZURE_STORAGE_CONTAINER", "markers"),

		ContentRegistryURL: os.Getenv("CONTENT_REGISTRY_URL"),
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be > 0 (got %s)", cfg.RequestTimeout)
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("CACHE_TTL must be > 0 (got %s)", cfg.CacheTTL)
	}
	if cfg.MarkersRoot == "" {
		return nil, fmt.Errorf("MARKERS_ROOT must not be empty")
	}
	if cfg.MaxBatchWorkers < 1 || cfg.MaxBatchWorkers > 8 {
		return nil, fmt.Errorf("MAX_BATCH_WORKERS must be in [1,8] (got %d)", cfg.MaxBatchWorkers)
	}
	switch cfg.StorageBackend {
	case "local", "azure":
	default:
		return nil, fmt.Errorf("STORAGE_BACKEND must be \"local\" or \"azure\" (got %q)", cfg.StorageBackend)
	}
	if cfg.StorageBackend == "azure" && (cfg.AzureStorageAccount == "" || cfg.AzureStorageKey == "") {
		return nil, fmt.Errorf("azure backend requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration >= 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
