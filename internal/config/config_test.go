package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("expected shutdown timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Catalog.BaseURL == "" {
		t.Error("expected non-empty catalog base url")
	}
	if cfg.Catalog.RequestTimeout != 10*time.Second {
		t.Errorf("expected catalog request timeout 10s, got %v", cfg.Catalog.RequestTimeout)
	}
	if cfg.LLM.ClassifierModel == "" {
		t.Error("expected non-empty classifier model")
	}
	if cfg.Redis.PoolSize != 100 {
		t.Errorf("expected pool size 100, got %d", cfg.Redis.PoolSize)
	}
	if cfg.Redis.TTL.Trending != 60*time.Second {
		t.Errorf("expected trending TTL 60s, got %v", cfg.Redis.TTL.Trending)
	}
	if cfg.Redis.TTL.StaleFallback != 1*time.Hour {
		t.Errorf("expected stale fallback TTL 1h, got %v", cfg.Redis.TTL.StaleFallback)
	}
	if cfg.Search.CircuitBreaker.FailureThreshold != 5 {
		t.Errorf("expected failure threshold 5, got %d", cfg.Search.CircuitBreaker.FailureThreshold)
	}
	if cfg.Search.Pipeline.StrictKeywordCount != 2 {
		t.Errorf("expected strict keyword count 2, got %d", cfg.Search.Pipeline.StrictKeywordCount)
	}
	if cfg.Search.Pipeline.BroadenThreshold != 10 {
		t.Errorf("expected broaden threshold 10, got %d", cfg.Search.Pipeline.BroadenThreshold)
	}
	if cfg.Search.Pipeline.RerankCandidateCap != 30 {
		t.Errorf("expected rerank candidate cap 30, got %d", cfg.Search.Pipeline.RerankCandidateCap)
	}
	if cfg.Search.Pipeline.RerankResultCap != 12 {
		t.Errorf("expected rerank result cap 12, got %d", cfg.Search.Pipeline.RerankResultCap)
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Observability.LogLevel)
	}
	if cfg.Observability.ServiceName != "reelscout" {
		t.Errorf("expected service name 'reelscout', got %s", cfg.Observability.ServiceName)
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected no error for default config, got %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"zero port", 0},
		{"negative port", -1},
		{"port too high", 65536},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Server.Port = tt.port
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected error for port %d, got nil", tt.port)
			}
		})
	}
}

func TestValidate_EmptyCatalogURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Catalog.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty catalog base url")
	}
}

func TestValidate_EmptyRedisAddresses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Redis.Addresses = nil
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty Redis addresses")
	}
}

func TestValidate_InvalidPipeline(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero strict keyword count", func(c *Config) { c.Search.Pipeline.StrictKeywordCount = 0 }},
		{"zero broaden threshold", func(c *Config) { c.Search.Pipeline.BroadenThreshold = 0 }},
		{"candidate cap below result cap", func(c *Config) {
			c.Search.Pipeline.RerankCandidateCap = 5
			c.Search.Pipeline.RerankResultCap = 12
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_ValidFile(t *testing.T) {
	content := `
server:
  host: "127.0.0.1"
  port: 9090
catalog:
  base_url: "https://catalog.example/3"
  api_key: "abc"
redis:
  addresses:
    - "redis:6379"
search:
  pipeline:
    broaden_threshold: 5
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected host 127.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Catalog.BaseURL != "https://catalog.example/3" {
		t.Errorf("unexpected catalog base url %s", cfg.Catalog.BaseURL)
	}
	if cfg.Search.Pipeline.BroadenThreshold != 5 {
		t.Errorf("expected broaden threshold 5, got %d", cfg.Search.Pipeline.BroadenThreshold)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	content := `
server:
  port: 0
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Error("expected validation error")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_CATALOG_KEY", "secret-key")

	content := `
catalog:
  api_key: "$TEST_CATALOG_KEY"
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Catalog.APIKey != "secret-key" {
		t.Errorf("expected expanded env var, got %s", cfg.Catalog.APIKey)
	}
}

func TestLoad_DefaultsPreservedWhenNotOverridden(t *testing.T) {
	content := `
server:
  port: 8081
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("expected default read timeout preserved, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Search.Pipeline.RefKeywordCap != 8 {
		t.Errorf("expected default ref keyword cap preserved, got %d", cfg.Search.Pipeline.RefKeywordCap)
	}
}
