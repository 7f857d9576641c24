package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{
			Model:      "test-embed",
			Dimensions: 1024,
		},
		Generation: GenerationConfig{Model: "test-chat"},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingValkeyAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing valkey addrs")
	}
}

func TestValidate_MissingModels(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing embedding model")
	}

	cfg = validConfig()
	cfg.Generation.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing generation model")
	}
}

func TestValidate_OverlapExceedsChunkSize(t *testing.T) {
	cfg := validConfig()
	cfg.RAG = RAGConfig{ChunkSize: 64, Overlap: 64}
	cfg.Session.Backend = "memory"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for overlap >= chunk_size")
	}
}

func TestValidate_SessionBackend(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()
	cfg.Session.Backend = "postgres"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown session backend")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 90 {
		t.Errorf("expected WriteTimeoutSec=90, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Database.Driver != "valkey" {
		t.Errorf("expected Driver=valkey, got %q", cfg.Database.Driver)
	}
	if cfg.RAG.Collection != "textbook_chunks" {
		t.Errorf("expected Collection=textbook_chunks, got %q", cfg.RAG.Collection)
	}
	if cfg.RAG.ChunkSize != 512 || cfg.RAG.Overlap != 64 {
		t.Errorf("expected chunk_size=512 overlap=64, got %d/%d", cfg.RAG.ChunkSize, cfg.RAG.Overlap)
	}
	if cfg.RAG.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.RAG.TopK)
	}
	if cfg.RAG.BatchSize != 50 {
		t.Errorf("expected BatchSize=50, got %d", cfg.RAG.BatchSize)
	}
	if cfg.Session.Backend != "memory" || cfg.Session.TTLHours != 24 {
		t.Errorf("expected memory/24h sessions, got %s/%d", cfg.Session.Backend, cfg.Session.TTLHours)
	}
	if cfg.Generation.MaxTokens != 1024 {
		t.Errorf("expected MaxTokens=1024, got %d", cfg.Generation.MaxTokens)
	}
	if cfg.Index.HNSWM != 32 || cfg.Index.HNSWEFConstruct != 400 {
		t.Errorf("expected HNSW 32/400, got %d/%d", cfg.Index.HNSWM, cfg.Index.HNSWEFConstruct)
	}
	if cfg.Storage.KeyPrefix != "tutordex:" {
		t.Errorf("expected KeyPrefix='tutordex:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:    HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		RAG:     RAGConfig{ChunkSize: 256, Overlap: 32, TopK: 10, BatchSize: 25},
		Storage: StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.RAG.ChunkSize != 256 || cfg.RAG.TopK != 10 {
		t.Errorf("explicit RAG settings overridden: %+v", cfg.RAG)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TUTORDEX_TEST_KEY", "secret")

	in := []byte("api_key: ${TUTORDEX_TEST_KEY}\nbase_url: ${TUTORDEX_TEST_URL:-http://localhost:9000}\n")
	out := string(expandEnvVars(in))

	if out != "api_key: secret\nbase_url: http://localhost:9000\n" {
		t.Errorf("expanded = %q", out)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}

	yaml := `
http:
  port: 8080
database:
  addrs: ["localhost:6379"]
embedding:
  model: test-embed
  dimensions: 512
generation:
  model: test-chat
`
	if err := os.WriteFile(filepath.Join(cfgDir, "test.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedding.Dimensions != 512 {
		t.Errorf("dimensions = %d", cfg.Embedding.Dimensions)
	}
	if cfg.RAG.ChunkSize != 512 {
		t.Errorf("defaults not applied, chunk_size = %d", cfg.RAG.ChunkSize)
	}
}
