package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(redisURLEnv, "")

	cfg := Load()

	if cfg.Embedding.Model != "all-MiniLM-L6-v2" {
		t.Fatalf("unexpected default model %q", cfg.Embedding.Model)
	}
	if cfg.Embedding.Dimension != 384 {
		t.Fatalf("unexpected default dimension %d", cfg.Embedding.Dimension)
	}
	if cfg.Matching.MinScore != 0.3 {
		t.Fatalf("unexpected default min score %v", cfg.Matching.MinScore)
	}
	if len(cfg.Sites) != 3 {
		t.Fatalf("expected 3 default sites, got %d", len(cfg.Sites))
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
logging:
  level: debug
embedding:
  dimension: 768
pipeline:
  runTimeout: 5m
sites:
  - name: local
    scraper: arbeitnow
    url: http://localhost:9000/api
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "")

	cfg := Load()

	if cfg.Logging.Level != "debug" {
		t.Fatalf("file level lost: %q", cfg.Logging.Level)
	}
	if cfg.Embedding.Dimension != 768 {
		t.Fatalf("file dimension lost: %d", cfg.Embedding.Dimension)
	}
	if cfg.Embedding.Model != "all-MiniLM-L6-v2" {
		t.Fatalf("default model must survive a partial file: %q", cfg.Embedding.Model)
	}
	if cfg.Pipeline.RunTimeout != 5*time.Minute {
		t.Fatalf("file timeout lost: %v", cfg.Pipeline.RunTimeout)
	}
	if len(cfg.Sites) != 1 || cfg.Sites[0].Name != "local" {
		t.Fatalf("file sites lost: %+v", cfg.Sites)
	}
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("database:\n  dsn: postgres://file/db\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "postgres://env/db")
	t.Setenv(embeddingKeyEnv, "secret")

	cfg := Load()

	if cfg.Database.DSN != "postgres://env/db" {
		t.Fatalf("env dsn must win, got %q", cfg.Database.DSN)
	}
	if cfg.Embedding.APIKey != "secret" {
		t.Fatalf("env api key lost: %q", cfg.Embedding.APIKey)
	}
}

func TestLoadIgnoresBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":::not yaml"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "")

	cfg := Load()
	if cfg.Embedding.Dimension != 384 {
		t.Fatalf("broken file must fall back to defaults, got %d", cfg.Embedding.Dimension)
	}
}
