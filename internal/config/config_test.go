package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	yaml := `
server:
  addr: ":9090"
  read_timeout: 10s
database:
  dsn: ":memory:"
cache:
  backend: redis
  redis:
    addr: localhost:6379
    db: 2
  ttl:
    listings: 2m
    search: 30s
categories:
  - name: Electronics
    slug: electronics
    position: 1
  - name: Phones
    slug: phones
    parent_slug: electronics
    position: 1
`
	cfg, err := Load(writeConfig(t, yaml))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q, want %q", cfg.Server.Addr, ":9090")
	}
	if cfg.Database.DSN != ":memory:" {
		t.Errorf("dsn = %q, want %q", cfg.Database.DSN, ":memory:")
	}
	if cfg.Cache.Backend != "redis" {
		t.Errorf("backend = %q, want redis", cfg.Cache.Backend)
	}
	if cfg.Cache.Redis.Addr != "localhost:6379" {
		t.Errorf("redis addr = %q", cfg.Cache.Redis.Addr)
	}
	if cfg.Cache.TTL.Listings != 2*time.Minute {
		t.Errorf("listings ttl = %v, want 2m", cfg.Cache.TTL.Listings)
	}
	if cfg.Cache.TTL.Search != 30*time.Second {
		t.Errorf("search ttl = %v, want 30s", cfg.Cache.TTL.Search)
	}
	if len(cfg.Categories) != 2 {
		t.Fatalf("categories count = %d, want 2", len(cfg.Categories))
	}
	if cfg.Categories[1].ParentSlug != "electronics" {
		t.Errorf("parent slug = %q, want electronics", cfg.Categories[1].ParentSlug)
	}
}

func TestExpandEnv(t *testing.T) {
	// Cannot use t.Parallel() with t.Setenv
	t.Setenv("TEST_REDIS_ADDR", "redis.internal:6379")

	result := expandEnv([]byte("addr: ${TEST_REDIS_ADDR}"))
	if string(result) != "addr: redis.internal:6379" {
		t.Errorf("expandEnv = %q", string(result))
	}

	// Unset vars pass through untouched.
	result = expandEnv([]byte("addr: ${TEST_UNSET_VAR_42}"))
	if string(result) != "addr: ${TEST_UNSET_VAR_42}" {
		t.Errorf("expandEnv on unset = %q", string(result))
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, `{}`))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("default addr = %q, want %q", cfg.Server.Addr, ":8080")
	}
	if cfg.Database.DSN != "lavka.db" {
		t.Errorf("default dsn = %q, want %q", cfg.Database.DSN, "lavka.db")
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("default backend = %q, want memory", cfg.Cache.Backend)
	}
	if !cfg.Cache.Janitor.Enabled || cfg.Cache.Janitor.Interval != time.Minute {
		t.Errorf("default janitor = %+v", cfg.Cache.Janitor)
	}
	if cfg.Cache.Breaker.ErrorThreshold != 0.5 {
		t.Errorf("default breaker threshold = %v", cfg.Cache.Breaker.ErrorThreshold)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "cache:\n  backend: memcached\n"))
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
