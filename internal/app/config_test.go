package app

import (
	"testing"
	"time"

	"github.com/alanpentz/course-platform/internal/platform/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "COURSE_STRUCTURE_CACHE_TTL_SECONDS", "RECONCILE_CONCURRENCY", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig(logger.NewNop())
	if cfg.Addr() != ":8080" {
		t.Fatalf("addr: want=:8080 got=%s", cfg.Addr())
	}
	if cfg.CourseStructureCacheTTL != 300*time.Second {
		t.Fatalf("cache ttl: want=300s got=%s", cfg.CourseStructureCacheTTL)
	}
	if cfg.BackfillConcurrency != 4 {
		t.Fatalf("backfill concurrency: want=4 got=%d", cfg.BackfillConcurrency)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Fatalf("origins: want none got=%v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("COURSE_STRUCTURE_CACHE_TTL_SECONDS", "0")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	cfg := LoadConfig(logger.NewNop())
	if cfg.Addr() != ":9090" {
		t.Fatalf("addr: want=:9090 got=%s", cfg.Addr())
	}
	if cfg.CourseStructureCacheTTL != 0 {
		t.Fatalf("cache ttl: want=0 got=%s", cfg.CourseStructureCacheTTL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins: got=%v", cfg.AllowedOrigins)
	}
}
