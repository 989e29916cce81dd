package app

import (
	"strings"
	"time"

	"github.com/alanpentz/course-platform/internal/platform/envutil"
	"github.com/alanpentz/course-platform/internal/platform/logger"
)

type Config struct {
	Port        string
	Environment string
	Version     string
	ServiceName string

	JWTSecretKey string
	JWTIssuer    string

	CourseStructureCacheTTL time.Duration
	BackfillConcurrency     int

	MetricsAddr    string
	AllowedOrigins []string
}

func LoadConfig(log *logger.Logger) Config {
	log.Info("Loading configuration...")
	return Config{
		Port:        envutil.String("PORT", "8080"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", ""),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "course-platform"),

		JWTSecretKey: envutil.String("JWT_SECRET_KEY", ""),
		JWTIssuer:    envutil.String("JWT_ISSUER", ""),

		CourseStructureCacheTTL: envutil.Seconds("COURSE_STRUCTURE_CACHE_TTL_SECONDS", 300*time.Second),
		BackfillConcurrency:     envutil.Int("RECONCILE_CONCURRENCY", 4),

		MetricsAddr:    envutil.String("METRICS_ADDR", ""),
		AllowedOrigins: envutil.List("CORS_ALLOWED_ORIGINS", nil),
	}
}

func (c Config) Addr() string {
	p := strings.TrimSpace(c.Port)
	if strings.HasPrefix(p, ":") {
		return p
	}
	return ":" + p
}
