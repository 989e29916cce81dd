package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apphttp "github.com/alanpentz/course-platform/internal/http"
	httpH "github.com/alanpentz/course-platform/internal/http/handlers"
	httpMW "github.com/alanpentz/course-platform/internal/http/middleware"
	"github.com/alanpentz/course-platform/internal/observability"
	"github.com/alanpentz/course-platform/internal/platform/logger"
	"github.com/alanpentz/course-platform/internal/services"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health     *httpH.HealthHandler
	Enrollment *httpH.EnrollmentHandler
	Admin      *httpH.AdminHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, svcs Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(db),
		Enrollment: httpH.NewEnrollmentHandler(log, svcs.Enrollment, svcs.Progress),
		Admin:      httpH.NewAdminHandler(log, svcs.Enrollment),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) (Middleware, error) {
	log.Info("Wiring middleware...")
	verifier, err := services.NewTokenVerifier(cfg.JWTSecretKey, cfg.JWTIssuer)
	if err != nil {
		return Middleware{}, fmt.Errorf("init token verifier (JWT_SECRET_KEY): %w", err)
	}
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, verifier),
	}, nil
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	return apphttp.NewRouter(apphttp.RouterConfig{
		Log:               log,
		Metrics:           metrics,
		ServiceName:       cfg.ServiceName,
		AllowedOrigins:    cfg.AllowedOrigins,
		AuthMiddleware:    middleware.Auth,
		EnrollmentHandler: handlers.Enrollment,
		AdminHandler:      handlers.Admin,
		HealthHandler:     handlers.Health,
	})
}
