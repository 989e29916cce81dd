package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/alanpentz/course-platform/internal/http/handlers"
	httpMW "github.com/alanpentz/course-platform/internal/http/middleware"
	"github.com/alanpentz/course-platform/internal/observability"
	"github.com/alanpentz/course-platform/internal/platform/logger"
	"github.com/alanpentz/course-platform/internal/services"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	AllowedOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	EnrollmentHandler *httpH.EnrollmentHandler
	AdminHandler      *httpH.AdminHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Enrollments (caller scoped)
	if cfg.EnrollmentHandler != nil {
		api.GET("/enrollments", cfg.EnrollmentHandler.ListMyEnrollments)
		api.GET("/enrollments/check/:courseId", cfg.EnrollmentHandler.CheckEnrollment)
		api.GET("/enrollments/:courseId/progress", cfg.EnrollmentHandler.GetProgress)
		api.POST("/enrollments/:courseId/lessons/:lessonId/progress", cfg.EnrollmentHandler.RecordLessonProgress)
		api.GET("/enrollments/:courseId/certificate", cfg.EnrollmentHandler.GetCertificate)
	}

	// Admin
	if cfg.AdminHandler != nil {
		admin := api.Group("/admin")
		if cfg.AuthMiddleware != nil {
			admin.Use(cfg.AuthMiddleware.RequireRole(services.RoleAdmin))
		}
		admin.POST("/enrollments", cfg.AdminHandler.GrantEnrollment)
		admin.POST("/enrollments/:courseId/users/:userId/cancel", cfg.AdminHandler.CancelEnrollment)
		admin.POST("/courses/:courseId/reconcile", cfg.AdminHandler.ReconcileCourse)
	}

	return r
}
