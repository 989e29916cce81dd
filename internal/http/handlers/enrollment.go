package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alanpentz/course-platform/internal/http/response"
	"github.com/alanpentz/course-platform/internal/platform/logger"
	"github.com/alanpentz/course-platform/internal/services"
)

type EnrollmentHandler struct {
	log         *logger.Logger
	enrollments services.EnrollmentService
	progress    services.ProgressService
}

func NewEnrollmentHandler(log *logger.Logger, enrollments services.EnrollmentService, progress services.ProgressService) *EnrollmentHandler {
	return &EnrollmentHandler{
		log:         log.With("handler", "EnrollmentHandler"),
		enrollments: enrollments,
		progress:    progress,
	}
}

// GET /api/enrollments?status=&page=&limit=
func (h *EnrollmentHandler) ListMyEnrollments(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 20)
	rows, total, err := h.enrollments.ListEnrollments(c.Request.Context(), userID, c.Query("status"), page, limit)
	if err != nil {
		response.RespondAggregateError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{
		"enrollments": rows,
		"total":       total,
		"page":        page,
		"limit":       limit,
	})
}

// GET /api/enrollments/check/:courseId
func (h *EnrollmentHandler) CheckEnrollment(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}
	enrolled, e, err := h.enrollments.CheckEnrollment(c.Request.Context(), userID, courseID)
	if err != nil {
		response.RespondAggregateError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"is_enrolled": enrolled, "enrollment": e})
}

// GET /api/enrollments/:courseId/progress
func (h *EnrollmentHandler) GetProgress(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}
	sum, err := h.progress.GetProgressSummary(c.Request.Context(), userID, courseID)
	if err != nil {
		response.RespondAggregateError(c, h.log, err)
		return
	}
	response.RespondOK(c, sum)
}

type recordProgressRequest struct {
	IsCompleted *bool `json:"is_completed" binding:"required"`
}

// POST /api/enrollments/:courseId/lessons/:lessonId/progress
func (h *EnrollmentHandler) RecordLessonProgress(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}
	lessonID, ok := uuidParam(c, "lessonId")
	if !ok {
		return
	}
	var req recordProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation", errors.New("body must be {\"is_completed\": bool}"))
		return
	}

	res, err := h.progress.RecordCompletion(c.Request.Context(), services.RecordCompletionInput{
		UserID:      userID,
		CourseID:    courseID,
		LessonID:    lessonID,
		IsCompleted: *req.IsCompleted,
	})
	if err != nil {
		response.RespondAggregateError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{
		"lesson_progress": res.LessonProgress,
		"enrollment":      res.Reconcile.Enrollment,
		"progress":        res.Reconcile.Progress,
		"completed":       res.Reconcile.Completed,
		"certificate":     res.Reconcile.Certificate,
	})
}

// GET /api/enrollments/:courseId/certificate
func (h *EnrollmentHandler) GetCertificate(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}
	cert, err := h.enrollments.GetCertificate(c.Request.Context(), userID, courseID)
	if err != nil {
		response.RespondAggregateError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"certificate": cert})
}
