package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alanpentz/course-platform/internal/http/response"
	"github.com/alanpentz/course-platform/internal/platform/logger"
	"github.com/alanpentz/course-platform/internal/services"
)

type AdminHandler struct {
	log         *logger.Logger
	enrollments services.EnrollmentService
}

func NewAdminHandler(log *logger.Logger, enrollments services.EnrollmentService) *AdminHandler {
	return &AdminHandler{
		log:         log.With("handler", "AdminHandler"),
		enrollments: enrollments,
	}
}

type grantRequest struct {
	UserID    string `json:"user_id" binding:"required,uuid"`
	CourseID  string `json:"course_id" binding:"required,uuid"`
	PaymentID string `json:"payment_id" binding:"omitempty,max=255"`
}

// POST /api/admin/enrollments
func (h *AdminHandler) GrantEnrollment(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation", errors.New("user_id and course_id must be uuids"))
		return
	}
	res, err := h.enrollments.Grant(c.Request.Context(), services.GrantInput{
		UserID:    uuid.MustParse(req.UserID),
		CourseID:  uuid.MustParse(req.CourseID),
		PaymentID: req.PaymentID,
		Source:    services.GrantSourceAdmin,
	})
	if err != nil {
		response.RespondAggregateError(c, h.log, err)
		return
	}
	if res.Created {
		response.RespondCreated(c, res)
		return
	}
	response.RespondOK(c, res)
}

// POST /api/admin/enrollments/:courseId/users/:userId/cancel
func (h *AdminHandler) CancelEnrollment(c *gin.Context) {
	courseID, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	e, changed, err := h.enrollments.Cancel(c.Request.Context(), userID, courseID)
	if err != nil {
		response.RespondAggregateError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"enrollment": e, "changed": changed})
}

// POST /api/admin/courses/:courseId/reconcile
func (h *AdminHandler) ReconcileCourse(c *gin.Context) {
	courseID, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}
	report, err := h.enrollments.ReconcileCourse(c.Request.Context(), courseID)
	if err != nil {
		response.RespondAggregateError(c, h.log, err)
		return
	}
	response.RespondOK(c, report)
}
