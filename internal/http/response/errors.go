package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/alanpentz/course-platform/internal/domain/aggregates"
	"github.com/alanpentz/course-platform/internal/platform/logger"
)

// StatusForCode maps a domain error code to its HTTP status.
func StatusForCode(code domainagg.ErrorCode) int {
	switch code {
	case domainagg.CodeValidation:
		return http.StatusBadRequest
	case domainagg.CodeNotEnrolled:
		return http.StatusForbidden
	case domainagg.CodeNotFound, domainagg.CodeLessonNotFound:
		return http.StatusNotFound
	case domainagg.CodeConflict, domainagg.CodeInvariantViolation:
		return http.StatusConflict
	case domainagg.CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case domainagg.CodeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondAggregateError writes err using its domain code. Server-side failures
// are logged and replaced with a generic message.
func RespondAggregateError(c *gin.Context, log *logger.Logger, err error) {
	code := domainagg.CodeOf(err)
	if code == "" {
		code = domainagg.CodeInternal
	}
	status := StatusForCode(code)
	if status >= http.StatusInternalServerError {
		if log != nil {
			log.Error("request failed", "path", c.FullPath(), "code", code, "error", err)
		}
		if status != http.StatusServiceUnavailable {
			RespondError(c, status, string(domainagg.CodeInternal), errors.New("internal error"))
			return
		}
		RespondError(c, status, string(code), errors.New("temporarily unavailable, retry"))
		return
	}

	msg := err.Error()
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) && aggErr.Message != "" {
		msg = aggErr.Message
	}
	RespondError(c, status, string(code), errors.New(msg))
}
