package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	domainagg "github.com/alanpentz/course-platform/internal/domain/aggregates"
)

func TestStatusForCode(t *testing.T) {
	cases := map[domainagg.ErrorCode]int{
		domainagg.CodeValidation:         http.StatusBadRequest,
		domainagg.CodeNotEnrolled:        http.StatusForbidden,
		domainagg.CodeLessonNotFound:     http.StatusNotFound,
		domainagg.CodeNotFound:           http.StatusNotFound,
		domainagg.CodeConflict:           http.StatusConflict,
		domainagg.CodeInvariantViolation: http.StatusConflict,
		domainagg.CodeRetryable:          http.StatusServiceUnavailable,
		domainagg.CodeEnrollmentNotFound: http.StatusInternalServerError,
		domainagg.CodeInternal:           http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := StatusForCode(code); got != want {
			t.Fatalf("%s: want=%d got=%d", code, want, got)
		}
	}
}

func TestRespondAggregateErrorHidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err     error
		status  int
		code    string
		message string
	}{
		{domainagg.NewError(domainagg.CodeNotEnrolled, "op", "not enrolled in course", nil), http.StatusForbidden, "not_enrolled", "not enrolled in course"},
		{domainagg.NewError(domainagg.CodeEnrollmentNotFound, "op", "no enrollment for user=x", nil), http.StatusInternalServerError, "internal", "internal error"},
		{fmt.Errorf("dial tcp: refused"), http.StatusInternalServerError, "internal", "internal error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		RespondAggregateError(c, nil, tc.err)

		if rec.Code != tc.status {
			t.Fatalf("%v: status want=%d got=%d", tc.err, tc.status, rec.Code)
		}
		var env ErrorEnvelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.Error.Code != tc.code || env.Error.Message != tc.message {
			t.Fatalf("%v: want=%s/%q got=%s/%q", tc.err, tc.code, tc.message, env.Error.Code, env.Error.Message)
		}
	}
}
