package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/alanpentz/course-platform/internal/domain"
	domainagg "github.com/alanpentz/course-platform/internal/domain/aggregates"
	httpH "github.com/alanpentz/course-platform/internal/http/handlers"
	httpMW "github.com/alanpentz/course-platform/internal/http/middleware"
	"github.com/alanpentz/course-platform/internal/observability"
	"github.com/alanpentz/course-platform/internal/platform/logger"
	"github.com/alanpentz/course-platform/internal/services"
)

type fakeEnrollments struct {
	services.EnrollmentService
	grants  []services.GrantInput
	created bool
}

func (f *fakeEnrollments) Grant(_ context.Context, in services.GrantInput) (*services.GrantResult, error) {
	f.grants = append(f.grants, in)
	return &services.GrantResult{
		Enrollment: &types.Enrollment{ID: uuid.New(), UserID: in.UserID, CourseID: in.CourseID, Status: types.EnrollmentStatusActive},
		Created:    f.created,
	}, nil
}

func (f *fakeEnrollments) ListEnrollments(_ context.Context, userID uuid.UUID, status string, page, limit int) ([]*types.Enrollment, int64, error) {
	if status == "bogus" {
		return nil, 0, domainagg.NewError(domainagg.CodeValidation, "list", "unknown status: BOGUS", nil)
	}
	return []*types.Enrollment{{ID: uuid.New(), UserID: userID, Status: types.EnrollmentStatusActive}}, 1, nil
}

type fakeProgress struct {
	services.ProgressService
	err  error
	last services.RecordCompletionInput
}

func (f *fakeProgress) RecordCompletion(_ context.Context, in services.RecordCompletionInput) (*services.RecordCompletionResult, error) {
	f.last = in
	if f.err != nil {
		return nil, f.err
	}
	return &services.RecordCompletionResult{
		LessonProgress: &types.LessonProgress{UserID: in.UserID, LessonID: in.LessonID, IsCompleted: in.IsCompleted},
		Reconcile: &services.ReconcileResult{
			Enrollment: &types.Enrollment{UserID: in.UserID, CourseID: in.CourseID, Status: types.EnrollmentStatusActive, ProgressPercent: 33},
			Progress:   types.Progress{Completed: 1, Total: 3, Percent: 33},
		},
	}, nil
}

type routerFixture struct {
	engine      *gin.Engine
	verifier    services.TokenVerifier
	enrollments *fakeEnrollments
	progress    *fakeProgress
}

func newRouterFixture(t *testing.T) routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	v, err := services.NewTokenVerifier("secret", "")
	require.NoError(t, err)
	enr := &fakeEnrollments{created: true}
	prog := &fakeProgress{}
	engine := NewRouter(RouterConfig{
		Log:               log,
		Metrics:           observability.New(),
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, v),
		EnrollmentHandler: httpH.NewEnrollmentHandler(log, enr, prog),
		AdminHandler:      httpH.NewAdminHandler(log, enr),
		HealthHandler:     httpH.NewHealthHandler(nil),
	})
	return routerFixture{engine: engine, verifier: v, enrollments: enr, progress: prog}
}

func (f routerFixture) do(t *testing.T, method, path, role string, userID uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		tok, err := f.verifier.IssueToken(userID, role, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthAndMetricsArePublic(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(t, http.MethodGet, "/healthcheck", "", uuid.Nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = f.do(t, http.MethodGet, "/metrics", "", uuid.Nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `cp_api_requests_total{method="GET",route="/healthcheck",status="200"}`)
}

func TestRouterRecordLessonProgress(t *testing.T) {
	f := newRouterFixture(t)
	userID, courseID, lessonID := uuid.New(), uuid.New(), uuid.New()
	path := fmt.Sprintf("/api/enrollments/%s/lessons/%s/progress", courseID, lessonID)

	rec := f.do(t, http.MethodPost, path, "", uuid.Nil, `{"is_completed":true}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, path, services.RoleStudent, userID, `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, path, services.RoleStudent, userID, `{"is_completed":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, userID, f.progress.last.UserID)
	require.False(t, f.progress.last.IsCompleted)

	var body struct {
		Enrollment types.Enrollment `json:"enrollment"`
		Progress   types.Progress   `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 33, body.Enrollment.ProgressPercent)
	require.Equal(t, 3, body.Progress.Total)

	f.progress.err = domainagg.NewError(domainagg.CodeNotEnrolled, "op", "not enrolled in course", nil)
	rec = f.do(t, http.MethodPost, path, services.RoleStudent, userID, `{"is_completed":true}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), `"code":"not_enrolled"`)

	rec = f.do(t, http.MethodPost, "/api/enrollments/nope/lessons/"+lessonID.String()+"/progress", services.RoleStudent, userID, `{"is_completed":true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterAdminRoutesRequireAdmin(t *testing.T) {
	f := newRouterFixture(t)
	body := fmt.Sprintf(`{"user_id":%q,"course_id":%q,"payment_id":"pi_1"}`, uuid.New(), uuid.New())

	rec := f.do(t, http.MethodPost, "/api/admin/enrollments", services.RoleStudent, uuid.New(), body)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Empty(t, f.enrollments.grants)

	rec = f.do(t, http.MethodPost, "/api/admin/enrollments", services.RoleAdmin, uuid.New(), body)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.enrollments.grants, 1)
	require.Equal(t, services.GrantSourceAdmin, f.enrollments.grants[0].Source)

	f.enrollments.created = false
	rec = f.do(t, http.MethodPost, "/api/admin/enrollments", services.RoleAdmin, uuid.New(), body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/admin/enrollments", services.RoleAdmin, uuid.New(), `{"user_id":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterListEnrollments(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(t, http.MethodGet, "/api/enrollments?page=2&limit=5", services.RoleStudent, uuid.New(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), `"page":2`))

	rec = f.do(t, http.MethodGet, "/api/enrollments?status=bogus", services.RoleStudent, uuid.New(), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
