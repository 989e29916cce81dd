package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alanpentz/course-platform/internal/platform/ctxutil"
	"github.com/alanpentz/course-platform/internal/platform/logger"
	"github.com/alanpentz/course-platform/internal/services"
)

func newAuthRouter(t *testing.T) (*gin.Engine, services.TokenVerifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	v, err := services.NewTokenVerifier("secret", "")
	if err != nil {
		t.Fatalf("NewTokenVerifier: %v", err)
	}
	am := NewAuthMiddleware(logger.NewNop(), v)
	r := gin.New()
	r.GET("/me", am.RequireAuth(), func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		c.String(http.StatusOK, rd.UserID.String())
	})
	r.GET("/admin", am.RequireAuth(), am.RequireRole(services.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r, v
}

func doAuth(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuthAttachesCaller(t *testing.T) {
	r, v := newAuthRouter(t)
	userID := uuid.New()
	tok, err := v.IssueToken(userID, services.RoleStudent, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	rec := doAuth(r, "/me", tok)
	if rec.Code != http.StatusOK || rec.Body.String() != userID.String() {
		t.Fatalf("unexpected response: status=%d body=%q", rec.Code, rec.Body.String())
	}
	if rec := doAuth(r, "/me", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: want=401 got=%d", rec.Code)
	}
	if rec := doAuth(r, "/me", "garbage"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: want=401 got=%d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	r, v := newAuthRouter(t)
	student, _ := v.IssueToken(uuid.New(), services.RoleStudent, time.Minute)
	admin, _ := v.IssueToken(uuid.New(), services.RoleAdmin, time.Minute)

	if rec := doAuth(r, "/admin", student); rec.Code != http.StatusForbidden {
		t.Fatalf("student: want=403 got=%d", rec.Code)
	}
	if rec := doAuth(r, "/admin", admin); rec.Code != http.StatusNoContent {
		t.Fatalf("admin: want=204 got=%d", rec.Code)
	}
}
