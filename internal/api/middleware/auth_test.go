package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/pkg/jwthelper"
)

const testKey = "middleware-test-signing-key"

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	auth := NewAuthenticator(testKey)
	r.GET("/whoami", auth.VerifyJWT(), func(ctx *gin.Context) {
		ctx.String(http.StatusOK, ctx.GetString(CtxKeySubjectID)+"/"+ctx.GetString(CtxKeyRole))
	})
	r.GET("/organizers", auth.VerifyJWT(), RequireRole(RoleOrganizer, RoleAdmin), func(ctx *gin.Context) {
		ctx.Status(http.StatusNoContent)
	})
	return r
}

func signed(t *testing.T, subjectID, role string) string {
	t.Helper()

	token, err := jwthelper.GenerateToken([]byte(testKey), subjectID, role, time.Minute)
	require.NoError(t, err)
	return token
}

func TestVerifyJWT(t *testing.T) {
	r := newRouter()

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "valid", header: "Bearer " + signed(t, "student-1", "student"), wantStatus: http.StatusOK, wantBody: "student-1/student"},
		{name: "lowercase scheme", header: "bearer " + signed(t, "student-1", ""), wantStatus: http.StatusOK, wantBody: "student-1/"},
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer abc", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestVerifyJWT_QueryTokenOnlyForWebsocket(t *testing.T) {
	r := newRouter()
	token := signed(t, "screen-1", RoleOrganizer)

	req := httptest.NewRequest(http.MethodGet, "/whoami?access_token="+token, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/whoami?access_token="+token, nil)
	req.Header.Set("Connection", "upgrade")
	req.Header.Set("Upgrade", "websocket")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "screen-1/organizer", rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	r := newRouter()

	for role, want := range map[string]int{
		RoleOrganizer: http.StatusNoContent,
		RoleAdmin:     http.StatusNoContent,
		"student":     http.StatusForbidden,
		"":            http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/organizers", nil)
		req.Header.Set("Authorization", "Bearer "+signed(t, "subject-1", role))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, want, rec.Code, "role %q", role)
	}
}
