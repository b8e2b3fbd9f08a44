package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifecompass/backend/internal/auth"
	"github.com/lifecompass/backend/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthService() *auth.AuthService {
	return auth.NewAuthService(&types.AuthConfig{JWTSecret: "middleware-secret", JWTExpiration: time.Hour}, nil, nil)
}

func token(t *testing.T, svc *auth.AuthService, id auth.Identity) string {
	t.Helper()
	tok, _, err := svc.IssueToken(id)
	require.NoError(t, err)
	return tok
}

func whoami(c *gin.Context) {
	id, ok := IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"user_id": ""})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "role": id.Role})
}

func perform(r http.Handler, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestRequireAuth(t *testing.T) {
	svc := newAuthService()
	am := NewAuthMiddleware(svc, nil)

	r := gin.New()
	r.GET("/me", am.RequireAuth(), whoami)

	t.Run("MissingHeader", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))
	})

	t.Run("BadToken", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/me", "garbage")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Valid", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/me", token(t, svc, auth.Identity{UserID: "u1", Role: types.RoleRecruiter}))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":"u1","role":"recruiter"}`, w.Body.String())
	})
}

func TestOptionalAuth(t *testing.T) {
	svc := newAuthService()
	r := gin.New()
	r.GET("/", NewAuthMiddleware(svc, nil).OptionalAuth(), whoami)

	w := perform(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":""}`, w.Body.String())

	w = perform(r, http.MethodGet, "/", token(t, svc, auth.Identity{UserID: "u2", Role: types.RoleJobSeeker}))
	assert.Contains(t, w.Body.String(), `"u2"`)
}

func TestRequireRoleAndPermission(t *testing.T) {
	svc := newAuthService()
	am := NewAuthMiddleware(svc, nil)

	r := gin.New()
	r.GET("/admin", am.RequireAuth(), am.RequireRole(types.RoleAdmin), whoami)
	r.GET("/post", am.RequireAuth(), am.RequirePermission(auth.PermPostJobs), whoami)

	seeker := token(t, svc, auth.Identity{UserID: "s", Role: types.RoleJobSeeker})
	recruiter := token(t, svc, auth.Identity{UserID: "r", Role: types.RoleRecruiter})
	admin := token(t, svc, auth.Identity{UserID: "a", Role: types.RoleAdmin})

	assert.Equal(t, http.StatusForbidden, perform(r, http.MethodGet, "/admin", recruiter).Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/admin", admin).Code)

	w := perform(r, http.MethodGet, "/post", seeker)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, w))
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/post", recruiter).Code)
}

func TestRequireAuthWithoutValidator(t *testing.T) {
	r := gin.New()
	r.GET("/me", NewAuthMiddleware(nil, nil).RequireAuth(), whoami)

	w := perform(r, http.MethodGet, "/me", "a.b.c")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestIDFromContext(c)) })

	w := perform(r, http.MethodGet, "/", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "given")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "given", w.Body.String())
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.com"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// countingLimiter allows limit calls per key
type countingLimiter struct {
	calls map[string]int64
	err   error
}

func (l *countingLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.calls[key]++
	return l.calls[key] <= limit, nil
}

func TestRateLimit(t *testing.T) {
	t.Run("Blocks", func(t *testing.T) {
		limiter := &countingLimiter{calls: map[string]int64{}}
		r := gin.New()
		r.POST("/api/chat", NewRateLimitMiddleware(limiter, nil).RateLimit(2, time.Minute), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/api/chat", "").Code)
		assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/api/chat", "").Code)
		w := perform(r, http.MethodPost, "/api/chat", "")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "RATE_LIMITED", errorCode(t, w))
	})

	t.Run("FailsOpen", func(t *testing.T) {
		limiter := &countingLimiter{calls: map[string]int64{}, err: errors.New("redis down")}
		r := gin.New()
		r.POST("/api/chat", NewRateLimitMiddleware(limiter, nil).RateLimit(1, time.Minute), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/api/chat", "").Code)
	})

	t.Run("NilLimiter", func(t *testing.T) {
		r := gin.New()
		r.POST("/api/chat", NewRateLimitMiddleware(nil, nil).RateLimit(1, time.Minute), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/api/chat", "").Code)
		}
	})
}
