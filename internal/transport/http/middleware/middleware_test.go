package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"constitution-gpt/internal/model"
	"constitution-gpt/internal/pkg/jwtutil"
)

type stubVerifier map[string]*jwtutil.AccessClaims

func (v stubVerifier) Verify(token string) (*jwtutil.AccessClaims, bool) {
	c, ok := v[token]
	return c, ok
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		id, _ := UserIDFrom(c)
		role, _ := RoleFrom(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id, "role": role})
	})
	r.GET("/x", handlers...)
	return r
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthJWT(t *testing.T) {
	v := stubVerifier{
		"good":    {UserID: 9, Username: "asha", Role: "lawyer"},
		"badrole": {UserID: 9, Role: "superuser"},
	}
	r := newRouter(AuthJWT(v))

	require.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	require.Equal(t, http.StatusUnauthorized, do(r, "Basic abc").Code)
	require.Equal(t, http.StatusUnauthorized, do(r, "Bearer nope").Code)
	require.Equal(t, http.StatusUnauthorized, do(r, "Bearer badrole").Code)

	w := do(r, "bearer good")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"user_id":9,"role":"lawyer"}`, w.Body.String())
}

func TestRequireRoles(t *testing.T) {
	v := stubVerifier{
		"admin": {UserID: 1, Role: "admin"},
		"user":  {UserID: 2, Role: "user"},
	}
	r := newRouter(AuthJWT(v), RequireRoles(model.RoleAdmin, model.RoleModerator))

	require.Equal(t, http.StatusOK, do(r, "Bearer admin").Code)
	w := do(r, "Bearer user")
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), `"code":40300`)
}

func TestCORSAllowlist(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.in/"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.in")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "https://app.example.in", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiterWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := &rateLimiter{
		limit:   2,
		window:  time.Minute,
		clients: make(map[string]*window),
		now:     func() time.Time { return now },
		logger:  zap.NewNop(),
	}

	run := func() bool {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil)
		l.handle(c)
		return c.IsAborted()
	}
	require.False(t, run())
	require.False(t, run())
	require.True(t, run())

	now = now.Add(time.Minute)
	require.False(t, run())
}

func TestRateLimiterSweep(t *testing.T) {
	base := time.Now()
	l := &rateLimiter{limit: 1, window: 10 * time.Second, clients: make(map[string]*window)}
	l.clients["expired"] = &window{start: base.Add(-20 * time.Second), count: 1}
	l.clients["active"] = &window{start: base.Add(-2 * time.Second), count: 1}

	l.mu.Lock()
	l.sweepLocked(base)
	l.mu.Unlock()

	require.NotContains(t, l.clients, "expired")
	require.Contains(t, l.clients, "active")
	require.False(t, l.lastSweep.IsZero())
}
