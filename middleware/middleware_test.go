package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newSessionRouter(m *SessionManager) *gin.Engine {
	r := gin.New()
	r.Use(Locals(m, "Yapper"))
	r.GET("/login/:id", func(ctx *gin.Context) {
		id, _ := strconv.Atoi(ctx.Param("id"))
		_ = m.Login(ctx, uint(id))
		ctx.Status(http.StatusNoContent)
	})
	r.GET("/pending/:hash", func(ctx *gin.Context) {
		_ = m.SetPending(ctx, ctx.Param("hash"))
		ctx.Status(http.StatusNoContent)
	})
	r.GET("/whoami", func(ctx *gin.Context) {
		id, _ := CurrentUserID(ctx)
		ctx.JSON(http.StatusOK, gin.H{
			"id":       id,
			"loggedIn": ctx.GetBool(ContextLoggedInKey),
			"pending":  m.Pending(ctx),
			"app":      ctx.GetString(ContextAppNameKey),
		})
	})
	r.GET("/logout", func(ctx *gin.Context) {
		_ = m.Logout(ctx)
		ctx.Status(http.StatusNoContent)
	})
	r.GET("/private", AuthRequired(m), func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "secret")
	})
	return r
}

func do(r http.Handler, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionLifecycle(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour, false)
	r := newSessionRouter(m)

	w := do(r, "/whoami", nil)
	assert.JSONEq(t, `{"id":0,"loggedIn":false,"pending":"","app":"Yapper"}`, w.Body.String())

	w = do(r, "/private", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = do(r, "/pending/abc", nil)
	pending := w.Result().Cookies()
	require.NotEmpty(t, pending)
	w = do(r, "/whoami", pending)
	assert.JSONEq(t, `{"id":0,"loggedIn":false,"pending":"abc","app":"Yapper"}`, w.Body.String())

	w = do(r, "/login/7", pending)
	loggedIn := w.Result().Cookies()
	require.NotEmpty(t, loggedIn)
	w = do(r, "/whoami", loggedIn)
	assert.JSONEq(t, `{"id":7,"loggedIn":true,"pending":"","app":"Yapper"}`, w.Body.String())

	w = do(r, "/private", loggedIn)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, "/logout", loggedIn)
	cleared := w.Result().Cookies()
	require.NotEmpty(t, cleared)
	assert.True(t, cleared[0].MaxAge < 0)
	w = do(r, "/private", cleared)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestSessionRejectsForgedCookie(t *testing.T) {
	r := newSessionRouter(NewSessionManager("test-secret", time.Hour, false))
	other := newSessionRouter(NewSessionManager("other-secret", time.Hour, false))

	forged := do(other, "/login/1", nil).Result().Cookies()
	w := do(r, "/private", forged)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(2))
	r.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	// perMinute 2 gives a burst of one
	assert.Equal(t, http.StatusOK, do(r, "/", nil).Code)
	w := do(r, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/like/:id", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	before := testCounter(t, http.MethodGet, "/like/:id", "200")
	do(r, "/like/1", nil)
	do(r, "/like/2", nil)
	assert.Equal(t, before+2, testCounter(t, http.MethodGet, "/like/:id", "200"))
}

func testCounter(t *testing.T, labels ...string) float64 {
	t.Helper()
	return testutil.ToFloat64(httpRequestsTotal.WithLabelValues(labels...))
}

func TestLogoutKeepsCookieAttributes(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour, true)
	r := newSessionRouter(m)

	loggedIn := do(r, "/login/3", nil).Result().Cookies()
	require.NotEmpty(t, loggedIn)

	cleared := do(r, "/logout", loggedIn).Result().Cookies()
	require.NotEmpty(t, cleared)
	c := cleared[0]
	assert.True(t, c.MaxAge < 0)
	assert.True(t, c.Secure)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)

	// the store's own options are untouched
	again := do(r, "/login/3", nil).Result().Cookies()
	require.NotEmpty(t, again)
	assert.Equal(t, 3600, again[0].MaxAge)
}
