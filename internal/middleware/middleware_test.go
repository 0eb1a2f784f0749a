package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disclone/internal/auth"
	"disclone/internal/memstore"
	"disclone/internal/observability"
)

var testCookies = CookieConfig{Name: "disclone_session", MaxAge: time.Hour}

func newAuthRouter(t *testing.T) (*gin.Engine, *auth.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := auth.NewService(memstore.New(nil), "test-secret", time.Hour, []string{"admin"}, nil)

	router := gin.New()
	router.GET("/me", RequireProfile(svc, testCookies), func(c *gin.Context) {
		profile, _ := CurrentProfile(c)
		c.JSON(http.StatusOK, gin.H{"username": profile.Username})
	})
	router.GET("/admin", RequireProfile(svc, testCookies), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router, svc
}

func TestRequireProfileRejectsMissingSession(t *testing.T) {
	router, _ := newAuthRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireProfileAcceptsCookieBearerAndQuery(t *testing.T) {
	router, svc := newAuthRouter(t)
	_, token, err := svc.SignUp(context.Background(), "regular-user", "secret1")
	require.NoError(t, err)

	withCookie := httptest.NewRequest(http.MethodGet, "/me", nil)
	withCookie.AddCookie(&http.Cookie{Name: testCookies.Name, Value: token})
	withBearer := httptest.NewRequest(http.MethodGet, "/me", nil)
	withBearer.Header.Set("Authorization", "Bearer "+token)
	withQuery := httptest.NewRequest(http.MethodGet, "/me?token="+token, nil)

	for _, req := range []*http.Request{withCookie, withBearer, withQuery} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "regular-user")
	}
}

func TestRequireProfileClearsInvalidCookie(t *testing.T) {
	router, _ := newAuthRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: testCookies.Name, Value: "garbage"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, testCookies.Name, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestRequireAdmin(t *testing.T) {
	router, svc := newAuthRouter(t)
	_, userToken, err := svc.SignUp(context.Background(), "regular-user", "secret1")
	require.NoError(t, err)
	_, adminToken, err := svc.SignUp(context.Background(), "admin", "secret1")
	require.NoError(t, err)

	for token, want := range map[string]int{userToken: http.StatusForbidden, adminToken: http.StatusNoContent} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code)
	}
}

func TestRequestIDPropagates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	var seen string
	router.GET("/", func(c *gin.Context) {
		seen = observability.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-1", seen)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
}

func TestClientIdentityHonoursTrustedProxies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	require.NoError(t, router.SetTrustedProxies([]string{"10.0.0.1"}))
	router.GET("/who", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ip": c.ClientIP(), "device": DeviceID(c)})
	})
	who := func(remote string) map[string]string {
		req := httptest.NewRequest(http.MethodGet, "/who", nil)
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		req.Header.Set("X-Device-Id", " laptop ")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body
	}

	assert.Equal(t, map[string]string{"ip": "203.0.113.9", "device": "laptop"}, who("10.0.0.1:5555"))
	assert.Equal(t, "192.0.2.7", who("192.0.2.7:5555")["ip"])
}
