package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disclone/internal/auth"
	"disclone/internal/memstore"
	"disclone/internal/middleware"
)

type closerSpy struct{ closed []string }

func (s *closerSpy) CloseProfile(profileID, reason string) int {
	s.closed = append(s.closed, profileID)
	return 1
}

func newAuthRouter(t *testing.T) (*gin.Engine, *closerSpy) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cookies := middleware.CookieConfig{Name: "disclone_session", MaxAge: time.Hour}
	svc := auth.NewService(memstore.New(nil), "test-secret", time.Hour, nil, nil)
	spy := &closerSpy{}
	h := NewAuthHandler(svc, cookies, spy)

	r := gin.New()
	r.POST("/auth/signup", h.SignUp)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", h.Logout)
	r.GET("/auth/me", middleware.RequireProfile(svc, cookies), h.Me)
	return r, spy
}

func post(r *gin.Engine, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSignUpSetsSessionCookie(t *testing.T) {
	r, _ := newAuthRouter(t)

	rec := post(r, "/auth/signup", `{"username":"regular-user","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(cookies[0])
	me := httptest.NewRecorder()
	r.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), "regular-user")
}

func TestSignUpErrors(t *testing.T) {
	r, _ := newAuthRouter(t)
	require.Equal(t, http.StatusCreated, post(r, "/auth/signup", `{"username":"taken","password":"secret1"}`).Code)

	assert.Equal(t, http.StatusConflict, post(r, "/auth/signup", `{"username":"TAKEN","password":"secret1"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/auth/signup", `{"username":"short","password":"abc"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/auth/signup", `{"username":"nopass"}`).Code)
}

func TestLoginAndLogout(t *testing.T) {
	r, spy := newAuthRouter(t)
	require.Equal(t, http.StatusCreated, post(r, "/auth/signup", `{"username":"regular-user","password":"secret1"}`).Code)

	assert.Equal(t, http.StatusUnauthorized, post(r, "/auth/login", `{"username":"regular-user","password":"wrong-pass"}`).Code)

	rec := post(r, "/auth/login", `{"username":"Regular-User","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	session := rec.Result().Cookies()[0]

	rec = post(r, "/auth/logout", "", session)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, spy.closed, 1)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Empty(t, cleared[0].Value)
}
