package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"disclone/internal/auth"
)

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Store returns the token store for one request.
func (cfg CookieConfig) Store(c *gin.Context) auth.TokenStore {
	return &cookieTokenStore{c: c, cfg: cfg}
}

// cookieTokenStore reads the session cookie, falling back to a bearer header or
// a token query parameter for clients that cannot send cookies.
type cookieTokenStore struct {
	c   *gin.Context
	cfg CookieConfig
}

func (s *cookieTokenStore) Load() (string, bool) {
	if token, err := s.c.Cookie(s.cfg.Name); err == nil && token != "" {
		return token, true
	}
	header := s.c.GetHeader("Authorization")
	if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		if token := strings.TrimSpace(parts[1]); token != "" {
			return token, true
		}
	}
	if token := s.c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

func (s *cookieTokenStore) Save(token string) {
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(s.cfg.Name, token, int(s.cfg.MaxAge.Seconds()), "/", "", s.cfg.Secure, true)
}

func (s *cookieTokenStore) Clear() {
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(s.cfg.Name, "", -1, "/", "", s.cfg.Secure, true)
}
