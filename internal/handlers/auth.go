package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"disclone/internal/auth"
	"disclone/internal/middleware"
)

// SessionCloser ends the live sockets of a profile.
type SessionCloser interface {
	CloseProfile(profileID, reason string) int
}

// AuthHandler serves sign-up, sign-in and sign-out.
type AuthHandler struct {
	auth     *auth.Service
	cookies  middleware.CookieConfig
	sessions SessionCloser
}

// NewAuthHandler builds an AuthHandler. sessions may be nil.
func NewAuthHandler(svc *auth.Service, cookies middleware.CookieConfig, sessions SessionCloser) *AuthHandler {
	return &AuthHandler{auth: svc, cookies: cookies, sessions: sessions}
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profile, err := h.auth.Register(c.Request.Context(), h.cookies.Store(c), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"profile": profile})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profile, err := h.auth.Login(c.Request.Context(), h.cookies.Store(c), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// Logout clears the session cookie and closes the caller's open sockets.
func (h *AuthHandler) Logout(c *gin.Context) {
	store := h.cookies.Store(c)
	res := h.auth.Resolve(c.Request.Context(), store)
	h.auth.Logout(store)
	if res.Authenticated && h.sessions != nil {
		h.sessions.CloseProfile(res.Profile.ID, "signed out")
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) Me(c *gin.Context) {
	profile, ok := middleware.CurrentProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}
