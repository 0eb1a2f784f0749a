package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"disclone/internal/auth"
	"disclone/internal/models"
)

const profileContextKey = "profile"

// RequireProfile resolves the persisted session and rejects the request when it is not signed in.
func RequireProfile(svc *auth.Service, cookies CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := svc.Resolve(c.Request.Context(), cookies.Store(c))
		if !res.Authenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
			return
		}
		c.Set(profileContextKey, res.Profile)
		c.Next()
	}
}

// RequireAdmin must run after RequireProfile.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := CurrentProfile(c)
		if !ok || !profile.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

// CurrentProfile returns the profile set by RequireProfile.
func CurrentProfile(c *gin.Context) (models.Profile, bool) {
	val, ok := c.Get(profileContextKey)
	if !ok {
		return models.Profile{}, false
	}
	profile, ok := val.(models.Profile)
	return profile, ok
}

// SetProfile stores profile as the request's signed-in user.
func SetProfile(c *gin.Context, profile models.Profile) {
	c.Set(profileContextKey, profile)
}
