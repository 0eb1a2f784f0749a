package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"disclone/internal/middleware"
	"disclone/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRoutes, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		profile, _ := middleware.CurrentProfile(c)
		emitter.Emit(c.Request.Context(), "audit_test", profile.ID, map[string]any{"message": "audit test"})
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
