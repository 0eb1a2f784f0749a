package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"disclone/internal/middleware"
	"disclone/internal/models"
	"disclone/internal/repositories"
	"disclone/internal/telemetry"
)

// ChannelHandler manages channel endpoints. Writes are routed behind middleware.RequireAdmin.
type ChannelHandler struct {
	channels repositories.ChannelRepository
	audit    *telemetry.AuditEmitter
}

func NewChannelHandler(channels repositories.ChannelRepository, audit *telemetry.AuditEmitter) *ChannelHandler {
	return &ChannelHandler{channels: channels, audit: audit}
}

func (h *ChannelHandler) ListChannels(c *gin.Context) {
	list, err := h.channels.ListChannels(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": list})
}

func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := models.ChannelSlug(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel name is empty"})
		return
	}

	profile, _ := middleware.CurrentProfile(c)
	ch, err := h.channels.CreateChannel(c.Request.Context(), name, req.Description, profile.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	h.audit.Emit(c.Request.Context(), telemetry.ActionChannelCreated, profile.ID, map[string]any{"channel_id": ch.ID, "name": ch.Name})
	c.JSON(http.StatusCreated, gin.H{"channel": ch})
}

// DeleteChannel requires ?confirm=true; the channel's messages go with it.
func (h *ChannelHandler) DeleteChannel(c *gin.Context) {
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confirmation required"})
		return
	}
	id := c.Param("id")
	if err := h.channels.DeleteChannel(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	profile, _ := middleware.CurrentProfile(c)
	h.audit.Emit(c.Request.Context(), telemetry.ActionChannelDeleted, profile.ID, map[string]any{"channel_id": id})
	c.Status(http.StatusNoContent)
}
