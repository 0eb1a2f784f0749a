package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"disclone/internal/middleware"
	"disclone/internal/repositories"
	"disclone/internal/telemetry"
)

type AnnouncementHandler struct {
	announcements repositories.AnnouncementRepository
	audit         *telemetry.AuditEmitter
	now           func() time.Time
}

func NewAnnouncementHandler(announcements repositories.AnnouncementRepository, audit *telemetry.AuditEmitter, now func() time.Time) *AnnouncementHandler {
	if now == nil {
		now = time.Now
	}
	return &AnnouncementHandler{announcements: announcements, audit: audit, now: now}
}

// ListActive returns the announcements whose window contains the current time.
func (h *AnnouncementHandler) ListActive(c *gin.Context) {
	list, err := h.announcements.ListActive(c.Request.Context(), h.now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"announcements": list})
}

func (h *AnnouncementHandler) CreateAnnouncement(c *gin.Context) {
	var req struct {
		Content  string    `json:"content" binding:"required"`
		StartsAt time.Time `json:"starts_at" binding:"required"`
		EndsAt   time.Time `json:"ends_at" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is empty"})
		return
	}
	if req.EndsAt.Before(req.StartsAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ends_at is before starts_at"})
		return
	}

	profile, _ := middleware.CurrentProfile(c)
	a, err := h.announcements.CreateAnnouncement(c.Request.Context(), req.Content, req.StartsAt, req.EndsAt, profile.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	h.audit.Emit(c.Request.Context(), telemetry.ActionAnnouncementCreated, profile.ID, map[string]any{"announcement_id": a.ID})
	c.JSON(http.StatusCreated, gin.H{"announcement": a})
}
