package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"disclone/internal/client"
	"disclone/internal/middleware"
	"disclone/internal/models"
	"disclone/internal/observability"
	"disclone/internal/repositories"
	"disclone/internal/telemetry"
)

// MessageHandler serves conversation reads and message writes.
type MessageHandler struct {
	messages  repositories.MessageRepository
	reactions repositories.ReactionRepository
	audit     *telemetry.AuditEmitter
}

func NewMessageHandler(messages repositories.MessageRepository, reactions repositories.ReactionRepository, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{messages: messages, reactions: reactions, audit: audit}
}

func (h *MessageHandler) GetChannelMessages(c *gin.Context) {
	h.list(c, models.View{Kind: models.ViewChannel, ID: c.Param("id")})
}

func (h *MessageHandler) GetDirectMessages(c *gin.Context) {
	h.list(c, models.View{Kind: models.ViewDirect, ID: c.Param("peer_id")})
}

func (h *MessageHandler) list(c *gin.Context, view models.View) {
	if err := view.Validate(); err != nil {
		writeError(c, err)
		return
	}
	profile, _ := middleware.CurrentProfile(c)
	msgs, err := h.messages.ListMessages(c.Request.Context(), view, profile.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type postMessageRequest struct {
	Content     string `json:"content"`
	ChannelID   string `json:"channel_id"`
	RecipientID string `json:"recipient_id"`
	ReplyToID   string `json:"reply_to_id"`
	IsGIF       bool   `json:"is_gif"`
	GIFURL      string `json:"gif_url"`
}

func (h *MessageHandler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profile, _ := middleware.CurrentProfile(c)
	in := models.NewMessage{
		Content:     req.Content,
		AuthorID:    profile.ID,
		ChannelID:   req.ChannelID,
		RecipientID: req.RecipientID,
		ReplyToID:   req.ReplyToID,
		IsGIF:       req.IsGIF,
		GIFURL:      req.GIFURL,
	}
	if err := in.Validate(); err != nil {
		writeError(c, err)
		return
	}

	msg, err := h.messages.CreateMessage(c.Request.Context(), in)
	if err != nil {
		observability.IncMessageSend("error")
		writeError(c, err)
		return
	}
	observability.IncMessageSend("ok")
	h.audit.Emit(c.Request.Context(), telemetry.ActionMessageSent, profile.ID, map[string]any{
		"message_id":   msg.ID,
		"channel_id":   req.ChannelID,
		"recipient_id": req.RecipientID,
	})
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// ForwardMessage copies a message into another channel. An empty target is a no-op.
func (h *MessageHandler) ForwardMessage(c *gin.Context) {
	var req struct {
		ChannelID string `json:"channel_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	target := strings.TrimSpace(req.ChannelID)
	if target == "" {
		c.Status(http.StatusNoContent)
		return
	}

	ctx := c.Request.Context()
	original, err := h.messages.GetMessage(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	profile, _ := middleware.CurrentProfile(c)
	msg, err := h.messages.CreateMessage(ctx, models.NewMessage{
		Content:         original.Content,
		AuthorID:        profile.ID,
		ChannelID:       target,
		ForwardedFromID: original.ID,
		IsGIF:           original.IsGIF,
		GIFURL:          models.Value(original.GIFURL),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	h.audit.Emit(ctx, telemetry.ActionMessageForwarded, profile.ID, map[string]any{
		"message_id":        msg.ID,
		"forwarded_from_id": original.ID,
		"channel_id":        target,
	})
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// DeleteMessage is allowed for the author and for admins.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	ctx := c.Request.Context()
	msg, err := h.messages.GetMessage(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	profile, _ := middleware.CurrentProfile(c)
	if msg.AuthorID != profile.ID && !profile.IsAdmin {
		writeError(c, client.ErrForbidden)
		return
	}
	if err := h.messages.DeleteMessage(ctx, msg.ID); err != nil {
		writeError(c, err)
		return
	}
	h.audit.Emit(ctx, telemetry.ActionMessageDeleted, profile.ID, map[string]any{"message_id": msg.ID})
	c.Status(http.StatusNoContent)
}

// React adds the caller's emoji and returns the message's reaction groups.
// Repeating a reaction leaves the count unchanged.
func (h *MessageHandler) React(c *gin.Context) {
	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	emoji := strings.TrimSpace(req.Emoji)
	if emoji == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "emoji is empty"})
		return
	}

	ctx := c.Request.Context()
	messageID := c.Param("id")
	profile, _ := middleware.CurrentProfile(c)
	reaction, err := h.reactions.UpsertReaction(ctx, messageID, profile.ID, emoji)
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := h.reactions.ListReactions(ctx, []string{messageID})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reaction": reaction, "reactions": models.GroupReactions(list)})
}
