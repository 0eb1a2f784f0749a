package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"disclone/internal/auth"
	"disclone/internal/client"
	"disclone/internal/models"
	"disclone/internal/repositories"
)

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, auth.ErrUsernameTaken):
		return http.StatusConflict, err.Error()
	case errors.Is(err, repositories.ErrConflict):
		return http.StatusConflict, "already exists"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, client.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, models.ErrEmptyContent),
		errors.Is(err, models.ErrInvalidTarget),
		errors.Is(err, models.ErrInvalidView),
		errors.Is(err, models.ErrMissingAuthor),
		errors.Is(err, models.ErrContentTooLong),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrMissingUsername):
		return http.StatusBadRequest, err.Error()
	case repositories.IsConnectivity(err):
		return http.StatusServiceUnavailable, "backend unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": msg})
}
