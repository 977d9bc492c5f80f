package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/microbes-potential/conatoc-net/internal/domain"
	"github.com/microbes-potential/conatoc-net/internal/service"
)

// respondError maps domain errors onto JSON error payloads. Failed
// logins stay deliberately generic; registration failures name their
// reason, since duplicate-email and bad-invite responses do not leak
// anything a registrant doesn't already know.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrAuthFailed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials", "error_description": "Invalid email or password."})
	case errors.Is(err, domain.ErrSessionExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session_expired", "error_description": "Your session has expired. Please log in again."})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "error_description": "You don't have permission to do that."})
	case errors.Is(err, domain.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_email", "error_description": "This email is already registered. Try logging in."})
	case errors.Is(err, domain.ErrInvalidInviteCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_invite", "error_description": "The invite code is not valid."})
	case errors.Is(err, domain.ErrInviteExhausted):
		c.JSON(http.StatusConflict, gin.H{"error": "invite_exhausted", "error_description": "This invite code has no uses left."})
	case errors.Is(err, domain.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": "weak_password", "error_description": "Use a stronger password (8+ characters)."})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "error_description": "No such record."})
	case errors.Is(err, service.ErrDeactivateSelf):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "You can't deactivate your own account."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Something went wrong."})
	}
}
