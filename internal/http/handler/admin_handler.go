package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/microbes-potential/conatoc-net/internal/http/middleware"
	"github.com/microbes-potential/conatoc-net/internal/service"
)

// AdminHandler exposes the admin user console. The router gates every
// route here on the admin role.
type AdminHandler struct {
	Directory *service.DirectoryService
}

// NewAdminHandler wires dependencies.
func NewAdminHandler(directory *service.DirectoryService) *AdminHandler {
	return &AdminHandler{Directory: directory}
}

// ListUsers returns every account, including deactivated ones.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	rows, err := h.Directory.ListAllUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": rows})
}

// DeactivateUser disables an account.
func (h *AdminHandler) DeactivateUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid user id."})
		return
	}

	sess := middleware.GetSession(c)
	if err := h.Directory.Deactivate(c.Request.Context(), sess, userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
