package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/microbes-potential/conatoc-net/internal/domain"
	"github.com/microbes-potential/conatoc-net/internal/http/middleware"
	"github.com/microbes-potential/conatoc-net/internal/service"
)

// CommunityHandler exposes the news feed, the channel chat, and the
// member directory.
type CommunityHandler struct {
	Community *service.CommunityService
	Directory *service.DirectoryService
}

// NewCommunityHandler wires dependencies.
func NewCommunityHandler(community *service.CommunityService, directory *service.DirectoryService) *CommunityHandler {
	return &CommunityHandler{Community: community, Directory: directory}
}

// ListNews returns the latest feed entries.
func (h *CommunityHandler) ListNews(c *gin.Context) {
	items, err := h.Community.ListNews(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": items})
}

// PublishNews posts a feed entry authored by the current member.
func (h *CommunityHandler) PublishNews(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		Link  string `json:"link"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid payload."})
		return
	}

	sess := middleware.GetSession(c)
	post, err := h.Community.PublishNews(c.Request.Context(), sess, req.Title, req.Body, req.Link)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": post.ID})
}

// ListMessages returns a channel's recent history.
func (h *CommunityHandler) ListMessages(c *gin.Context) {
	channel, err := domain.ParseChannel(c.Param("channel"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_channel", "error_description": "No such channel."})
		return
	}

	sess := middleware.GetSession(c)
	items, listErr := h.Community.ListMessages(c.Request.Context(), sess, channel)
	if listErr != nil {
		respondError(c, listErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel": string(channel), "messages": items})
}

// SendMessage posts to a channel.
func (h *CommunityHandler) SendMessage(c *gin.Context) {
	channel, err := domain.ParseChannel(c.Param("channel"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_channel", "error_description": "No such channel."})
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid payload."})
		return
	}

	sess := middleware.GetSession(c)
	msg, sendErr := h.Community.SendMessage(c.Request.Context(), sess, channel, req.Message)
	if sendErr != nil {
		respondError(c, sendErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": msg.ID})
}

// ListMembers returns the member directory.
func (h *CommunityHandler) ListMembers(c *gin.Context) {
	profiles, err := h.Directory.ListMembers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": profiles})
}
